package payment

import (
	"context"

	"github.com/go-faster/errors"
)

// Gateway intent statuses as reported by the payment provider.
const (
	IntentSucceeded             = "succeeded"
	IntentProcessing            = "processing"
	IntentRequiresAction        = "requires_action"
	IntentRequiresConfirmation  = "requires_confirmation"
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentCanceled              = "canceled"
)

// ErrGateway marks failures of the outbound gateway call itself (network,
// timeout, provider 5xx). Callers decide whether to retry; the core never
// retries transparently.
var ErrGateway = errors.New("payment gateway request failed")

// ProcessingError is the domain signal for a payment that the gateway
// declined or could not process.
type ProcessingError struct {
	IntentID string
	Reason   string
	Code     string
}

func (e *ProcessingError) Error() string {
	if e.Reason == "" {
		return "payment processing failed for intent " + e.IntentID
	}
	return "payment processing failed for intent " + e.IntentID + ": " + e.Reason
}

// CreateIntentParams is the input for opening a gateway payment intent.
type CreateIntentParams struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
	// IdempotencyKey deduplicates retried create calls on the gateway side.
	IdempotencyKey string
}

// Intent is the gateway's view of a payment intent.
type Intent struct {
	ID            string
	Status        string
	ClientSecret  string
	MethodID      string
	MethodDetails map[string]string
	FailureReason string
	FailureCode   string
}

// Gateway is the outbound payment-provider boundary. Implementations must
// bound every call with the request context and an explicit timeout.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, methodID string) (*Intent, error)
	RefundIntent(ctx context.Context, intentID string, amountCents int64) error
}

// Webhook event types the reconciliation service consumes.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded  = "charge.refunded"
)

// Event is a verified, decoded gateway webhook notification. Signature
// verification happens at the transport boundary before an Event exists.
type Event struct {
	ID       string
	Type     string
	IntentID string

	MethodID      string
	MethodDetails map[string]string
	FailureReason string
	FailureCode   string

	// AmountRefundedCents is the gateway's cumulative refunded amount,
	// carried by charge.refunded events.
	AmountRefundedCents int64
}
