package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/order"
)

// ErrNothingToCharge is returned when an intent is requested for an order
// with a non-positive total.
var ErrNothingToCharge = errors.New("order total must be positive to create a payment intent")

// Service reconciles local Payment state with the external gateway. It is
// the only writer of Payment rows; every read-modify-write runs under the
// repository's row lock so that synchronous confirm calls and asynchronous
// webhook deliveries for the same intent serialize.
type Service struct {
	payments Repository
	orders   order.Repository
	gateway  Gateway

	now   func() time.Time
	newID func() string
}

// NewService creates a reconciliation Service.
func NewService(payments Repository, orders order.Repository, gateway Gateway) *Service {
	return &Service{
		payments: payments,
		orders:   orders,
		gateway:  gateway,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// CreateIntent opens a gateway payment intent for the order and persists
// the linked Payment row.
//
// Reuse policy: when a Payment already exists for the order and is pending,
// processing or succeeded, that Payment is returned as-is; repeat calls
// never open a second live intent. A prior failed or cancelled attempt is
// replaced by a fresh intent. The gateway call happens before any local
// write, so a gateway failure leaves no orphaned row.
func (s *Service) CreateIntent(ctx context.Context, orderNumber string) (*Payment, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	existing, err := s.payments.GetByOrderID(ctx, o.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "lookup existing payment")
	}
	if existing != nil {
		switch existing.Status {
		case StatusPending, StatusProcessing, StatusSucceeded:
			return existing, nil
		}
	}

	if !o.Total.IsPositive() {
		return nil, ErrNothingToCharge
	}

	customerType := "user"
	if o.IsGuestOrder() {
		customerType = "guest"
	}

	intent, err := s.gateway.CreateIntent(ctx, CreateIntentParams{
		AmountCents: o.Total.Cents(),
		Currency:    o.Total.Currency(),
		Metadata: map[string]string{
			"order_id":      o.ID,
			"order_number":  o.Number,
			"customer_type": customerType,
		},
		IdempotencyKey: o.ID,
	})
	if err != nil {
		return nil, errors.Wrap(ErrGateway, err.Error())
	}

	p, err := New(s.newID(), o.ID, o.Number, intent.ID, o.Total, s.now())
	if err != nil {
		return nil, err
	}
	p.GatewayMetadata = map[string]string{"customer_type": customerType}

	if existing != nil {
		// Replace the dead attempt's row, keeping the 1:1 order link.
		p.ID = existing.ID
		if err := s.payments.Replace(ctx, p); err != nil {
			return nil, errors.Wrap(err, "replace payment")
		}
		return p, nil
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}
	return p, nil
}

// Confirm synchronously confirms the intent with the gateway and applies
// the resulting status. Confirming an already-succeeded payment is an
// idempotent no-op. A declined confirmation persists the failed state and
// surfaces a ProcessingError.
func (s *Service) Confirm(ctx context.Context, intentID, methodID string) (*Payment, error) {
	p, err := s.payments.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusSucceeded {
		return p, nil
	}

	intent, err := s.gateway.ConfirmIntent(ctx, intentID, methodID)
	if err != nil {
		return nil, errors.Wrap(ErrGateway, err.Error())
	}

	now := s.now()
	updated, err := s.payments.UpdateByIntentID(ctx, intentID, func(p *Payment) error {
		return applyIntentStatus(p, intent, now)
	})
	if err != nil {
		return nil, err
	}

	switch updated.Status {
	case StatusSucceeded:
		s.confirmOrder(ctx, updated.OrderNumber)
	case StatusFailed:
		return updated, &ProcessingError{
			IntentID: intentID,
			Reason:   updated.FailureReason,
			Code:     updated.FailureCode,
		}
	}
	return updated, nil
}

// HandleEvent applies a verified webhook event. Events for unknown intents
// are logged and ignored; unhandled event types are ignored. Status
// application is idempotent, so redelivered events and events racing a
// synchronous confirm call are safe.
func (s *Service) HandleEvent(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventIntentSucceeded, EventIntentFailed, EventChargeRefunded:
	default:
		zctx.From(ctx).Debug("Ignoring webhook event type", zap.String("type", ev.Type))
		return nil
	}

	if _, err := s.payments.GetByIntentID(ctx, ev.IntentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			zctx.From(ctx).Warn("Webhook for unknown payment intent",
				zap.String("intent_id", ev.IntentID),
				zap.String("event_id", ev.ID),
			)
			return nil
		}
		return err
	}

	now := s.now()
	updated, err := s.payments.UpdateByIntentID(ctx, ev.IntentID, func(p *Payment) error {
		switch ev.Type {
		case EventIntentSucceeded:
			if err := p.MarkSucceeded(now); err != nil {
				return err
			}
			if ev.MethodID != "" {
				p.MethodID = ev.MethodID
			}
			if len(ev.MethodDetails) > 0 {
				p.MethodDetails = ev.MethodDetails
				p.Method = methodFromDetails(ev.MethodDetails)
			}
			return nil
		case EventIntentFailed:
			return p.MarkFailed(now, ev.FailureReason, ev.FailureCode)
		case EventChargeRefunded:
			return applyCumulativeRefund(p, ev.AmountRefundedCents, now)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if ev.Type == EventIntentSucceeded && updated.Status == StatusSucceeded {
		s.confirmOrder(ctx, updated.OrderNumber)
	}
	if ev.Type == EventChargeRefunded && updated.IsFullyRefunded() {
		s.refundOrder(ctx, updated.OrderNumber)
	}
	return nil
}

// Refund executes an admin-initiated partial or full refund: the gateway
// call first, then the ledger update under the row lock. Webhook-driven
// refunds funnel into the same AddRefund accumulator, so the two paths can
// never double-count.
func (s *Service) Refund(ctx context.Context, intentID string, amount money.Money) (*Payment, error) {
	p, err := s.payments.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusSucceeded && p.Status != StatusPartiallyRefunded {
		return nil, &StateError{Op: "refund", Status: p.Status}
	}

	// Check the refund bound before touching the gateway; the authoritative
	// check runs again inside the locked update.
	prospective, err := p.RefundedAmount.Add(amount)
	if err != nil {
		return nil, err
	}
	if over, err := prospective.GreaterThan(p.Amount); err != nil {
		return nil, err
	} else if over {
		return nil, errors.Wrapf(ErrRefundExceedsAmount, "%s + %s > %s", p.RefundedAmount, amount, p.Amount)
	}

	if err := s.gateway.RefundIntent(ctx, intentID, amount.Cents()); err != nil {
		return nil, errors.Wrap(ErrGateway, err.Error())
	}

	now := s.now()
	updated, err := s.payments.UpdateByIntentID(ctx, intentID, func(p *Payment) error {
		return p.AddRefund(amount, now)
	})
	if err != nil {
		return nil, err
	}

	if updated.IsFullyRefunded() {
		s.refundOrder(ctx, updated.OrderNumber)
	}
	return updated, nil
}

// GetByIntentID returns the payment for a gateway intent id.
func (s *Service) GetByIntentID(ctx context.Context, intentID string) (*Payment, error) {
	return s.payments.GetByIntentID(ctx, intentID)
}

// applyIntentStatus maps a gateway intent snapshot onto the local payment.
// Used by the synchronous confirm path; the webhook path applies the same
// entity methods, so both races resolve identically.
func applyIntentStatus(p *Payment, intent *Intent, now time.Time) error {
	switch intent.Status {
	case IntentSucceeded:
		if err := p.MarkSucceeded(now); err != nil {
			return err
		}
		if intent.MethodID != "" {
			p.MethodID = intent.MethodID
		}
		if len(intent.MethodDetails) > 0 {
			p.MethodDetails = intent.MethodDetails
			p.Method = methodFromDetails(intent.MethodDetails)
		}
		return nil
	case IntentProcessing, IntentRequiresAction, IntentRequiresConfirmation:
		p.MarkProcessing()
		return nil
	case IntentCanceled:
		return p.Cancel()
	default:
		return p.MarkFailed(now, intent.FailureReason, intent.FailureCode)
	}
}

// applyCumulativeRefund reconciles the gateway's cumulative refunded amount
// with the local ledger by applying only the delta. Redelivered events and
// events overlapping an admin refund therefore never double-count.
func applyCumulativeRefund(p *Payment, cumulativeCents int64, now time.Time) error {
	cumulative, err := money.FromCents(cumulativeCents, p.Amount.Currency())
	if err != nil {
		return err
	}
	behind, err := p.RefundedAmount.LessThan(cumulative)
	if err != nil {
		return err
	}
	if !behind {
		return nil
	}
	delta, err := cumulative.Sub(p.RefundedAmount)
	if err != nil {
		return err
	}
	return p.AddRefund(delta, now)
}

func methodFromDetails(details map[string]string) Method {
	switch details["type"] {
	case "card":
		return MethodCard
	case "bank_transfer", "us_bank_account", "sepa_debit":
		return MethodBankTransfer
	case "wallet", "link", "paypal":
		return MethodWallet
	}
	return ""
}

// confirmOrder advances a pending order to confirmed after payment success.
// Failures are logged, not propagated: the payment state is already
// durable and order confirmation converges on the next notification.
func (s *Service) confirmOrder(ctx context.Context, number string) {
	_, err := s.orders.UpdateByNumber(ctx, number, func(o *order.Order) error {
		if o.Status != order.StatusPending {
			return nil
		}
		return o.SetStatus(order.StatusConfirmed, s.now())
	})
	if err != nil {
		zctx.From(ctx).Error("Confirming order after payment success",
			zap.String("order_number", number), zap.Error(err))
	}
}

// refundOrder marks the order refunded once its payment is fully refunded.
func (s *Service) refundOrder(ctx context.Context, number string) {
	_, err := s.orders.UpdateByNumber(ctx, number, func(o *order.Order) error {
		if !o.CanBeRefunded() {
			return nil
		}
		return o.SetStatus(order.StatusRefunded, s.now())
	})
	if err != nil {
		zctx.From(ctx).Error("Marking order refunded",
			zap.String("order_number", number), zap.Error(err))
	}
}
