// Package stripe implements the payment gateway boundary against a
// Stripe-compatible HTTP API: intent creation/confirmation, refunds, and
// webhook signature verification.
package stripe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-api/internal/domain/payment"
)

// Compile-time check ensuring Client satisfies the gateway interface.
var _ payment.Gateway = (*Client)(nil)

// Config holds the gateway client configuration.
type Config struct {
	// APIKey is the secret key sent as a bearer token.
	APIKey string
	// BaseURL is the API root, e.g. https://api.stripe.com. Overridable for
	// tests and mock gateways.
	BaseURL string
	// Timeout bounds every outbound request. The core performs no
	// transparent retries; on exhaustion the failure surfaces to the caller.
	Timeout time.Duration
}

// Client talks to the gateway's REST API with form-encoded requests.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a gateway client with an explicit request timeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// CreateIntent opens a payment intent. The idempotency key makes retried
// calls return the original intent instead of opening a duplicate.
func (c *Client) CreateIntent(ctx context.Context, params payment.CreateIntentParams) (*payment.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.AmountCents, 10))
	form.Set("currency", strings.ToLower(params.Currency))
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	headers := map[string]string{}
	if params.IdempotencyKey != "" {
		headers["Idempotency-Key"] = params.IdempotencyKey
	}
	return c.postIntent(ctx, "/v1/payment_intents", form, headers)
}

// ConfirmIntent confirms an intent, optionally attaching a payment method.
func (c *Client) ConfirmIntent(ctx context.Context, intentID, methodID string) (*payment.Intent, error) {
	form := url.Values{}
	if methodID != "" {
		form.Set("payment_method", methodID)
	}
	return c.postIntent(ctx, "/v1/payment_intents/"+url.PathEscape(intentID)+"/confirm", form, nil)
}

// RefundIntent requests a partial or full refund against an intent.
func (c *Client) RefundIntent(ctx context.Context, intentID string, amountCents int64) error {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	form.Set("amount", strconv.FormatInt(amountCents, 10))

	body, err := c.post(ctx, "/v1/refunds", form, nil)
	if err != nil {
		return err
	}
	_, err = parseObject(body)
	return err
}

func (c *Client) postIntent(ctx context.Context, path string, form url.Values, headers map[string]string) (*payment.Intent, error) {
	body, err := c.post(ctx, path, form, headers)
	if err != nil {
		return nil, err
	}
	obj, err := parseObject(body)
	if err != nil {
		return nil, err
	}
	return obj.toIntent(), nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "gateway request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read gateway response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, code := parseAPIError(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, errors.Errorf("gateway responded %d (%s): %s", resp.StatusCode, code, msg)
	}
	return body, nil
}

// parseAPIError extracts {error:{message,code}} from a gateway error body.
func parseAPIError(body []byte) (msg, code string) {
	d := jx.DecodeBytes(body)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "message":
				s, err := d.Str()
				msg = s
				return err
			case "code":
				s, err := d.Str()
				code = s
				return err
			default:
				return d.Skip()
			}
		})
	})
	return msg, code
}
