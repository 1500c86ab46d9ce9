package stripe

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-api/internal/domain/payment"
)

// ErrMalformedEvent is returned when a webhook payload does not carry the
// expected envelope shape.
var ErrMalformedEvent = errors.New("malformed webhook event")

// object is the decoded data.object of an event, or a direct API response.
// The gateway puts a payment intent there for payment_intent.* events and a
// charge for charge.* events; the fields overlap enough to share a decoder.
type object struct {
	ID            string
	Status        string
	ClientSecret  string
	MethodID      string
	MethodType    string
	PaymentIntent string
	AmountRefund  int64
	FailureReason string
	FailureCode   string
}

func (o *object) toIntent() *payment.Intent {
	intent := &payment.Intent{
		ID:            o.ID,
		Status:        o.Status,
		ClientSecret:  o.ClientSecret,
		MethodID:      o.MethodID,
		FailureReason: o.FailureReason,
		FailureCode:   o.FailureCode,
	}
	if o.MethodType != "" {
		intent.MethodDetails = map[string]string{"type": o.MethodType}
	}
	return intent
}

// ParseEvent decodes a verified webhook payload into a domain event.
// Signature verification must happen before calling this.
func ParseEvent(payload []byte) (payment.Event, error) {
	var (
		ev  payment.Event
		obj *object
	)

	d := jx.DecodeBytes(payload)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			s, err := d.Str()
			ev.ID = s
			return err
		case "type":
			s, err := d.Str()
			ev.Type = s
			return err
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "object" {
					return d.Skip()
				}
				o, err := decodeObject(d)
				obj = o
				return err
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return payment.Event{}, errors.Wrap(ErrMalformedEvent, err.Error())
	}
	if ev.Type == "" || obj == nil || obj.ID == "" {
		return payment.Event{}, ErrMalformedEvent
	}

	// charge.* events reference their intent via payment_intent; for
	// payment_intent.* events the object id is the intent id itself.
	ev.IntentID = obj.ID
	if obj.PaymentIntent != "" {
		ev.IntentID = obj.PaymentIntent
	}
	ev.MethodID = obj.MethodID
	if obj.MethodType != "" {
		ev.MethodDetails = map[string]string{"type": obj.MethodType}
	}
	ev.FailureReason = obj.FailureReason
	ev.FailureCode = obj.FailureCode
	ev.AmountRefundedCents = obj.AmountRefund
	return ev, nil
}

func parseObject(body []byte) (*object, error) {
	d := jx.DecodeBytes(body)
	obj, err := decodeObject(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode gateway object")
	}
	return obj, nil
}

func decodeObject(d *jx.Decoder) (*object, error) {
	var o object
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			s, err := d.Str()
			o.ID = s
			return err
		case "status":
			s, err := d.Str()
			o.Status = s
			return err
		case "client_secret":
			s, err := d.Str()
			o.ClientSecret = s
			return err
		case "payment_method":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			o.MethodID = s
			return err
		case "payment_intent":
			if d.Next() == jx.Null {
				return d.Null()
			}
			s, err := d.Str()
			o.PaymentIntent = s
			return err
		case "amount_refunded":
			n, err := d.Int64()
			o.AmountRefund = n
			return err
		case "payment_method_details":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "type" {
					return d.Skip()
				}
				s, err := d.Str()
				o.MethodType = s
				return err
			})
		case "last_payment_error":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "message":
					s, err := d.Str()
					o.FailureReason = s
					return err
				case "code":
					s, err := d.Str()
					o.FailureCode = s
					return err
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}
