package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/payment"
)

func TestParseEvent_IntentSucceeded(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_123",
				"object": "payment_intent",
				"status": "succeeded",
				"payment_method": "pm_456",
				"last_payment_error": null
			}
		}
	}`)

	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, payment.EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.IntentID)
	assert.Equal(t, "pm_456", ev.MethodID)
}

func TestParseEvent_IntentFailed(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"type": "payment_intent.payment_failed",
		"data": {
			"object": {
				"id": "pi_123",
				"status": "requires_payment_method",
				"last_payment_error": {
					"message": "Your card was declined.",
					"code": "card_declined"
				}
			}
		}
	}`)

	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, payment.EventIntentFailed, ev.Type)
	assert.Equal(t, "pi_123", ev.IntentID)
	assert.Equal(t, "Your card was declined.", ev.FailureReason)
	assert.Equal(t, "card_declined", ev.FailureCode)
}

func TestParseEvent_ChargeRefunded(t *testing.T) {
	payload := []byte(`{
		"id": "evt_3",
		"type": "charge.refunded",
		"data": {
			"object": {
				"id": "ch_789",
				"payment_intent": "pi_123",
				"amount_refunded": 2500,
				"payment_method_details": {"type": "card"}
			}
		}
	}`)

	ev, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, payment.EventChargeRefunded, ev.Type)
	// charge events carry the intent id indirectly.
	assert.Equal(t, "pi_123", ev.IntentID)
	assert.Equal(t, int64(2500), ev.AmountRefundedCents)
	assert.Equal(t, map[string]string{"type": "card"}, ev.MethodDetails)
}

func TestParseEvent_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{{{`},
		{"missing type", `{"id":"evt_1","data":{"object":{"id":"pi_1"}}}`},
		{"missing object", `{"id":"evt_1","type":"payment_intent.succeeded","data":{}}`},
		{"empty object id", `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"status":"succeeded"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}
