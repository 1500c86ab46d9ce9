package stripe

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/payment"
)

func TestClient_CreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.Equal(t, "order-1", r.Header.Get("Idempotency-Key"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "11850", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "ORD-20260301-ABC123", r.PostForm.Get("metadata[order_number]"))

		w.Write([]byte(`{"id":"pi_1","status":"requires_confirmation","client_secret":"pi_1_secret"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk_test_123", BaseURL: srv.URL})
	intent, err := c.CreateIntent(t.Context(), payment.CreateIntentParams{
		AmountCents:    11850,
		Currency:       "USD",
		Metadata:       map[string]string{"order_number": "ORD-20260301-ABC123"},
		IdempotencyKey: "order-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, payment.IntentRequiresConfirmation, intent.Status)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
}

func TestClient_ConfirmIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_1/confirm", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "pm_9", r.PostForm.Get("payment_method"))

		w.Write([]byte(`{"id":"pi_1","status":"succeeded","payment_method":"pm_9"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk_test_123", BaseURL: srv.URL})
	intent, err := c.ConfirmIntent(t.Context(), "pi_1", "pm_9")
	require.NoError(t, err)
	assert.Equal(t, payment.IntentSucceeded, intent.Status)
	assert.Equal(t, "pm_9", intent.MethodID)
}

func TestClient_RefundIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/refunds", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "pi_1", r.PostForm.Get("payment_intent"))
		assert.Equal(t, "3000", r.PostForm.Get("amount"))

		w.Write([]byte(`{"id":"re_1","status":"succeeded","payment_intent":"pi_1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk_test_123", BaseURL: srv.URL})
	require.NoError(t, c.RefundIntent(t.Context(), "pi_1", 3000))
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"Your card was declined.","code":"card_declined"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk_test_123", BaseURL: srv.URL})
	_, err := c.CreateIntent(t.Context(), payment.CreateIntentParams{AmountCents: 100, Currency: "USD"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card_declined")
	assert.Contains(t, err.Error(), "Your card was declined.")
}
