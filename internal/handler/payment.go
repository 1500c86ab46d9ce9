package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/gateway/stripe"
)

const maxWebhookBody = 1 << 20

// CreateIntent opens (or returns the existing) payment intent for an order.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderNumber == "" {
		writeError(w, http.StatusBadRequest, "orderNumber is required")
		return
	}

	p, err := h.payments.CreateIntent(r.Context(), req.OrderNumber)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

// ConfirmPayment synchronously confirms an intent with the gateway.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	p, err := h.payments.Confirm(r.Context(), chi.URLParam(r, "intentID"), req.PaymentMethodID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

// RefundPayment executes an admin-initiated partial or full refund.
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := money.New(req.Amount, req.Currency)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	p, err := h.payments.Refund(r.Context(), chi.URLParam(r, "intentID"), amount)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

// Webhook receives gateway event deliveries. The signature is verified
// against the raw body before any parsing or lookup; an invalid signature
// is rejected outright. Processing failures return 500 so the gateway
// redelivers; event application is idempotent, so redelivery is safe.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	err = stripe.VerifySignature(body, r.Header.Get(stripe.SignatureHeader),
		h.webhookSecret, time.Now(), h.webhookTolerance)
	if err != nil {
		h.webhookEvents.Add(r.Context(), 1, metric.WithAttributes(
			attribute.String("result", "rejected")))
		zctx.From(r.Context()).Warn("Webhook signature rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := stripe.ParseEvent(body)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	if err := h.payments.HandleEvent(r.Context(), ev); err != nil {
		h.webhookEvents.Add(r.Context(), 1, metric.WithAttributes(
			attribute.String("result", "error"),
			attribute.String("type", ev.Type)))
		zctx.From(r.Context()).Error("Webhook event failed",
			zap.String("event_id", ev.ID), zap.String("type", ev.Type), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}

	h.webhookEvents.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("result", "ok"),
		attribute.String("type", ev.Type)))
	w.WriteHeader(http.StatusOK)
}
