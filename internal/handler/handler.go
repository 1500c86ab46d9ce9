// Package handler exposes the storefront over HTTP: catalog reads, checkout,
// order access, payment intents and the gateway webhook. It owns the mapping
// from domain errors to transport status codes.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// WebhookSecret is the shared secret for webhook signature verification.
	WebhookSecret []byte
	// WebhookTolerance bounds the accepted age of webhook timestamps.
	WebhookTolerance time.Duration
	// DefaultCurrency applies to drafts that do not name a currency.
	DefaultCurrency string
	// ListLimit caps order list responses.
	ListLimit int
}

// Handler serves the HTTP API, delegating business logic to the checkout and
// payment services.
type Handler struct {
	products product.Repository
	orders   *order.Service
	payments *payment.Service

	webhookSecret    []byte
	webhookTolerance time.Duration
	defaultCurrency  string
	listLimit        int

	ordersPlaced  metric.Int64Counter
	webhookEvents metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	meter metric.Meter,
	products product.Repository,
	orders *order.Service,
	payments *payment.Service,
) (*Handler, error) {
	ordersPlaced, err := meter.Int64Counter("storefront.orders.placed")
	if err != nil {
		return nil, err
	}
	webhookEvents, err := meter.Int64Counter("storefront.webhook.events")
	if err != nil {
		return nil, err
	}

	limit := cfg.ListLimit
	if limit <= 0 {
		limit = 50
	}
	return &Handler{
		products:         products,
		orders:           orders,
		payments:         payments,
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: cfg.WebhookTolerance,
		defaultCurrency:  cfg.DefaultCurrency,
		listLimit:        limit,
		ordersPlaced:     ordersPlaced,
		webhookEvents:    webhookEvents,
	}, nil
}

// Routes mounts the API on a chi router. Admin routes go through the given
// auth middleware; the webhook route authenticates by signature instead.
func (h *Handler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)

	r.Post("/api/orders", h.Checkout)
	r.Get("/api/orders", h.ListOrders)
	r.Get("/api/orders/{number}", h.GetOrder)
	r.Post("/api/orders/{number}/convert", h.ConvertOrder)

	r.Post("/api/payments/intents", h.CreateIntent)
	r.Post("/api/payments/intents/{intentID}/confirm", h.ConfirmPayment)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Put("/api/orders/{number}/status", h.UpdateOrderStatus)
		r.Post("/api/payments/intents/{intentID}/refund", h.RefundPayment)
	})

	r.Post("/webhooks/payment", h.Webhook)

	return r
}
