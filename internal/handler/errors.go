package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/promo"
	"github.com/xenking/storefront-api/internal/gateway/stripe"
)

// errorResponse is the wire shape for every non-2xx response.
type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message, Status: status})
}

// writeDomainError maps a domain error to its transport status. Unknown
// errors become an opaque 500; internals never reach the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if status, message, ok := mapDomainError(err); ok {
		writeError(w, status, message)
		return
	}
	zctx.From(r.Context()).Error("Unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func mapDomainError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, err.Error(), true

	case errors.Is(err, order.ErrAlreadyConverted):
		return http.StatusConflict, err.Error(), true

	case errors.Is(err, payment.ErrGateway):
		return http.StatusPaymentRequired, "payment gateway error", true

	case errors.Is(err, payment.ErrNothingToCharge),
		errors.Is(err, payment.ErrRefundExceedsAmount),
		errors.Is(err, payment.ErrRefundCurrency),
		errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, order.ErrGuestContactRequired),
		errors.Is(err, order.ErrUserRequired),
		errors.Is(err, order.ErrCurrencyMismatch),
		errors.Is(err, promo.ErrInvalidCode),
		errors.Is(err, promo.ErrExpired),
		errors.Is(err, promo.ErrUsageLimitReached),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrNegativeAmount),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, stripe.ErrMalformedEvent):
		return http.StatusBadRequest, err.Error(), true
	}

	var (
		invalidQty  *order.InvalidQuantityError
		notFound    *order.ProductNotFoundError
		unavailable *order.ProductUnavailableError
		invalidSt   *order.InvalidStatusError
		transition  *order.TransitionError
		state       *payment.StateError
		processing  *payment.ProcessingError
	)
	switch {
	case errors.As(err, &invalidQty),
		errors.As(err, &notFound),
		errors.As(err, &unavailable),
		errors.As(err, &invalidSt):
		return http.StatusBadRequest, err.Error(), true
	case errors.As(err, &transition), errors.As(err, &state):
		return http.StatusConflict, err.Error(), true
	case errors.As(err, &processing):
		return http.StatusPaymentRequired, processing.Error(), true
	}
	return 0, "", false
}
