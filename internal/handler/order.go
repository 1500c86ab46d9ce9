package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/domain/order"
)

// Identity headers set by the authenticating reverse proxy.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
)

// Checkout places an order. A request carrying a user identity produces a
// user order; otherwise the guest contact bundle from the body is used.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var customer order.Customer
	if userID := r.Header.Get(headerUserID); userID != "" {
		customer = order.ForUser(userID, r.Header.Get(headerUserEmail), req.FirstName, req.LastName)
	} else {
		customer = order.ForGuest(req.Email, req.FirstName, req.LastName, req.Phone)
	}

	currency := req.Currency
	if currency == "" {
		currency = h.defaultCurrency
	}

	draft := order.Draft{
		Customer:        customer,
		Currency:        currency,
		PromoCode:       req.PromoCode,
		BillingAddress:  toAddress(req.BillingAddress),
		ShippingAddress: toAddress(req.ShippingAddress),
		Metadata:        req.Metadata,
	}
	draft.Lines = make([]order.DraftLine, len(req.Items))
	for i, it := range req.Items {
		draft.Lines[i] = order.DraftLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	var err error
	if draft.TaxAmount, err = parseOptionalMoney(req.TaxAmount, currency); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if draft.ShippingAmount, err = parseOptionalMoney(req.ShippingAmount, currency); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if draft.DiscountAmount, err = parseOptionalMoney(req.DiscountAmount, currency); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	o, err := h.orders.Checkout(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.ordersPlaced.Add(r.Context(), 1)
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// GetOrder returns a single order. A user sees their own orders; a guest
// order is accessible with its contact email passed as the email query
// parameter, matched case-insensitively.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if !h.authorizeOrderAccess(r, o) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns recent orders for the authenticated user, or guest
// orders matching the email query parameter.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var (
		found []*order.Order
		err   error
	)
	switch {
	case r.Header.Get(headerUserID) != "":
		found, err = h.orders.FindRecentForUser(r.Context(), r.Header.Get(headerUserID), h.listLimit)
	case r.URL.Query().Get("email") != "":
		found, err = h.orders.FindForGuestEmail(r.Context(), r.URL.Query().Get("email"), h.listLimit)
	default:
		writeError(w, http.StatusBadRequest, "user identity or email parameter required")
		return
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(found))
	for i, o := range found {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ConvertOrder rebinds a guest order to the authenticated user. The caller
// must prove knowledge of the guest contact email.
func (h *Handler) ConvertOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		writeError(w, http.StatusForbidden, "user identity required")
		return
	}

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	number := chi.URLParam(r, "number")
	existing, err := h.orders.GetByNumber(r.Context(), number)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if existing.IsGuestOrder() && !existing.Customer.EmailMatches(req.Email) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	email := r.Header.Get(headerUserEmail)
	if email == "" {
		email = req.Email
	}
	o, err := h.orders.ConvertGuestOrder(r.Context(), number, order.UserRef{
		ID:        userID,
		Email:     email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// UpdateOrderStatus transitions an order's status. Admin only; force
// bypasses the transition graph for corrections.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "number"), order.Status(req.Status), req.Force)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) authorizeOrderAccess(r *http.Request, o *order.Order) bool {
	if id, ok := o.Customer.UserID(); ok {
		return r.Header.Get(headerUserID) == id
	}
	email := r.URL.Query().Get("email")
	return email != "" && o.Customer.EmailMatches(email)
}
