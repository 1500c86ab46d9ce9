package handler

import (
	"time"

	"github.com/xenking/storefront-api/internal/domain/money"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/payment"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Request types.

type checkoutRequest struct {
	Items    []checkoutItem `json:"items"`
	Currency string         `json:"currency,omitempty"`

	// Guest contact bundle; ignored when the request carries a user identity.
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`

	TaxAmount      *string `json:"taxAmount,omitempty"`
	ShippingAmount *string `json:"shippingAmount,omitempty"`
	DiscountAmount *string `json:"discountAmount,omitempty"`
	PromoCode      string  `json:"promoCode,omitempty"`

	BillingAddress  *addressDTO       `json:"billingAddress,omitempty"`
	ShippingAddress *addressDTO       `json:"shippingAddress,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type checkoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type convertRequest struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
	Force  bool   `json:"force,omitempty"`
}

type createIntentRequest struct {
	OrderNumber string `json:"orderNumber"`
}

type confirmRequest struct {
	PaymentMethodID string `json:"paymentMethodId,omitempty"`
}

type refundRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Response types. Monetary amounts are fixed-point decimal strings.

type addressDTO struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type orderResponse struct {
	Number   string `json:"number"`
	Status   string `json:"status"`
	Currency string `json:"currency"`

	Guest     bool   `json:"guest"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`

	Subtotal       string `json:"subtotal"`
	TaxAmount      string `json:"taxAmount"`
	ShippingAmount string `json:"shippingAmount"`
	DiscountAmount string `json:"discountAmount"`
	Total          string `json:"total"`

	Items           []orderItemResponse `json:"items"`
	BillingAddress  *addressDTO         `json:"billingAddress,omitempty"`
	ShippingAddress *addressDTO         `json:"shippingAddress,omitempty"`
	Metadata        map[string]string   `json:"metadata,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
}

type orderItemResponse struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	ProductSKU  string `json:"productSku,omitempty"`
	UnitPrice   string `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	TotalPrice  string `json:"totalPrice"`
}

type paymentResponse struct {
	OrderNumber    string `json:"orderNumber"`
	IntentID       string `json:"intentId"`
	Status         string `json:"status"`
	Method         string `json:"method,omitempty"`
	Amount         string `json:"amount"`
	RefundedAmount string `json:"refundedAmount"`
	Currency       string `json:"currency"`
	FailureReason  string `json:"failureReason,omitempty"`
	FailureCode    string `json:"failureCode,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	FailedAt   *time.Time `json:"failedAt,omitempty"`
	RefundedAt *time.Time `json:"refundedAt,omitempty"`
}

type productResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Category string `json:"category,omitempty"`
	Active   bool   `json:"active"`
}

// Mapping.

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		Number:         o.Number,
		Status:         string(o.Status),
		Currency:       o.Currency,
		Guest:          o.IsGuestOrder(),
		Email:          o.Customer.Email(),
		Name:           o.Customer.Name(),
		FirstName:      o.Customer.FirstName(),
		LastName:       o.Customer.LastName(),
		Phone:          o.Customer.Phone(),
		Subtotal:       o.Subtotal.Amount(),
		TaxAmount:      o.TaxAmount.Amount(),
		ShippingAmount: o.ShippingAmount.Amount(),
		DiscountAmount: o.DiscountAmount.Amount(),
		Total:          o.Total.Amount(),
		Metadata:       o.Metadata,
		CreatedAt:      o.CreatedAt,
		ConfirmedAt:    o.ConfirmedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
	}
	if id, ok := o.Customer.UserID(); ok {
		resp.UserID = id
	}
	resp.BillingAddress = toAddressDTO(o.BillingAddress)
	resp.ShippingAddress = toAddressDTO(o.ShippingAddress)

	resp.Items = make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		resp.Items[i] = orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			UnitPrice:   it.UnitPrice.Amount(),
			Quantity:    it.Quantity,
			TotalPrice:  it.TotalPrice.Amount(),
		}
	}
	return resp
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		OrderNumber:    p.OrderNumber,
		IntentID:       p.IntentID,
		Status:         string(p.Status),
		Method:         string(p.Method),
		Amount:         p.Amount.Amount(),
		RefundedAmount: p.RefundedAmount.Amount(),
		Currency:       p.Amount.Currency(),
		FailureReason:  p.FailureReason,
		FailureCode:    p.FailureCode,
		CreatedAt:      p.CreatedAt,
		PaidAt:         p.PaidAt,
		FailedAt:       p.FailedAt,
		RefundedAt:     p.RefundedAt,
	}
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		SKU:      p.SKU,
		Price:    p.Price.Amount(),
		Currency: p.Price.Currency(),
		Category: p.Category,
		Active:   p.Active,
	}
}

func toAddressDTO(a *order.Address) *addressDTO {
	if a == nil {
		return nil
	}
	return &addressDTO{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func toAddress(a *addressDTO) *order.Address {
	if a == nil {
		return nil
	}
	return &order.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// parseOptionalMoney converts an optional decimal-string field.
func parseOptionalMoney(s *string, currency string) (*money.Money, error) {
	if s == nil {
		return nil, nil
	}
	m, err := money.New(*s, currency)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
