package controller

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/goldshop/checkout/internal/domain/order"
)

// --- Response DTOs ---
// Monetary values serialize through shopspring decimal, which renders as
// JSON strings and never loses cents to float rounding.

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	ProductID       int64           `json:"product_id"`
	ProductTitle    string          `json:"product_title"`
	Amount          decimal.Decimal `json:"amount"`
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"quantity"`
	Currency        string          `json:"currency"`
	USDAmount       decimal.Decimal `json:"usd_amount"`
	BuyerID         *string         `json:"buyer_id,omitempty"`
	BuyerEmail      string          `json:"buyer_email"`
	BuyerName       string          `json:"buyer_name,omitempty"`
	Nick            string          `json:"nick,omitempty"`
	Payment         string          `json:"payment"`
	PaymentProvider string          `json:"payment_provider"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	Fee             decimal.Decimal `json:"fee"`
	Profit          decimal.Decimal `json:"profit"`
	City            string          `json:"city,omitempty"`
	Country         string          `json:"country,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FromOrder converts a domain order to an API response.
func FromOrder(o *order.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:              o.ID.String(),
		Number:          o.Number,
		ProductID:       o.ProductID,
		ProductTitle:    o.ProductTitle,
		Amount:          o.Amount,
		Price:           o.Price,
		Quantity:        o.Quantity,
		Currency:        o.Currency,
		USDAmount:       o.USDAmount,
		BuyerEmail:      o.BuyerEmail,
		BuyerName:       o.BuyerName,
		Nick:            o.Nick,
		Payment:         o.Payment,
		PaymentProvider: o.PaymentProvider,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		Fee:             o.Fee,
		Profit:          o.Profit,
		City:            o.City,
		Country:         o.Country,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.BuyerID != nil {
		bid := o.BuyerID.String()
		resp.BuyerID = &bid
	}
	return resp
}
