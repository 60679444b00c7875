package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldshop/checkout/internal/domain/discount"
	"github.com/goldshop/checkout/internal/domain/order"
)

func NewTestOrder(number, provider string, amount, quantity string, currency string) *order.Order {
	now := time.Now()
	return &order.Order{
		ID:              uuid.New(),
		Number:          number,
		ProductID:       1,
		ProductTitle:    "Gold",
		ProductURL:      "https://shop.example.test/gold",
		Amount:          decimal.RequireFromString(amount),
		Price:           decimal.RequireFromString("0.07"),
		Quantity:        decimal.RequireFromString(quantity),
		Currency:        currency,
		USDAmount:       decimal.RequireFromString(amount),
		BuyerEmail:      "buyer@example.test",
		BuyerName:       "Buyer",
		Payment:         provider,
		PaymentProvider: provider,
		SaleID:          "sale-" + number,
		TransactionID:   "trn-" + number,
		Status:          order.StatusCreated,
		PaymentStatus:   order.PaymentComplete,
		Fee:             decimal.Zero,
		Profit:          decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func NewTestDiscount(code, discountType, amount string) *discount.Code {
	return &discount.Code{
		ID:        uuid.New(),
		Code:      code,
		Type:      discountType,
		Amount:    decimal.RequireFromString(amount),
		CreatedAt: time.Now(),
	}
}

func UUIDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
