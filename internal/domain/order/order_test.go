package order

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
)

func validOrder() *Order {
	return &Order{
		Number:     "k4q2w8",
		Amount:     decimal.RequireFromString("10.00"),
		Price:      decimal.RequireFromString("0.10"),
		Quantity:   decimal.RequireFromString("100"),
		Currency:   "USD",
		USDAmount:  decimal.RequireFromString("10.00"),
		BuyerEmail: "buyer@example.com",
		Status:     StatusCreated,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr error
	}{
		{"valid", func(o *Order) {}, nil},
		{"negative amount", func(o *Order) { o.Amount = decimal.NewFromInt(-1) }, domainErrors.ErrInvalidAmount},
		{"negative quantity", func(o *Order) { o.Quantity = decimal.NewFromInt(-1) }, domainErrors.ErrInvalidAmount},
		{"bad currency", func(o *Order) { o.Currency = "EURO" }, domainErrors.ErrInvalidCurrency},
		{"missing email", func(o *Order) { o.BuyerEmail = "" }, domainErrors.ErrEmailRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOrder()
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTransitions(t *testing.T) {
	o := validOrder()

	require.NoError(t, o.MarkDelivered())
	assert.Equal(t, StatusDelivered, o.Status)

	require.NoError(t, o.MarkRefunded())
	assert.Equal(t, StatusRefunded, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)

	// Refunded is terminal.
	err := o.MarkDelivered()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainErrors.ErrInvalidStateTransition))
}

func TestMarkRefunded_Twice(t *testing.T) {
	o := validOrder()
	require.NoError(t, o.MarkRefunded())

	err := o.MarkRefunded()
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
}

func TestNewStatusHistory(t *testing.T) {
	o := validOrder()
	require.NoError(t, o.MarkRefunded())

	h := o.NewStatusHistory()
	assert.Equal(t, o.ID, h.OrderID)
	assert.Equal(t, StatusRefunded, h.Status)
	assert.False(t, h.CreatedAt.IsZero())
}
