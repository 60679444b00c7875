package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/goldshop/checkout/internal/domain/order"
)

// PricingContext is the server-side pricing snapshot stored against the
// buyer's session before checkout. Prices and quantities are never taken
// from the checkout request itself.
type PricingContext struct {
	ProductID    int64           `json:"product_id"`
	ProductTitle string          `json:"product_title"`
	ProductURL   string          `json:"product_url"`
	OrderPrice   decimal.Decimal `json:"order_price"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Currency     string          `json:"currency"`
	Nick         string          `json:"nick"`
	PaymentType  string          `json:"payment_type"`
	DiscountCode string          `json:"discount_code"`
	UserEmail    string          `json:"user_email"`
}

// SessionStore persists pricing contexts keyed by session id.
type SessionStore interface {
	GetPricingContext(ctx context.Context, sessionID string) (*PricingContext, error)
	SavePricingContext(ctx context.Context, sessionID string, pc *PricingContext) error
}

// BlacklistRepository records orders placed by flagged buyers for manual review.
type BlacklistRepository interface {
	AddOrder(ctx context.Context, o *order.Order, reason string) error
}

// Locker serializes work on a shared key across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// NumberSource issues unique order numbers.
type NumberSource interface {
	Next() (string, error)
}
