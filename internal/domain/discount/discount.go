package discount

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TypeGold grants a flat bonus quantity. Any other type is interpreted as
// a percentage of the original purchased quantity.
const TypeGold = "gold"

var hundred = decimal.NewFromInt(100)

// Code is a discount code. A soft-deleted code stays resolvable for the
// audit trail; lookups do not filter on DeletedAt.
type Code struct {
	ID        uuid.UUID
	Code      string
	Type      string
	Amount    decimal.Decimal
	CreatedAt time.Time
	DeletedAt *time.Time
}

// BonusQuantity computes the extra quantity granted by this code.
// The percentage variant is always computed against the original quantity,
// before any surcharge adjustment, and rounded to 2 decimal places.
func (c *Code) BonusQuantity(originalQty decimal.Decimal) decimal.Decimal {
	if c.Type == TypeGold {
		return c.Amount
	}
	return originalQty.Mul(c.Amount).Div(hundred).Round(2)
}

// IsDeleted reports whether the code was soft-deleted.
func (c *Code) IsDeleted() bool {
	return c.DeletedAt != nil
}

type Repository interface {
	// GetByCode resolves a code by its case-sensitive key, including
	// soft-deleted rows.
	GetByCode(ctx context.Context, code string) (*Code, error)

	// LinkToOrder records that the discount was applied to the order.
	// Idempotent on (discount_id, order_id).
	LinkToOrder(ctx context.Context, discountID, orderID uuid.UUID) error
}
