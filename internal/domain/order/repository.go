package order

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts a new order snapshot.
	Create(ctx context.Context, o *Order) error

	// GetByID retrieves an order by its ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByNumber retrieves an order by its public order number.
	GetByNumber(ctx context.Context, number string) (*Order, error)

	// Update persists the mutable fields (status, refund and settlement data).
	Update(ctx context.Context, o *Order) error

	// AddStatusHistory appends a status audit row.
	AddStatusHistory(ctx context.Context, h *StatusHistory) error
}
