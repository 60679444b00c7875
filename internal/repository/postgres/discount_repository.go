package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goldshop/checkout/internal/domain/discount"
	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
)

// DiscountRepository implements discount.Repository using PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository creates a new DiscountRepository.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

func (r *DiscountRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// GetByCode resolves a code by its key. Soft-deleted rows are returned too,
// so callers can still see codes that were retired after being handed out.
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*discount.Code, error) {
	var c discount.Code
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, code, type, amount, created_at, deleted_at
		 FROM discount_codes WHERE code = $1`, code,
	).Scan(&c.ID, &c.Code, &c.Type, &c.Amount, &c.CreatedAt, &c.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrDiscountNotFound
		}
		return nil, fmt.Errorf("get discount code: %w", err)
	}
	return &c, nil
}

// LinkToOrder records the discount-to-order application. Replays of the same
// pair are absorbed by the unique constraint.
func (r *DiscountRepository) LinkToOrder(ctx context.Context, discountID, orderID uuid.UUID) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO discount_to_order (id, discount_id, order_id, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (discount_id, order_id) DO NOTHING`,
		uuid.New(), discountID, orderID,
	)
	if err != nil {
		return fmt.Errorf("link discount to order: %w", err)
	}
	return nil
}
