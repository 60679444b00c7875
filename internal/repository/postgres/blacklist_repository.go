package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goldshop/checkout/internal/domain/order"
)

// BlacklistRepository records orders placed by flagged buyers.
type BlacklistRepository struct {
	pool *pgxpool.Pool
}

// NewBlacklistRepository creates a new BlacklistRepository.
func NewBlacklistRepository(pool *pgxpool.Pool) *BlacklistRepository {
	return &BlacklistRepository{pool: pool}
}

func (r *BlacklistRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// AddOrder inserts a review row for the order. The order itself proceeds
// through checkout; the row only queues it for manual inspection.
func (r *BlacklistRepository) AddOrder(ctx context.Context, o *order.Order, reason string) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO black_list (id, order_id, buyer_email, ip, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.New(), o.ID, o.BuyerEmail, o.IP, reason,
	)
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}
