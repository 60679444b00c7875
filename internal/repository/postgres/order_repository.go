package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/goldshop/checkout/internal/domain/errors"
	"github.com/goldshop/checkout/internal/domain/order"
)

const orderColumns = `id, number, product_id, product_title, product_url,
	        amount, price, quantity, currency, usd_amount,
	        buyer_id, buyer_email, buyer_name, nick,
	        payment, payment_provider, sale_id, transaction_id,
	        status, payment_status, fee, profit, manager_id,
	        ip, city, country, risk, ip_user_type, ip_postal_code,
	        created_at, updated_at`

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new order snapshot.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO orders
		 (id, number, product_id, product_title, product_url,
		  amount, price, quantity, currency, usd_amount,
		  buyer_id, buyer_email, buyer_name, nick,
		  payment, payment_provider, sale_id, transaction_id,
		  status, payment_status, fee, profit, manager_id,
		  ip, city, country, risk, ip_user_type, ip_postal_code,
		  created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
		         $19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31)`,
		o.ID, o.Number, o.ProductID, o.ProductTitle, o.ProductURL,
		o.Amount, o.Price, o.Quantity, o.Currency, o.USDAmount,
		o.BuyerID, o.BuyerEmail, o.BuyerName, o.Nick,
		o.Payment, o.PaymentProvider, o.SaleID, o.TransactionID,
		string(o.Status), string(o.PaymentStatus), o.Fee, o.Profit, o.ManagerID,
		o.IP, o.City, o.Country, o.Risk, o.IPUserType, o.IPPostalCode,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetByNumber retrieves an order by its public order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE number = $1`, number))
}

// Update persists the mutable fields of an order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET
		  status=$1, payment_status=$2, sale_id=$3, transaction_id=$4,
		  fee=$5, profit=$6, manager_id=$7, updated_at=$8
		 WHERE id=$9`,
		string(o.Status), string(o.PaymentStatus), o.SaleID, o.TransactionID,
		o.Fee, o.Profit, o.ManagerID, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}

// AddStatusHistory appends a status audit row.
func (r *OrderRepository) AddStatusHistory(ctx context.Context, h *order.StatusHistory) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO order_status_history (id, order_id, status, created_at)
		 VALUES ($1, $2, $3, $4)`,
		h.ID, h.OrderID, string(h.Status), h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *OrderRepository) scanOrder(row scanner) (*order.Order, error) {
	var o order.Order
	var status, paymentStatus string

	err := row.Scan(
		&o.ID, &o.Number, &o.ProductID, &o.ProductTitle, &o.ProductURL,
		&o.Amount, &o.Price, &o.Quantity, &o.Currency, &o.USDAmount,
		&o.BuyerID, &o.BuyerEmail, &o.BuyerName, &o.Nick,
		&o.Payment, &o.PaymentProvider, &o.SaleID, &o.TransactionID,
		&status, &paymentStatus, &o.Fee, &o.Profit, &o.ManagerID,
		&o.IP, &o.City, &o.Country, &o.Risk, &o.IPUserType, &o.IPPostalCode,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return &o, nil
}
