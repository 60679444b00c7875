package service

import "context"

// TransactionManager wraps multiple repository operations in one database
// transaction.
type TransactionManager interface {
	// WithTransaction runs fn inside a transaction. An error from fn rolls
	// the transaction back, otherwise it is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
