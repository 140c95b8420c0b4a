package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the per-aggregate repositories bound to one database
// handle, either the pool or an open transaction.
type Repositories struct {
	Products ProductRepository
	Carts    CartRepository
	Orders   OrderRepository
	Payments PaymentRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repositories
	// WithinTransaction runs fn against repositories bound to a single
	// transaction. A non-nil error from fn rolls everything back and is
	// returned unchanged.
	WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Repos() Repositories {
	return newRepositories(s.db)
}

func (s *GormStore) WithinTransaction(ctx context.Context, fn func(repos Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Products: NewGormProductRepository(db),
		Carts:    NewGormCartRepository(db),
		Orders:   NewGormOrderRepository(db),
		Payments: NewGormPaymentRepository(db),
	}
}
