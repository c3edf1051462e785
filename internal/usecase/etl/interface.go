package etl

import (
	"context"
	"time"

	domain "user-etl/internal/domain/user"
)

// Faker supplies synthetic field values. *gofakeit.Faker satisfies it.
type Faker interface {
	Name() string
	Email() string
	DateRange(start, end time.Time) time.Time
}

// Repository defines the destination store operations used by the loader.
// Each call commits on its own.
type Repository interface {
	EnsureTable(ctx context.Context) error                                                   // Create the users table if missing
	Truncate(ctx context.Context) error                                                      // Remove all rows and restart the key sequence
	InsertUsers(ctx context.Context, users []domain.Persisted, batchSize int) ([]int64, error) // Insert in order, returning assigned keys
	Close() error                                                                            // Release the connection
}

// ConnectFunc opens a fresh connection to the destination store.
type ConnectFunc func(ctx context.Context) (Repository, error)
