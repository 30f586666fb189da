package store

import (
	"context"
	"errors"

	"thuchi/internal/core"
)

// ErrNotFound is returned when a transaction or profile does not exist.
var ErrNotFound = errors.New("not found")

// Ports for the transaction store. Backends implement these against the
// remote document database, the local SQLite buffer, or plain memory.
type (
	TransactionWriter interface {
		// Append stores a new transaction for the user and returns the
		// store-assigned id.
		Append(ctx context.Context, userID string, tx core.Transaction) (id string, err error)
	}

	TransactionDeleter interface {
		Delete(ctx context.Context, userID, id string) error
	}

	TransactionLister interface {
		// ListAll returns the full, unfiltered transaction list for the
		// user. Period filtering is the aggregation pipeline's job, not the
		// store's.
		ListAll(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	// TransactionWatcher delivers full-list snapshots whenever the user's
	// transactions change. Each snapshot replaces the previous one. The
	// returned cancel func closes the subscription; no snapshot is
	// delivered after it returns.
	TransactionWatcher interface {
		Watch(ctx context.Context, userID string) (<-chan []core.Transaction, func(), error)
	}

	ProfileReader interface {
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
	}

	ProfileWriter interface {
		PutProfile(ctx context.Context, p core.Profile) error
		UpdateName(ctx context.Context, userID, name string) error
	}
)

// Store is the full backend surface the application wires together.
type Store interface {
	TransactionWriter
	TransactionDeleter
	TransactionLister
	TransactionWatcher
	ProfileReader
	ProfileWriter
}
