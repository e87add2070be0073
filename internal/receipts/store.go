// Package receipts defines the persistence layer for Receipts: create,
// fetch by id, list with pagination and optional status filter, count,
// update (confirmation-resume flow only), delete, and the
// time-ordered "recent" view. Grounded verbatim in shape on
// registry/store/store.go's Store interface; available implementations are
// memory (this package's memory subpackage), mongostore, and redisstore.
package receipts

import (
	"context"
	"errors"

	"github.com/kparnell/intentd/internal/model"
)

// ErrNotFound is returned when a receipt is not found in the store.
var ErrNotFound = errors.New("receipt not found")

// ListFilter narrows List to receipts matching a status, most-recent first.
// An empty Status matches every receipt.
type ListFilter struct {
	Status model.ReceiptStatus
	Limit  int
	Offset int
}

// Store defines the persistence layer for receipts. Implementations must be
// safe for concurrent use.
type Store interface {
	// Create persists a new receipt. Returns an error if a receipt with the
	// same ReceiptID already exists.
	Create(ctx context.Context, r *model.Receipt) error

	// Get retrieves a receipt by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*model.Receipt, error)

	// Update replaces a receipt's stored state wholesale. Used only by the
	// confirmation-resume flow. Receipts from execute and undo are stored
	// once via Create by the HTTP handlers and never updated; the Executor
	// itself does not touch the store.
	Update(ctx context.Context, r *model.Receipt) error

	// Delete removes a receipt by id. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// List returns receipts matching filter, most-recent first.
	List(ctx context.Context, filter ListFilter) ([]*model.Receipt, error)

	// Count returns the number of stored receipts matching status. An
	// empty status counts every receipt.
	Count(ctx context.Context, status model.ReceiptStatus) (int, error)

	// GetRecent returns the n most recently created receipts, most-recent
	// first.
	GetRecent(ctx context.Context, n int) ([]*model.Receipt, error)

	// Migrate idempotently brings the backend's schema up to date: it
	// records applied migrations in a ledger and is safe to call on every
	// process start, including against a store a prior version already
	// migrated. Backends with no schema of their own (memory) treat it as
	// a no-op.
	Migrate(ctx context.Context) error

	// Close releases any resources (connections, clients) held by the
	// store.
	Close() error
}
