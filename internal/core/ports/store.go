package ports

import (
	"context"

	"go.trai.ch/ims/internal/core/domain"
)

// Store is the append-only log of package records with its key index.
//
// Every operation may block while the underlying log replicates.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type Store interface {
	// Ready blocks until the store can be queried.
	Ready(ctx context.Context) error

	// Update refreshes the known log length.
	Update(ctx context.Context) error

	// Version returns the known log length. Zero means nothing is known yet.
	Version() uint64

	// Get returns the live record stored under key.
	// Returns nil, nil if not found.
	Get(ctx context.Context, key string) (*domain.Node, error)

	// Put appends a record under key and returns its log position.
	Put(ctx context.Context, key string, record domain.Record) (uint64, error)

	// Delete appends a tombstone for key.
	Delete(ctx context.Context, key string) error

	// Iterate returns the live records whose key lies under prefix, ordered by key.
	Iterate(ctx context.Context, prefix string) Iterator

	// ReadByPosition returns the log entry at position.
	ReadByPosition(ctx context.Context, position uint64) (*domain.Node, error)

	// Has reports whether the entry at position is available locally.
	Has(position uint64) bool

	// Import stores an entry received from a peer at its original position.
	Import(ctx context.Context, node *domain.Node) error
}

// Iterator yields records lazily. Callers may stop at any time without
// closing it.
type Iterator interface {
	// Next returns the next record, or nil once the iteration is exhausted.
	Next(ctx context.Context) (*domain.Node, error)
}
