package ports

import (
	"context"

	"go.trai.ch/ims/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=feed.go -destination=mocks/mock_feed.go -package=mocks

// ChangeHandler consumes one change event. Returning an error stops the stream.
type ChangeHandler func(ctx context.Context, event domain.ChangeEvent) error

// ChangeFeed streams registry changes in increasing sequence order.
type ChangeFeed interface {
	// Stream delivers every change after since to fn until the feed ends,
	// the context is cancelled or fn fails.
	Stream(ctx context.Context, since uint64, fn ChangeHandler) error
}
