package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/solana-swap-executor/internal/models"
)

// SwapRecorder receives terminal swap records.
type SwapRecorder interface {
	RecordSwap(ctx context.Context, rec *models.SwapRecord) error
}

// SwapCache defines the interface for caching swap data
type SwapCache interface {
	SwapRecorder

	// GetRecentSwaps retrieves the most recent swaps
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapRecord, error)

	// SubscribeSwaps streams records as they are published
	SubscribeSwaps(ctx context.Context) (<-chan *models.SwapRecord, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// SwapStore defines the interface for persistent swap storage
type SwapStore interface {
	SwapRecorder

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}
