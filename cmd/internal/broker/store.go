package broker

import "context"

// MessageStore is the persistence gateway for message records.
//
// Requirements:
//   - Insert is atomic at the row level and assigns a store-wide strictly
//     increasing ID.
//   - Records are append-only: never mutated or deleted.
//   - Metrics and FetchRange see only rows with a matching recipient and
//     id > afterID.
type MessageStore interface {
	// Insert persists one record and fails with ErrStorageWrite when the
	// write does not affect exactly one row.
	Insert(ctx context.Context, m StoredMessage) error

	// Metrics aggregates the backlog past afterID. limit == 0 short-circuits
	// to zero metrics without touching the store; any other limit computes
	// over the whole remaining backlog.
	Metrics(ctx context.Context, recipient string, afterID int64, limit int) (BacklogMetrics, error)

	// FetchRange returns at most limit rows ordered by id ascending.
	FetchRange(ctx context.Context, recipient string, afterID int64, limit int) ([]StoredMessage, error)

	Close() error
}
