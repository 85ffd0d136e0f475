package broker

import (
	"context"
	"sync"
)

// InMemoryStore is a dev-only MessageStore used when no database is
// configured. IDs come from a single store-wide sequence, matching the
// Postgres store's global-cursor semantics.
type InMemoryStore struct {
	mu   sync.Mutex
	seq  int64
	msgs []StoredMessage // ordered by ID
}

// NewInMemoryStore constructs an empty in-memory MessageStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// Insert appends a record with the next store-wide ID.
func (s *InMemoryStore) Insert(ctx context.Context, m StoredMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	m.ID = s.seq
	s.msgs = append(s.msgs, m)
	return nil
}

// Metrics aggregates count and payload bytes past afterID for recipient.
func (s *InMemoryStore) Metrics(ctx context.Context, recipient string, afterID int64, limit int) (BacklogMetrics, error) {
	if err := ctx.Err(); err != nil {
		return BacklogMetrics{}, err
	}
	if limit == 0 {
		return BacklogMetrics{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out BacklogMetrics
	for _, m := range s.msgs {
		if m.Recipient != recipient || m.ID <= afterID {
			continue
		}
		out.Count++
		out.PayloadLength += m.PayloadLength
	}
	return out, nil
}

// FetchRange returns at most limit rows past afterID, ordered by ID.
func (s *InMemoryStore) FetchRange(ctx context.Context, recipient string, afterID int64, limit int) ([]StoredMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StoredMessage, 0, limit)
	for _, m := range s.msgs {
		if m.Recipient != recipient || m.ID <= afterID {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
