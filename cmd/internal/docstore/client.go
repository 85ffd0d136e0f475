// Package docstore is the client for the external document store that holds
// large message payloads, keyed by opaque content IDs.
package docstore

import (
	"context"
	"fmt"
)

// Client stores and retrieves payloads by content ID.
type Client interface {
	Put(ctx context.Context, id, data string) error
	Get(ctx context.Context, id string) (string, error)
}

// StatusError is returned when the document store answers with a non-success
// HTTP status. The status code is kept; response bodies are not surfaced.
type StatusError struct {
	Op         string // "put" or "get"
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("docstore %s: status %d", e.Op, e.StatusCode)
}
