package cache

import (
	"context"
	"errors"
	"time"
)

// ErrIdempotencyKeyNotFound is returned when completing an unknown key
var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

// IdempotencyRecord is what is remembered about one Idempotency-Key.
// Status 0 means the first request is still running.
type IdempotencyRecord struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Completed reports whether a response has been stored
func (r *IdempotencyRecord) Completed() bool {
	return r.Status != 0
}

// IdempotencyStore remembers responses of mutating requests by key
type IdempotencyStore interface {
	// Begin reserves key for requestHash. When the key is already known the
	// existing record is returned with reserved=false.
	Begin(ctx context.Context, key, requestHash string, ttl time.Duration) (existing *IdempotencyRecord, reserved bool, err error)
	// Complete stores the response for a reserved key
	Complete(ctx context.Context, key string, record IdempotencyRecord, ttl time.Duration) error
	// Release forgets a reservation so the request can be retried
	Release(ctx context.Context, key string) error
	Close() error
}
