package editing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Settler waits, after a committed mutation, for the server-side trigger
// to have a chance to recompute totals. It returns early only on context
// cancellation or, for acknowledging settlers, on acknowledgment.
type Settler interface {
	Settle(ctx context.Context, invoiceID uuid.UUID, mutatedAt time.Time, delay time.Duration) error
}

// DelaySettler waits the full delay
type DelaySettler struct{}

// Settle blocks for delay or until ctx is done
func (DelaySettler) Settle(ctx context.Context, _ uuid.UUID, _ time.Time, delay time.Duration) error {
	return sleep(ctx, delay)
}

const defaultAckRetention = time.Minute

// AckSettler returns as soon as a TotalsRecalculated event for the invoice
// is observed at or after the mutation, with the delay as upper bound.
// Subscribe it to the event bus.
type AckSettler struct {
	mu        sync.Mutex
	acked     map[uuid.UUID]time.Time
	waiters   map[uuid.UUID][]chan struct{}
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// AckSettlerOption configures an AckSettler
type AckSettlerOption func(*AckSettler)

// WithAckRetention sets how long an acknowledgment is remembered. Settle
// never waits longer than its delay, so the largest configured delay is
// enough.
func WithAckRetention(d time.Duration) AckSettlerOption {
	return func(s *AckSettler) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewAckSettler creates an AckSettler
func NewAckSettler(logger *zap.Logger, opts ...AckSettlerOption) *AckSettler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AckSettler{
		acked:     make(map[uuid.UUID]time.Time),
		waiters:   make(map[uuid.UUID][]chan struct{}),
		retention: defaultAckRetention,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EventTypes returns the event types this handler is interested in
func (s *AckSettler) EventTypes() []string {
	return []string{invoicing.EventTypeTotalsRecalculated}
}

// Handle records the acknowledgment and releases waiters for the invoice
func (s *AckSettler) Handle(_ context.Context, event shared.DomainEvent) error {
	if event.EventType() != invoicing.EventTypeTotalsRecalculated {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			invoicing.EventTypeTotalsRecalculated, event.EventType())
	}
	s.Ack(event.AggregateID(), event.OccurredAt())
	return nil
}

// Ack marks invoiceID recalculated at the given time and forgets
// acknowledgments older than the retention window.
func (s *AckSettler) Ack(invoiceID uuid.UUID, at time.Time) {
	s.mu.Lock()
	cutoff := s.now().Add(-s.retention)
	for id, seen := range s.acked {
		if seen.Before(cutoff) {
			delete(s.acked, id)
		}
	}
	if prev, ok := s.acked[invoiceID]; !ok || at.After(prev) {
		s.acked[invoiceID] = at
	}
	waiters := s.waiters[invoiceID]
	delete(s.waiters, invoiceID)
	s.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
}

// Settle waits for an acknowledgment newer than mutatedAt, at most delay
func (s *AckSettler) Settle(ctx context.Context, invoiceID uuid.UUID, mutatedAt time.Time, delay time.Duration) error {
	deadline := time.NewTimer(delay)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if at, ok := s.acked[invoiceID]; ok && !at.Before(mutatedAt) {
			s.mu.Unlock()
			return nil
		}
		ch := make(chan struct{})
		s.waiters[invoiceID] = append(s.waiters[invoiceID], ch)
		s.mu.Unlock()

		select {
		case <-ch:
			// An older recalculation may have finished; check again.
		case <-deadline.C:
			s.drop(invoiceID, ch)
			s.logger.Debug("no recalculation acknowledgment within delay",
				zap.String("invoice_id", invoiceID.String()),
				zap.Duration("delay", delay),
			)
			return nil
		case <-ctx.Done():
			s.drop(invoiceID, ch)
			return ctx.Err()
		}
	}
}

func (s *AckSettler) drop(invoiceID uuid.UUID, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.waiters[invoiceID]
	for i, w := range waiters {
		if w == ch {
			s.waiters[invoiceID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(s.waiters[invoiceID]) == 0 {
		delete(s.waiters, invoiceID)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
