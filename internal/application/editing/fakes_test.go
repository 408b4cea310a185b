package editing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeStore is an in-memory LineItemStore with failure injection
type fakeStore struct {
	mu        sync.Mutex
	items     map[uuid.UUID]invoicing.LineItem
	calls     map[string]int
	failOn    map[uuid.UUID]error
	failAll   error
	onUpdate  func(itemID uuid.UUID)
	updateIDs []uuid.UUID
}

func newFakeStore(items ...invoicing.LineItem) *fakeStore {
	s := &fakeStore{
		items:  make(map[uuid.UUID]invoicing.LineItem),
		calls:  make(map[string]int),
		failOn: make(map[uuid.UUID]error),
	}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakeStore) record(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failAll
}

func (s *fakeStore) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *fakeStore) Fetch(_ context.Context, invoiceID uuid.UUID) ([]invoicing.LineItem, error) {
	if err := s.record("fetch"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]invoicing.LineItem, 0, len(s.items))
	for _, item := range s.items {
		if item.InvoiceID == invoiceID {
			out = append(out, item)
		}
	}
	invoicing.SortLineItems(out)
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	if err := s.record("create"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]invoicing.LineItem, 0, len(inputs))
	for _, input := range inputs {
		item, err := invoicing.NewLineItem(invoiceID, input)
		if err != nil {
			return nil, err
		}
		s.items[item.ID] = *item
		out = append(out, *item)
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, itemID uuid.UUID, patch invoicing.LineItemPatch) (*invoicing.LineItem, error) {
	if err := s.record("update"); err != nil {
		return nil, err
	}
	if s.onUpdate != nil {
		s.onUpdate(itemID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateIDs = append(s.updateIDs, itemID)
	if err := s.failOn[itemID]; err != nil {
		return nil, err
	}
	item, ok := s.items[itemID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if err := item.Apply(patch); err != nil {
		return nil, err
	}
	s.items[itemID] = item
	return &item, nil
}

func (s *fakeStore) Delete(_ context.Context, itemID uuid.UUID) error {
	if err := s.record("delete"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[itemID]; !ok {
		return shared.ErrNotFound
	}
	delete(s.items, itemID)
	return nil
}

func (s *fakeStore) ReplaceAll(_ context.Context, invoiceID uuid.UUID, inputs []invoicing.LineItemInput) ([]invoicing.LineItem, error) {
	if err := s.record("replace_all"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.items {
		if item.InvoiceID == invoiceID {
			delete(s.items, id)
		}
	}
	out := make([]invoicing.LineItem, 0, len(inputs))
	for _, input := range inputs {
		item, err := invoicing.NewLineItem(invoiceID, input)
		if err != nil {
			return nil, err
		}
		s.items[item.ID] = *item
		out = append(out, *item)
	}
	return out, nil
}

func (s *fakeStore) stored(id uuid.UUID) invoicing.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

// fakeNotes is a NotesWriter with failure injection
type fakeNotes struct {
	mu           sync.Mutex
	calls        int
	err          error
	version      int
	lastExpected *int
	customer     string
	admin        string
}

func (n *fakeNotes) WriteNotes(_ context.Context, _ uuid.UUID, customerNotes, adminNotes string, expectedVersion *int) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.lastExpected = expectedVersion
	if n.err != nil {
		return 0, n.err
	}
	n.customer, n.admin = customerNotes, adminNotes
	n.version++
	return n.version, nil
}

func (n *fakeNotes) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// fakeRecalculator counts recalculation requests
type fakeRecalculator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeRecalculator) Recalculate(context.Context, uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *fakeRecalculator) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeRecorder captures recorded measurements
type fakeRecorder struct {
	mu            sync.Mutex
	reconciles    []string
	rollbacks     []bool
	saved, failed int
	invalidations []string
}

func (r *fakeRecorder) RecordReconcile(_ context.Context, trigger string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciles = append(r.reconciles, trigger)
}

func (r *fakeRecorder) RecordRollback(_ context.Context, _ string, restored bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbacks = append(r.rollbacks, restored)
}

func (r *fakeRecorder) RecordSave(_ context.Context, saved, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved += saved
	r.failed += failed
}

func (r *fakeRecorder) RecordInvalidation(_ context.Context, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidations = append(r.invalidations, key)
}

// invalidationLog subscribes to a QueryCache and records invalidated keys
type invalidationLog struct {
	mu   sync.Mutex
	keys []string
}

func watchInvalidations(t *testing.T, views *cache.QueryCache) *invalidationLog {
	t.Helper()
	log := &invalidationLog{}
	unsubscribe := views.Subscribe(cache.Key(), func(key cache.QueryKey) {
		log.mu.Lock()
		defer log.mu.Unlock()
		log.keys = append(log.keys, key.String())
	})
	t.Cleanup(unsubscribe)
	return log
}

func (l *invalidationLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.keys...)
}

// engine bundles a session with its collaborators
type engine struct {
	invoiceID  uuid.UUID
	store      *fakeStore
	notes      *fakeNotes
	recalc     *fakeRecalculator
	recorder   *fakeRecorder
	views      *cache.QueryCache
	reconciler *TotalsReconciler
	session    *Session
}

func newEngine(t *testing.T, items []invoicing.LineItem, opts ...SessionOption) *engine {
	t.Helper()
	e := &engine{
		store:    newFakeStore(items...),
		notes:    &fakeNotes{version: 1},
		recalc:   &fakeRecalculator{},
		recorder: &fakeRecorder{},
		views:    cache.NewQueryCache(),
	}
	if len(items) > 0 {
		e.invoiceID = items[0].InvoiceID
	} else {
		e.invoiceID = uuid.New()
	}
	logger := zaptest.NewLogger(t)
	e.reconciler = NewTotalsReconciler(e.recalc, e.views,
		WithDelays(time.Millisecond, time.Millisecond),
		WithReconcilerRecorder(e.recorder),
		WithReconcilerLogger(logger),
	)
	opts = append([]SessionOption{WithSessionLogger(logger)}, opts...)
	e.session = NewSession(e.invoiceID, e.store, e.notes, e.reconciler, opts...)
	return e
}

func newItem(t *testing.T, invoiceID uuid.UUID, sortOrder, quantity int, unitPriceCents int64) invoicing.LineItem {
	t.Helper()
	item, err := invoicing.NewLineItem(invoiceID, invoicing.LineItemInput{
		Title:          "Item",
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
		Category:       "proteins",
		SortOrder:      sortOrder,
	})
	require.NoError(t, err)
	return *item
}

func ids(items []BufferedLineItem) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}
