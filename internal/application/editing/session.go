package editing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the UI-facing editing state of one invoice. Reads and setters
// are synchronous and do no I/O; only SaveAllChanges talks to the store.
type Session struct {
	mu        sync.RWMutex
	invoiceID uuid.UUID

	buffer       *EditBuffer
	store        LineItemStore
	notes        NotesWriter
	reconciler   *TotalsReconciler
	recorder     Recorder
	logger       *zap.Logger
	versionCheck bool
	saving       atomic.Bool
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithVersionCheck makes notes writes conditional on the invoice version
// the session last loaded or saved.
func WithVersionCheck() SessionOption {
	return func(s *Session) {
		s.versionCheck = true
	}
}

// WithSessionLogger sets the session logger
func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates an uninitialized session for invoiceID
func NewSession(invoiceID uuid.UUID, store LineItemStore, notes NotesWriter, reconciler *TotalsReconciler, opts ...SessionOption) *Session {
	s := &Session{
		invoiceID:  invoiceID,
		buffer:     NewEditBuffer(),
		store:      store,
		notes:      notes,
		reconciler: reconciler,
		recorder:   reconciler.recorder,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InvoiceID returns the invoice being edited
func (s *Session) InvoiceID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.invoiceID
}

// SwitchInvoice points the session at another invoice. The buffer goes
// back to uninitialized and waits for the new invoice's snapshot.
func (s *Session) SwitchInvoice(invoiceID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invoiceID == invoiceID {
		return
	}
	s.invoiceID = invoiceID
	s.buffer.Reset()
}

// SyncFromSource feeds a source snapshot to the buffer. The first snapshot
// initializes it; later ones rebuild it only when items were added or
// removed and nothing is pending.
func (s *Session) SyncFromSource(items []invoicing.LineItem, notes Notes) {
	initialized := s.buffer.IsInitialized()
	if !s.buffer.SyncFromSource(items, notes) {
		s.logger.Debug("source snapshot ignored",
			zap.String("invoice_id", s.InvoiceID().String()),
			zap.Bool("pending_edits", s.buffer.HasUnsavedChanges()),
		)
		return
	}
	if initialized {
		s.logger.Debug("line items added or removed externally; buffer rebuilt",
			zap.String("invoice_id", s.InvoiceID().String()),
			zap.Int("items", len(items)),
		)
	}
}

// IsInitialized reports whether a snapshot has been loaded
func (s *Session) IsInitialized() bool {
	return s.buffer.IsInitialized()
}

// LocalLineItems returns the buffered items in display order
func (s *Session) LocalLineItems() []BufferedLineItem {
	return s.buffer.Items()
}

// CustomerNotes returns the current customer notes
func (s *Session) CustomerNotes() string {
	return s.buffer.CustomerNotes()
}

// AdminNotes returns the current admin notes
func (s *Session) AdminNotes() string {
	return s.buffer.AdminNotes()
}

// OriginalNotes returns the notes as last loaded or saved
func (s *Session) OriginalNotes() Notes {
	return s.buffer.OriginalNotes()
}

// HasUnsavedChanges reports pending item or notes edits
func (s *Session) HasUnsavedChanges() bool {
	return s.buffer.HasUnsavedChanges()
}

// DirtyItemIDs returns the ids of items with pending edits
func (s *Session) DirtyItemIDs() []uuid.UUID {
	return s.buffer.DirtyItemIDs()
}

// IsSaving reports whether SaveAllChanges is running
func (s *Session) IsSaving() bool {
	return s.saving.Load()
}

// UpdateLineItem edits an item locally. Unknown ids are ignored.
func (s *Session) UpdateLineItem(id uuid.UUID, patch invoicing.LineItemPatch) bool {
	return s.buffer.UpdateItem(id, patch)
}

// SetCustomerNotes edits the customer notes locally
func (s *Session) SetCustomerNotes(text string) {
	s.buffer.SetCustomerNotes(text)
}

// SetAdminNotes edits the admin notes locally
func (s *Session) SetAdminNotes(text string) {
	s.buffer.SetAdminNotes(text)
}

// DiscardAllChanges drops every pending edit. Item fields revert to the
// last loaded or saved values and the line item view is refreshed.
func (s *Session) DiscardAllChanges() {
	discarded := s.buffer.DiscardAllChanges()
	if len(discarded) == 0 {
		return
	}
	s.reconciler.InvalidateLineItems(context.Background(), s.InvoiceID())
}

// SaveAllChanges persists dirty items one by one, then the notes, then
// reconciles totals if anything was committed. The first failure stops the
// batch; items saved before it stay saved and clean, the rest stay dirty.
// It returns false with a *StorageError on failure. Nothing is sent when
// there are no unsaved changes.
func (s *Session) SaveAllChanges(ctx context.Context) (bool, error) {
	if !s.saving.CompareAndSwap(false, true) {
		return false, ErrSaveInProgress
	}
	defer s.saving.Store(false)

	invoiceID := s.InvoiceID()
	batch := s.buffer.pending()
	if batch.empty() {
		return true, nil
	}

	log := logger.WithLogger(ctx, s.logger).With(zap.String("invoice_id", invoiceID.String()))
	mutatedAt := time.Now()
	committed, failed := 0, 0
	var saveErr error

	for _, change := range batch.items {
		if change.patch.IsEmpty() {
			// Edited back to the saved values
			s.buffer.markItemSaved(change.sent, nil)
			continue
		}
		saved, err := s.store.Update(ctx, change.sent.ID, change.patch)
		if err != nil {
			saveErr = newStorageError(OpUpdate, invoiceID, change.sent.ID, err)
			failed++
			break
		}
		s.buffer.markItemSaved(change.sent, saved)
		committed++
	}

	if saveErr == nil && batch.notesChanged {
		var expected *int
		if s.versionCheck {
			expected = &batch.notes.Version
		}
		version, err := s.notes.WriteNotes(ctx, invoiceID, batch.notes.Customer, batch.notes.Admin, expected)
		if err != nil {
			saveErr = newStorageError(OpWriteNotes, invoiceID, uuid.Nil, err)
			failed++
		} else {
			s.buffer.markNotesSaved(batch.notes, version)
			committed++
		}
	}

	s.recorder.RecordSave(ctx, committed, failed)

	if committed > 0 {
		_ = s.reconciler.Reconcile(ctx, invoiceID, TriggerBatch, mutatedAt)
	}

	if saveErr != nil {
		log.Warn("save stopped at first failure",
			zap.Int("committed", committed),
			zap.Int("pending", len(s.buffer.DirtyItemIDs())),
			zap.Error(saveErr),
		)
		return false, saveErr
	}

	log.Info("changes saved", zap.Int("committed", committed))
	return true, nil
}
