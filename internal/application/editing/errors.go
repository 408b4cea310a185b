package editing

import (
	"fmt"
	"strings"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/shared"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var (
	// ErrStorage matches every StorageError
	ErrStorage = errors.New("storage operation failed")
	// ErrSaveInProgress is returned when a save is requested while another
	// save on the same session is running
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrReconciliation matches every ReconciliationWarning
	ErrReconciliation = errors.New("reconciliation incomplete")
	// ErrRollback matches every RollbackFailure
	ErrRollback = errors.New("rollback failed")
)

// Operation names a store or notes call
type Operation string

const (
	OpFetch      Operation = "fetch"
	OpCreate     Operation = "create"
	OpUpdate     Operation = "update"
	OpDelete     Operation = "delete"
	OpReplaceAll Operation = "replace_all"
	OpWriteNotes Operation = "write_notes"
)

const defaultUserMessage = "Something went wrong. Please try again."

// StorageError reports a failed store or notes call. The caller may retry.
type StorageError struct {
	Op        Operation
	InvoiceID uuid.UUID
	ItemID    uuid.UUID
	Err       error
}

func newStorageError(op Operation, invoiceID, itemID uuid.UUID, err error) *StorageError {
	return &StorageError{
		Op:        op,
		InvoiceID: invoiceID,
		ItemID:    itemID,
		Err:       errors.WithHint(errors.WithStack(err), storageHint(op, err)),
	}
}

func (e *StorageError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Op))
	if e.ItemID != uuid.Nil {
		fmt.Fprintf(&b, " item %s", e.ItemID)
	}
	if e.InvoiceID != uuid.Nil {
		fmt.Fprintf(&b, " invoice %s", e.InvoiceID)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches ErrStorage
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// UserMessage is a sentence suitable for showing to the operator
func (e *StorageError) UserMessage() string {
	for _, hint := range errors.GetAllHints(e.Err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return defaultUserMessage
}

func storageHint(op Operation, cause error) string {
	if errors.Is(cause, shared.ErrConcurrencyConflict) {
		return "This invoice was changed by someone else. Reload it and reapply your edits."
	}
	if errors.Is(cause, shared.ErrNotFound) {
		return "The line item or invoice no longer exists. Reload the invoice."
	}
	switch op {
	case OpWriteNotes:
		return "Notes could not be saved. Your other changes were kept; try saving again."
	case OpUpdate:
		return "A line item could not be saved. Unsaved changes are still pending; try saving again."
	case OpCreate, OpReplaceAll:
		return "Line items could not be added. Please try again."
	case OpDelete:
		return "The line item could not be removed. Please try again."
	default:
		return "Line items could not be loaded. Please try again."
	}
}

// ReconciliationWarning reports that totals could not be recalculated
// after a committed mutation. It is logged, never shown to the operator;
// the next successful reconciliation corrects the totals.
type ReconciliationWarning struct {
	InvoiceID uuid.UUID
	Err       error
}

func (w *ReconciliationWarning) Error() string {
	return fmt.Sprintf("recalculate totals for invoice %s: %v", w.InvoiceID, w.Err)
}

func (w *ReconciliationWarning) Unwrap() error {
	return w.Err
}

// Is matches ErrReconciliation
func (w *ReconciliationWarning) Is(target error) bool {
	return target == ErrReconciliation
}

// RollbackFailure reports that an optimistic write could not be undone in
// place. The affected view is invalidated instead.
type RollbackFailure struct {
	InvoiceID uuid.UUID
	Key       string
	Err       error
}

func (f *RollbackFailure) Error() string {
	return fmt.Sprintf("restore %s for invoice %s: %v", f.Key, f.InvoiceID, f.Err)
}

func (f *RollbackFailure) Unwrap() error {
	return f.Err
}

// Is matches ErrRollback
func (f *RollbackFailure) Is(target error) bool {
	return target == ErrRollback
}

// UserMessage returns the operator-facing message for an engine error
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr.UserMessage()
	}
	if errors.Is(err, ErrSaveInProgress) {
		return "A save is already in progress."
	}
	return defaultUserMessage
}
