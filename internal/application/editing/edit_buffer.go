package editing

import (
	"sort"
	"sync"

	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/domain/invoicing"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Notes is the editable notes pair of an invoice plus the version it was
// read at.
type Notes struct {
	Customer string
	Admin    string
	Version  int
}

// BufferedLineItem is a line item as the operator currently sees it
type BufferedLineItem struct {
	invoicing.LineItem
	IsDirty bool
}

type bufferEntry struct {
	current  invoicing.LineItem
	pristine invoicing.LineItem
	dirty    bool
}

// EditBuffer holds the local edit state of one invoice. Setters never do
// I/O. All methods are safe for concurrent use.
type EditBuffer struct {
	mu          sync.Mutex
	initialized bool
	items       map[uuid.UUID]*bufferEntry

	customerNotes         string
	originalCustomerNotes string
	adminNotes            string
	originalAdminNotes    string
	version               int
}

// NewEditBuffer returns an empty, uninitialized buffer
func NewEditBuffer() *EditBuffer {
	return &EditBuffer{items: make(map[uuid.UUID]*bufferEntry)}
}

// Initialize loads a source snapshot. Every item starts clean and both
// notes start equal to their originals.
func (b *EditBuffer) Initialize(items []invoicing.LineItem, notes Notes) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.load(items, notes)
}

// IsInitialized reports whether a snapshot has been loaded since the last Reset
func (b *EditBuffer) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized
}

// Reset drops all state, returning the buffer to uninitialized
func (b *EditBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = false
	b.items = make(map[uuid.UUID]*bufferEntry)
	b.customerNotes, b.originalCustomerNotes = "", ""
	b.adminNotes, b.originalAdminNotes = "", ""
	b.version = 0
}

// UpdateItem merges patch into the item and marks it dirty. The line total
// is recomputed when quantity or unit price is part of the patch. It
// returns false and changes nothing when id is unknown.
func (b *EditBuffer) UpdateItem(id uuid.UUID, patch invoicing.LineItemPatch) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.items[id]
	if !ok {
		return false
	}
	entry.current.Merge(patch)
	entry.dirty = true
	return true
}

// SetCustomerNotes replaces the current customer notes
func (b *EditBuffer) SetCustomerNotes(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customerNotes = text
}

// SetAdminNotes replaces the current admin notes
func (b *EditBuffer) SetAdminNotes(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adminNotes = text
}

// HasUnsavedChanges reports whether any item is dirty or either note
// differs from its original.
func (b *EditBuffer) HasUnsavedChanges() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasUnsavedChanges()
}

// SyncFromSource adopts a fresh source snapshot, but only while the buffer
// has no unsaved changes and the snapshot adds or removes items. A snapshot
// with the same id set leaves items and notes as they are. It reports
// whether the snapshot was adopted.
func (b *EditBuffer) SyncFromSource(items []invoicing.LineItem, notes Notes) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		b.load(items, notes)
		return true
	}
	if b.hasUnsavedChanges() || !b.membershipDiffers(items) {
		return false
	}

	b.load(items, notes)
	return true
}

// MembershipDiffers reports whether items has a different id set than the
// buffer.
func (b *EditBuffer) MembershipDiffers(items []invoicing.LineItem) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.membershipDiffers(items)
}

// DiscardAllChanges makes every item clean again, restoring the values it
// had when last loaded or saved, and resets both notes to their originals.
// It returns the ids of items that were dirty.
func (b *EditBuffer) DiscardAllChanges() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()

	discarded := make([]uuid.UUID, 0)
	for id, entry := range b.items {
		if entry.dirty {
			discarded = append(discarded, id)
		}
		entry.current = entry.pristine
		entry.dirty = false
	}
	b.customerNotes = b.originalCustomerNotes
	b.adminNotes = b.originalAdminNotes
	return discarded
}

// Items returns the current items ordered by sort order, then creation time
func (b *EditBuffer) Items() []BufferedLineItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := lo.MapToSlice(b.items, func(_ uuid.UUID, entry *bufferEntry) BufferedLineItem {
		return BufferedLineItem{LineItem: entry.current, IsDirty: entry.dirty}
	})
	sortBuffered(out)
	return out
}

// Item returns one current item
func (b *EditBuffer) Item(id uuid.UUID) (BufferedLineItem, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.items[id]
	if !ok {
		return BufferedLineItem{}, false
	}
	return BufferedLineItem{LineItem: entry.current, IsDirty: entry.dirty}, true
}

// DirtyItemIDs returns the ids of dirty items in display order
func (b *EditBuffer) DirtyItemIDs() []uuid.UUID {
	dirty := lo.Filter(b.Items(), func(item BufferedLineItem, _ int) bool {
		return item.IsDirty
	})
	return lo.Map(dirty, func(item BufferedLineItem, _ int) uuid.UUID {
		return item.ID
	})
}

// CustomerNotes returns the current customer notes
func (b *EditBuffer) CustomerNotes() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.customerNotes
}

// AdminNotes returns the current admin notes
func (b *EditBuffer) AdminNotes() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adminNotes
}

// OriginalNotes returns the notes as last loaded or saved
func (b *EditBuffer) OriginalNotes() Notes {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Notes{Customer: b.originalCustomerNotes, Admin: b.originalAdminNotes, Version: b.version}
}

// pendingChange is one dirty item captured for saving
type pendingChange struct {
	sent  invoicing.LineItem
	patch invoicing.LineItemPatch
}

// pendingBatch is everything a save must persist, captured atomically
type pendingBatch struct {
	items        []pendingChange
	notesChanged bool
	notes        Notes
}

func (p pendingBatch) empty() bool {
	return len(p.items) == 0 && !p.notesChanged
}

// pending captures the dirty state for a save without changing it
func (b *EditBuffer) pending() pendingBatch {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := lo.Filter(lo.Values(b.items), func(entry *bufferEntry, _ int) bool {
		return entry.dirty
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return displayLess(entries[i].current, entries[j].current)
	})

	batch := pendingBatch{
		items: lo.Map(entries, func(entry *bufferEntry, _ int) pendingChange {
			return pendingChange{sent: entry.current, patch: diffPatch(entry.pristine, entry.current)}
		}),
		notesChanged: b.notesChanged(),
		notes:        Notes{Customer: b.customerNotes, Admin: b.adminNotes, Version: b.version},
	}
	return batch
}

// markItemSaved records a successful save of sent. The item becomes clean
// unless it was edited again while the save was running.
func (b *EditBuffer) markItemSaved(sent invoicing.LineItem, saved *invoicing.LineItem) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.items[sent.ID]
	if !ok {
		return
	}
	persisted := sent
	if saved != nil {
		persisted = *saved
	}
	entry.pristine = persisted
	if sameEditableFields(entry.current, sent) {
		entry.current = persisted
		entry.dirty = false
	}
}

// markNotesSaved records a successful notes write
func (b *EditBuffer) markNotesSaved(sent Notes, version int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.originalCustomerNotes = sent.Customer
	b.originalAdminNotes = sent.Admin
	if version > 0 {
		b.version = version
	}
}

func (b *EditBuffer) load(items []invoicing.LineItem, notes Notes) {
	b.items = make(map[uuid.UUID]*bufferEntry, len(items))
	for _, item := range items {
		b.items[item.ID] = &bufferEntry{current: item, pristine: item}
	}
	b.customerNotes, b.originalCustomerNotes = notes.Customer, notes.Customer
	b.adminNotes, b.originalAdminNotes = notes.Admin, notes.Admin
	b.version = notes.Version
	b.initialized = true
}

func (b *EditBuffer) hasUnsavedChanges() bool {
	if b.notesChanged() {
		return true
	}
	return lo.SomeBy(lo.Values(b.items), func(entry *bufferEntry) bool {
		return entry.dirty
	})
}

func (b *EditBuffer) notesChanged() bool {
	return b.customerNotes != b.originalCustomerNotes || b.adminNotes != b.originalAdminNotes
}

func (b *EditBuffer) membershipDiffers(items []invoicing.LineItem) bool {
	if len(items) != len(b.items) {
		return true
	}
	return lo.SomeBy(items, func(item invoicing.LineItem) bool {
		_, ok := b.items[item.ID]
		return !ok
	})
}

// diffPatch builds the patch that turns from into to
func diffPatch(from, to invoicing.LineItem) invoicing.LineItemPatch {
	var patch invoicing.LineItemPatch
	if from.Title != to.Title {
		patch.Title = lo.ToPtr(to.Title)
	}
	if from.Description != to.Description {
		patch.Description = lo.ToPtr(to.Description)
	}
	if from.Quantity != to.Quantity {
		patch.Quantity = lo.ToPtr(to.Quantity)
	}
	if from.UnitPriceCents != to.UnitPriceCents {
		patch.UnitPriceCents = lo.ToPtr(to.UnitPriceCents)
	}
	if from.Category != to.Category {
		patch.Category = lo.ToPtr(to.Category)
	}
	if from.SortOrder != to.SortOrder {
		patch.SortOrder = lo.ToPtr(to.SortOrder)
	}
	return patch
}

func sameEditableFields(a, b invoicing.LineItem) bool {
	return diffPatch(a, b).IsEmpty()
}

func displayLess(a, b invoicing.LineItem) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func sortBuffered(items []BufferedLineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return displayLess(items[i].LineItem, items[j].LineItem)
	})
}
