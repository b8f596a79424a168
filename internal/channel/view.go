package channel

import (
	"sync"
	"time"

	"dapbuddy/backend/internal/models"

	"github.com/google/uuid"
)

// FetchFunc loads a page of entries strictly older than beforeID, in
// ascending order. beforeID == 0 means the newest page.
type FetchFunc func(beforeID uint, limit int) ([]models.ChatEntry, error)

// View is the per-viewer model of one booking's log: an ordered entry
// list with optimistic local appends, server reconciliation through an
// explicit temp-id map, idempotent push merges, and backward pagination
// that never disturbs the tail.
//
// Live pushes always land at the tail and pages always prepend at the
// head, so the two cannot corrupt each other's insertion point even while
// a page fetch is in flight.
type View struct {
	mu sync.Mutex

	BookingID string
	UserID    string

	fetch FetchFunc

	entries []models.ChatEntry
	seenIDs map[uint]bool
	// pending tracks optimistic entries by temp id. Positions are not
	// stored because they shift on every prepend.
	pending map[string]bool
	// reconciled maps every replaced temp id to its authoritative id.
	// A temp id is never reused once it appears here.
	reconciled map[string]uint

	paginating bool
	closed     bool
}

// NewView creates an empty view over a booking log.
func NewView(bookingID, userID string, fetch FetchFunc) *View {
	return &View{
		BookingID:  bookingID,
		UserID:     userID,
		fetch:      fetch,
		seenIDs:    make(map[uint]bool),
		pending:    make(map[string]bool),
		reconciled: make(map[string]uint),
	}
}

// LoadInitial fetches the newest page.
func (v *View) LoadInitial(limit int) error {
	_, err := v.loadHead(limit)
	return err
}

// loadHead fetches the newest page and prepends it ahead of whatever is
// already loaded. Optimistic entries appended before the fetch returned
// keep the tail, so the list stays in ascending order.
func (v *View) loadHead(limit int) (int, error) {
	page, err := v.fetch(0, limit)
	if err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		// view torn down while the fetch was in flight
		return 0, nil
	}
	fresh := make([]models.ChatEntry, 0, len(page))
	for _, e := range page {
		if v.seenIDs[e.ID] {
			continue
		}
		e.DeliveryState = models.DeliverySent
		v.seenIDs[e.ID] = true
		fresh = append(fresh, e)
	}
	if len(fresh) > 0 {
		v.entries = append(fresh, v.entries...)
	}
	return len(fresh), nil
}

// Append inserts an optimistic entry at the tail with a client-generated
// temp id and deliveryState "sending", and returns it. The caller sends
// the entry to the server and later settles it with AckAppend or
// FailAppend. A failed entry stays visible and does not block later sends.
func (v *View) Append(text, kind string) models.ChatEntry {
	entry := models.ChatEntry{
		TempID:        uuid.New().String(),
		BookingID:     v.BookingID,
		ActorID:       v.UserID,
		Text:          text,
		Kind:          kind,
		CreatedAt:     time.Now(),
		DeliveryState: models.DeliverySending,
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending[entry.TempID] = true
	v.entries = append(v.entries, entry)
	return entry
}

// AckAppend replaces the optimistic entry with the authoritative server
// entry in place, keeping its relative position. Duplicate acks (the push
// frame may arrive before or after the HTTP response) collapse to one
// visible entry.
func (v *View) AckAppend(tempID string, server models.ChatEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settle(tempID, server)
}

// settle is the shared ack path; callers hold the lock.
func (v *View) settle(tempID string, server models.ChatEntry) {
	if !v.pending[tempID] {
		// already reconciled; ignore the duplicate unless the server row
		// itself is new to us
		if !v.seenIDs[server.ID] {
			v.insertTail(server)
		}
		return
	}

	server.DeliveryState = models.DeliverySent
	for i := range v.entries {
		if v.entries[i].TempID == tempID && v.entries[i].ID == 0 {
			v.entries[i] = server
			break
		}
	}
	delete(v.pending, tempID)
	v.reconciled[tempID] = server.ID
	v.seenIDs[server.ID] = true
}

// FailAppend marks the optimistic entry failed. It stays in the list with
// a retry affordance.
func (v *View) FailAppend(tempID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.entries {
		if v.entries[i].TempID == tempID && v.entries[i].ID == 0 {
			v.entries[i].DeliveryState = models.DeliveryFailed
			return
		}
	}
}

// RetryAppend flips a failed entry back to sending and returns it for a
// fresh server attempt. The temp id is kept: the server echoes it, so a
// late ack of the first attempt still reconciles to one entry.
func (v *View) RetryAppend(tempID string) (models.ChatEntry, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.entries {
		if v.entries[i].TempID == tempID && v.entries[i].ID == 0 {
			if v.entries[i].DeliveryState != models.DeliveryFailed {
				return models.ChatEntry{}, false
			}
			v.entries[i].DeliveryState = models.DeliverySending
			return v.entries[i], true
		}
	}
	return models.ChatEntry{}, false
}

// ReceivePush merges a server-pushed entry. Entries already present by id
// are ignored, tolerating duplicate delivery. A push echoing one of our
// own temp ids settles the optimistic entry instead of duplicating it.
func (v *View) ReceivePush(entry models.ChatEntry) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if entry.TempID != "" {
		if v.pending[entry.TempID] {
			v.settle(entry.TempID, entry)
			return
		}
		if _, done := v.reconciled[entry.TempID]; done {
			return
		}
	}
	if v.seenIDs[entry.ID] {
		return
	}
	v.insertTail(entry)
}

func (v *View) insertTail(entry models.ChatEntry) {
	entry.DeliveryState = models.DeliverySent
	v.seenIDs[entry.ID] = true
	v.entries = append(v.entries, entry)
}

// LoadOlder fetches the page strictly older than the earliest loaded
// entry and prepends it. It returns the number of prepended entries so
// the caller can restore the viewer's scroll anchor by the height of the
// new rows (the previously topmost entry keeps its on-screen position).
// Only one page fetch runs at a time; a second call while one is in
// flight is a no-op.
func (v *View) LoadOlder(limit int) (int, error) {
	v.mu.Lock()
	if v.closed || v.paginating {
		v.mu.Unlock()
		return 0, nil
	}
	v.paginating = true
	before := v.oldestAckedLocked()
	v.mu.Unlock()

	if before == 0 {
		// nothing acked yet: treat it as a head load
		v.mu.Lock()
		v.paginating = false
		v.mu.Unlock()
		return v.loadHead(limit)
	}

	page, err := v.fetch(before, limit)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.paginating = false
	if v.closed {
		// discarded: the owning view was torn down mid-flight
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	fresh := make([]models.ChatEntry, 0, len(page))
	for _, e := range page {
		if v.seenIDs[e.ID] {
			continue
		}
		e.DeliveryState = models.DeliverySent
		v.seenIDs[e.ID] = true
		fresh = append(fresh, e)
	}
	if len(fresh) > 0 {
		v.entries = append(fresh, v.entries...)
	}
	return len(fresh), nil
}

// oldestAckedLocked returns the smallest server id currently loaded, or 0
// when only optimistic entries exist.
func (v *View) oldestAckedLocked() uint {
	for _, e := range v.entries {
		if e.ID > 0 {
			return e.ID
		}
	}
	return 0
}

// Entries returns a snapshot of the current ordered entry list.
func (v *View) Entries() []models.ChatEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.ChatEntry, len(v.entries))
	copy(out, v.entries)
	return out
}

// RealID resolves a temp id through the reconciliation map.
func (v *View) RealID(tempID string) (uint, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, ok := v.reconciled[tempID]
	return id, ok
}

// Close tears the view down. Fetches completing afterwards are discarded
// rather than applied to a reused view.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}
