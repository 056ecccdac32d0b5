// Package transcript maintains the ordered, mutable log of conversation items
// for one realtime session: user and assistant messages whose text evolves as
// streamed tokens arrive, and breadcrumbs recording system actions such as
// tool calls, agent transfers, and errors.
//
// Items are keyed by a stable item ID. User-created items carry a locally
// generated ID; model-created items carry the ID assigned by the remote
// endpoint. Item order is insertion order and never changes.
//
// All methods are safe for concurrent use.
package transcript

import (
	"sync"
	"time"
)

// ItemType discriminates the two kinds of transcript items.
type ItemType string

const (
	// TypeMessage is a dialogue item with a role and evolving text.
	TypeMessage ItemType = "MESSAGE"

	// TypeBreadcrumb is a non-dialogue item recording a system action.
	TypeBreadcrumb ItemType = "BREADCRUMB"
)

// Role identifies the speaker of a MESSAGE item.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle state of an item. It starts IN_PROGRESS and
// transitions exactly once to DONE, never back.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Item is one entry in the transcript.
type Item struct {
	// ItemID is the stable identifier assigned by whichever side created the
	// item. Unique within the store.
	ItemID string

	// Type discriminates MESSAGE from BREADCRUMB.
	Type ItemType

	// Role is set for MESSAGE items only.
	Role Role

	// Status is the lifecycle state. Breadcrumbs are created DONE.
	Status Status

	// Title is the display text: the evolving transcript for messages, a short
	// structured label for breadcrumbs.
	Title string

	// Data is an optional structured payload (tool-call arguments, results).
	Data any

	// CreatedAt records creation time; used to compute audio truncation
	// offsets when the user interrupts in-progress assistant speech.
	CreatedAt time.Time

	// Hidden suppresses display without removing the item from the store.
	Hidden bool

	// Expanded is a display-only flag for the item's structured payload.
	Expanded bool
}

// Store is the ordered transcript for one session.
type Store struct {
	mu    sync.RWMutex
	items []Item
	index map[string]int // itemID → position in items
	now   func() time.Time
}

// Option configures a [Store] during construction.
type Option func(*Store)

// WithClock overrides the timestamp source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty transcript store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		index: make(map[string]int),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddMessage inserts a MESSAGE item with status IN_PROGRESS. If an item with
// the same ID already exists the call is a no-op (streamed deltas may race
// item-created events; first insertion wins).
func (s *Store) AddMessage(itemID string, role Role, text string, hidden bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[itemID]; ok {
		return
	}
	s.index[itemID] = len(s.items)
	s.items = append(s.items, Item{
		ItemID:    itemID,
		Type:      TypeMessage,
		Role:      role,
		Status:    StatusInProgress,
		Title:     text,
		CreatedAt: s.now(),
		Hidden:    hidden,
	})
}

// AddBreadcrumb appends a BREADCRUMB item with the given label and optional
// structured payload. Breadcrumbs are created DONE.
func (s *Store) AddBreadcrumb(itemID, title string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[itemID]; ok {
		return
	}
	s.index[itemID] = len(s.items)
	s.items = append(s.items, Item{
		ItemID:    itemID,
		Type:      TypeBreadcrumb,
		Status:    StatusDone,
		Title:     title,
		Data:      data,
		CreatedAt: s.now(),
	})
}

// AppendText appends a streamed delta to the item's title. The item is
// created as an IN_PROGRESS message with the given role when absent, so a
// delta arriving before its item-created event is never lost.
func (s *Store) AppendText(itemID string, role Role, delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[itemID]
	if !ok {
		s.index[itemID] = len(s.items)
		s.items = append(s.items, Item{
			ItemID:    itemID,
			Type:      TypeMessage,
			Role:      role,
			Status:    StatusInProgress,
			Title:     delta,
			CreatedAt: s.now(),
		})
		return
	}
	s.items[i].Title += delta
}

// SetText overwrites the item's title. Used when the finalized transcript
// differs from the concatenated streamed text. Title may be amended even
// after the item is DONE. No-op for unknown IDs.
func (s *Store) SetText(itemID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[itemID]; ok {
		s.items[i].Title = text
	}
}

// Complete transitions the item to DONE. The transition is one-way: a DONE
// item stays DONE. No-op for unknown IDs.
func (s *Store) Complete(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[itemID]; ok {
		s.items[i].Status = StatusDone
	}
}

// AttachData sets or replaces the item's structured payload. Allowed after
// DONE (e.g. a tool result arriving once the call settles). No-op for
// unknown IDs.
func (s *Store) AttachData(itemID string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[itemID]; ok {
		s.items[i].Data = data
	}
}

// ToggleExpand flips the display flag of the given item. It reports whether
// the item exists.
func (s *Store) ToggleExpand(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[itemID]; ok {
		s.items[i].Expanded = !s.items[i].Expanded
		return true
	}
	return false
}

// Get returns a copy of the item with the given ID.
func (s *Store) Get(itemID string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.index[itemID]; ok {
		return s.items[i], true
	}
	return Item{}, false
}

// Items returns a copy of all items in insertion order, including hidden ones.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// LastAssistantMessage returns a copy of the most recent assistant MESSAGE
// item, or false when the transcript contains none. Used by interruption
// handling to decide whether a truncate/cancel pair must be sent.
func (s *Store) LastAssistantMessage() (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].Type == TypeMessage && s.items[i].Role == RoleAssistant {
			return s.items[i], true
		}
	}
	return Item{}, false
}

// Len returns the number of items in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
