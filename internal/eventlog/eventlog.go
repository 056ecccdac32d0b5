// Package eventlog provides an ordered, append-only record of every protocol
// event exchanged with the realtime endpoint, tagged with direction and a
// monotonically increasing sequence number.
//
// The log is the authoritative debugging artifact for a conversation: every
// client-sent and server-received event lands here before (or as part of)
// dispatch, so a session can be replayed or diagnosed without a debugger.
//
// All methods are safe for concurrent use.
package eventlog

import (
	"encoding/json"
	"sync"
	"time"
)

// Direction indicates which side originated a logged event.
type Direction string

const (
	// DirClient marks events sent by this process to the realtime endpoint.
	DirClient Direction = "client"

	// DirServer marks events received from the realtime endpoint.
	DirServer Direction = "server"
)

// Entry is a single logged protocol event.
// Entries are immutable after append except for the Expanded display flag.
type Entry struct {
	// ID is the monotonic sequence number of this entry within the log.
	ID uint64

	// Direction records which side originated the event.
	Direction Direction

	// EventName is the logical event name, optionally suffixed with a
	// human-readable annotation, e.g. "response.create (trigger response PTT)".
	EventName string

	// EventData is the raw event payload as it crossed the wire.
	EventData json.RawMessage

	// Timestamp records when the entry was appended.
	Timestamp time.Time

	// Expanded is a display-only flag; it has no protocol meaning.
	Expanded bool
}

// Log is an append-only, bounded event log. Oldest entries are evicted once
// the retention cap is exceeded; sequence numbers keep increasing regardless.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  uint64
	maxSize int
	now     func() time.Time
}

const defaultMaxSize = 2000

// Option configures a [Log] during construction.
type Option func(*Log)

// WithMaxSize caps the number of retained entries. The default is 2000.
func WithMaxSize(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxSize = n
		}
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates an empty event log.
func New(opts ...Option) *Log {
	l := &Log{
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Append records an event and returns its sequence number. name may carry a
// trailing annotation; data may be nil for events without a payload.
func (l *Log) Append(dir Direction, name string, data json.RawMessage) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	l.entries = append(l.entries, Entry{
		ID:        l.nextID,
		Direction: dir,
		EventName: name,
		EventData: data,
		Timestamp: l.now(),
	})
	l.evict()
	return l.nextID
}

// AppendClient records a client-originated event. It marshals payload with
// encoding/json; a payload that cannot be marshalled is logged with a nil body
// rather than dropped, so the order-preserving record stays complete.
func (l *Log) AppendClient(name string, payload any) uint64 {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return l.Append(DirClient, name, data)
}

// AppendServer records a server-originated event with its raw payload.
func (l *Log) AppendServer(name string, data json.RawMessage) uint64 {
	return l.Append(DirServer, name, data)
}

// ToggleExpand flips the display flag of the entry with the given sequence
// number. It reports whether the entry was found (it may have been evicted).
func (l *Log) ToggleExpand(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Expanded = !l.entries[i].Expanded
			return true
		}
	}
	return false
}

// Entries returns a copy of the retained entries in append order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// LastID returns the sequence number of the most recently appended entry,
// or zero when nothing has been appended yet.
func (l *Log) LastID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextID
}

// evict trims the oldest entries beyond maxSize. Must be called with l.mu held.
//
// Survivors are copied to a fresh backing array so evicted payloads do not pin
// memory for the lifetime of the session.
func (l *Log) evict() {
	if len(l.entries) <= l.maxSize {
		return
	}
	keep := l.entries[len(l.entries)-l.maxSize:]
	fresh := make([]Entry, len(keep), l.maxSize)
	copy(fresh, keep)
	l.entries = fresh
}
