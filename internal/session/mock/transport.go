// Package mock provides a scripted transport for coordinator tests: inbound
// events are pushed with [Transport.Emit], outbound events are recorded for
// inspection.
package mock

import (
	"context"
	"sync"

	"github.com/voicenav/voicenav/pkg/realtime"
)

// Transport is an in-memory stand-in for a realtime session.
// Safe for concurrent use.
type Transport struct {
	mu      sync.Mutex
	sent    []realtime.ClientEvent
	closed  bool
	enabled bool

	// SendErr, when set, is returned by every subsequent Send call.
	SendErr error

	events chan realtime.ServerEvent
}

// NewTransport returns an open transport with audio enabled.
func NewTransport() *Transport {
	return &Transport{
		enabled: true,
		events:  make(chan realtime.ServerEvent, 64),
	}
}

// Events returns the scripted inbound stream.
func (t *Transport) Events() <-chan realtime.ServerEvent { return t.events }

// Send records evt. After Close it returns [realtime.ErrSessionClosed].
func (t *Transport) Send(_ context.Context, evt realtime.ClientEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return realtime.ErrSessionClosed
	}
	if t.SendErr != nil {
		return t.SendErr
	}
	t.sent = append(t.sent, evt)
	return nil
}

// SetAudioEnabled records the playback toggle.
func (t *Transport) SetAudioEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// AudioEnabled reports the last playback toggle.
func (t *Transport) AudioEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Close ends the inbound stream. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.events)
	return nil
}

// Closed reports whether Close has been called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Emit pushes one inbound event, as if received on the wire.
func (t *Transport) Emit(evt realtime.ServerEvent) {
	t.events <- evt
}

// Sent returns a snapshot of all recorded outbound events in send order.
func (t *Transport) Sent() []realtime.ClientEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]realtime.ClientEvent, len(t.sent))
	copy(out, t.sent)
	return out
}

// SentTypes returns the type discriminators of all recorded outbound events.
func (t *Transport) SentTypes() []string {
	sent := t.Sent()
	types := make([]string, len(sent))
	for i, evt := range sent {
		types[i] = evt.EventType()
	}
	return types
}
