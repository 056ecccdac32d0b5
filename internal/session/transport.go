package session

import (
	"context"

	"github.com/voicenav/voicenav/pkg/realtime"
)

// Transport is the slice of [realtime.Session] the coordinator depends on.
// Tests substitute a scripted implementation; production uses the real
// WebSocket session.
type Transport interface {
	// Events returns the ordered stream of inbound protocol events. The
	// channel closes when the transport ends.
	Events() <-chan realtime.ServerEvent

	// Send serializes and transmits a client event. It returns an error when
	// the channel is no longer open; delivery is never guaranteed.
	Send(ctx context.Context, evt realtime.ClientEvent) error

	// SetAudioEnabled toggles output audio playback without tearing down
	// the connection.
	SetAudioEnabled(enabled bool)

	// Close tears the transport down. Idempotent.
	Close() error
}

// Compile-time check that the real session satisfies [Transport].
var _ Transport = (*realtime.Session)(nil)

// Dialer opens a [Transport] using a short-lived credential. The coordinator
// calls it once per connection attempt.
type Dialer func(ctx context.Context, credential string) (Transport, error)
