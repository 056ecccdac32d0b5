// Package realtime implements the transport session to a realtime
// speech/text model endpoint.
//
// It establishes a bidirectional WebSocket connection authenticated with a
// short-lived credential and exchanges JSON events keyed by a "type"
// discriminator. Inbound events are delivered on an ordered channel exactly
// as they arrive on the wire, without reordering or coalescing, while audio
// deltas are additionally decoded into an [AudioSink] whose enabled state is
// independently controllable.
//
// All session methods are safe for concurrent use.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
)

const (
	// DefaultBaseURL is the production realtime endpoint.
	DefaultBaseURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is the realtime model dialed when none is configured.
	DefaultModel = "gpt-4o-realtime-preview"

	// eventChanBuf is the buffer depth of the inbound event channel. The
	// consumer must drain promptly; a full buffer stalls the receive loop
	// rather than dropping or reordering events.
	eventChanBuf = 64
)

// ErrSessionClosed is returned by [Session.Send] after the session has been
// closed. Callers log and drop the event; sending on a dead session is never
// a crash.
var ErrSessionClosed = errors.New("realtime: session closed")

// Config holds everything needed to dial a realtime session.
type Config struct {
	// BaseURL is the WebSocket endpoint. Defaults to [DefaultBaseURL].
	BaseURL string

	// Model selects the realtime model. Defaults to [DefaultModel].
	Model string

	// Credential is the short-lived client secret obtained from the
	// credential endpoint (see [FetchClientSecret]).
	Credential string

	// Sink receives decoded output audio. Defaults to [NopSink].
	Sink AudioSink
}

// Session is an open realtime transport session.
type Session struct {
	conn   *websocket.Conn
	events chan ServerEvent

	sink         AudioSink
	audioEnabled atomic.Bool

	mu     sync.Mutex
	closed bool
	errVal error

	ctx    context.Context
	cancel context.CancelFunc
}

// Dial negotiates a realtime session using the given short-lived credential.
// The returned session is ready to send immediately; inbound events arrive
// on [Session.Events] in wire order until the session ends.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Credential == "" {
		return nil, fmt.Errorf("realtime: dial: empty credential")
	}

	wsURL := fmt.Sprintf("%s?model=%s", cfg.BaseURL, cfg.Model)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + cfg.Credential},
			"OpenAI-Beta":   []string{"realtime=v1"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}

	sessCtx, sessCancel := context.WithCancel(context.Background())
	s := &Session{
		conn:   conn,
		events: make(chan ServerEvent, eventChanBuf),
		sink:   cfg.Sink,
		ctx:    sessCtx,
		cancel: sessCancel,
	}
	s.audioEnabled.Store(true)

	go s.receiveLoop()

	return s, nil
}

// Events returns the ordered stream of inbound events. The channel is closed
// when the session ends; call [Session.Err] afterwards to distinguish a clean
// close from a transport failure.
func (s *Session) Events() <-chan ServerEvent { return s.events }

// Send serializes and transmits a client event. After Close it returns
// [ErrSessionClosed]; the caller must not assume delivery either way.
func (s *Session) Send(ctx context.Context, evt ClientEvent) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("realtime: marshal %s: %w", evt.EventType(), err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("realtime: send %s: %w", evt.EventType(), err)
	}
	return nil
}

// SetAudioEnabled toggles playback into the audio sink without touching the
// session. Audio deltas received while disabled are dropped.
func (s *Session) SetAudioEnabled(enabled bool) { s.audioEnabled.Store(enabled) }

// AudioEnabled reports whether output audio is currently played to the sink.
func (s *Session) AudioEnabled() bool { return s.audioEnabled.Load() }

// Err returns the transport error that terminated the session, or nil after
// a clean close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}

// Close tears the session down: it cancels the receive loop and closes the
// underlying connection. Idempotent: closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.conn.Close(websocket.StatusNormalClosure, "session closed")
	return nil
}

// receiveLoop reads frames until the connection closes, preserving arrival
// order on the events channel. It owns the channel and closes it on exit.
func (s *Session) receiveLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				s.setErr(err)
			}
			return
		}

		evt, err := ParseServerEvent(data)
		if err != nil {
			// Frames without a readable envelope are still surfaced so the
			// event log stays a complete record.
			evt = ServerEvent{Type: "unparsed", Raw: append(json.RawMessage(nil), data...)}
		}

		if evt.Type == "response.audio.delta" {
			s.playDelta(evt.Delta)
		}

		select {
		case s.events <- evt:
		case <-s.ctx.Done():
			return
		}
	}
}

// playDelta decodes one base64 PCM16 chunk into the sink when playback is
// enabled. Undecodable chunks are dropped silently; the protocol event itself
// is still delivered and logged upstream.
func (s *Session) playDelta(deltaB64 string) {
	if deltaB64 == "" || !s.audioEnabled.Load() {
		return
	}
	pcm, err := base64.StdEncoding.DecodeString(deltaB64)
	if err != nil || len(pcm) == 0 {
		return
	}
	s.sink.Play(pcm)
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errVal == nil {
		s.errVal = err
	}
}
