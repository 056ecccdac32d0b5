// Package session orchestrates one realtime conversation: it owns the
// transport lifecycle, consumes the inbound event stream in arrival order,
// mutates the transcript store and event log, dispatches model tool calls to
// agent handlers, and performs agent-to-agent handoffs by re-pushing session
// configuration without dropping the connection.
//
// All mutation of the transcript and event log flows through the coordinator:
// either its run loop (inbound events) or its exported methods (user
// actions). The transport layer never touches the stores directly.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicenav/voicenav/internal/agent"
	"github.com/voicenav/voicenav/internal/eventlog"
	"github.com/voicenav/voicenav/internal/observe"
	"github.com/voicenav/voicenav/internal/transcript"
	"github.com/voicenav/voicenav/pkg/realtime"
)

// Status is the connection state machine of one conversation.
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
)

// TurnMode selects how user turns are delimited.
type TurnMode string

const (
	// TurnServerVAD lets the endpoint detect speech boundaries and trigger
	// responses on silence.
	TurnServerVAD TurnMode = "SERVER_VAD"

	// TurnPushToTalk disables server-side voice activity detection; the user
	// delimits turns explicitly via [Coordinator.StartTalking] and
	// [Coordinator.StopTalking].
	TurnPushToTalk TurnMode = "PUSH_TO_TALK"
)

var (
	// ErrNotConnected is returned by user actions that require a live session.
	ErrNotConnected = errors.New("session: not connected")

	// ErrAlreadyConnected is returned by [Coordinator.Connect] when a session
	// is already being established or is live.
	ErrAlreadyConnected = errors.New("session: already connected")

	// ErrNotTalking is returned by [Coordinator.StopTalking] without a
	// preceding [Coordinator.StartTalking].
	ErrNotTalking = errors.New("session: push-to-talk turn not started")
)

// archiveTimeout bounds one best-effort archive write.
const archiveTimeout = 5 * time.Second

// Archive persists finalized transcript items. Write failures are logged and
// never affect the conversation.
type Archive interface {
	WriteItem(ctx context.Context, item transcript.Item) error
}

// Config assembles a [Coordinator]. Registry is required; everything else
// has a usable default.
type Config struct {
	// Registry holds the agent set. Required.
	Registry *agent.Registry

	// StartAgent names the agent initially in control. Defaults to the first
	// registered agent.
	StartAgent string

	// CredentialURL is the endpoint issuing short-lived client secrets.
	// Required unless a custom Dialer ignores the credential.
	CredentialURL string

	// HTTPClient performs the credential fetch. Defaults to
	// [http.DefaultClient].
	HTTPClient *http.Client

	// BaseURL, Model, Voice and Sink configure the realtime transport.
	BaseURL string
	Model   string
	Voice   string
	Sink    realtime.AudioSink

	// TurnMode is the initial turn-taking mode. Defaults to [TurnServerVAD].
	TurnMode TurnMode

	// Transcript and EventLog are the conversation stores. Fresh ones are
	// created when nil so callers that want to render them must pass their
	// own.
	Transcript *transcript.Store
	EventLog   *eventlog.Log

	// Archive, when non-nil, receives finalized message items.
	Archive Archive

	// Metrics may be nil to disable instrumentation.
	Metrics *observe.Metrics

	// Logger defaults to [slog.Default].
	Logger *slog.Logger

	// Dialer opens the transport. Defaults to dialing a real
	// [realtime.Session] from BaseURL/Model/Sink.
	Dialer Dialer

	// NewID generates local item identifiers. Defaults to a 32-character
	// UUID-derived string.
	NewID func() string

	// Now is the clock used for truncation offsets. Defaults to [time.Now].
	Now func() time.Time
}

// conn is the per-connection state. A fresh conn is created on every
// [Coordinator.Connect]; tool handlers settling after a disconnect detect
// the stale conn and no-op instead of sending on a dead channel.
type conn struct {
	tr     Transport
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator drives one conversation end to end. All exported methods are
// safe for concurrent use; inbound events are processed strictly in arrival
// order by a single run loop.
type Coordinator struct {
	registry      *agent.Registry
	credentialURL string
	httpClient    *http.Client
	voice         string
	dial          Dialer
	newID         func() string
	now           func() time.Time

	transcript *transcript.Store
	eventLog   *eventlog.Log
	archive    Archive
	metrics    *observe.Metrics
	logger     *slog.Logger

	mu       sync.Mutex
	status   Status
	active   *agent.Definition
	turnMode TurnMode
	talking  bool
	conn     *conn
}

// New validates cfg and builds a disconnected [Coordinator].
func New(cfg Config) (*Coordinator, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("session: config: registry is required")
	}

	start, ok := cfg.Registry.First()
	if cfg.StartAgent != "" {
		start, ok = cfg.Registry.Lookup(cfg.StartAgent)
		if !ok {
			return nil, fmt.Errorf("session: config: start agent %q not registered", cfg.StartAgent)
		}
	}
	if !ok {
		return nil, fmt.Errorf("session: config: registry has no agents")
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.TurnMode == "" {
		cfg.TurnMode = TurnServerVAD
	}
	if cfg.Transcript == nil {
		cfg.Transcript = transcript.NewStore()
	}
	if cfg.EventLog == nil {
		cfg.EventLog = eventlog.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = NewItemID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Dialer == nil {
		rc := realtime.Config{BaseURL: cfg.BaseURL, Model: cfg.Model, Sink: cfg.Sink}
		cfg.Dialer = func(ctx context.Context, credential string) (Transport, error) {
			rc := rc
			rc.Credential = credential
			return realtime.Dial(ctx, rc)
		}
	}

	return &Coordinator{
		registry:      cfg.Registry,
		credentialURL: cfg.CredentialURL,
		httpClient:    cfg.HTTPClient,
		voice:         cfg.Voice,
		dial:          cfg.Dialer,
		newID:         cfg.NewID,
		now:           cfg.Now,
		transcript:    cfg.Transcript,
		eventLog:      cfg.EventLog,
		archive:       cfg.Archive,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		status:        StatusDisconnected,
		active:        start,
		turnMode:      cfg.TurnMode,
	}, nil
}

// NewItemID generates a locally assigned conversation item identifier.
func NewItemID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Status returns the connection state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ActiveAgent returns the name of the agent currently in control.
func (c *Coordinator) ActiveAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active.Name
}

// TurnMode returns the current turn-taking mode.
func (c *Coordinator) TurnMode() TurnMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnMode
}

// Connect fetches a credential, dials the transport, and starts the run
// loop. The session reports [StatusConnected] once the endpoint acknowledges
// it. Any failure reverts to [StatusDisconnected]; retries are the caller's
// decision.
func (c *Coordinator) Connect(ctx context.Context) error {
	ctx, span := observe.StartSpan(ctx, "session.connect")
	defer span.End()

	c.mu.Lock()
	if c.status != StatusDisconnected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.status = StatusConnecting
	c.mu.Unlock()

	var credential string
	if c.credentialURL != "" {
		var err error
		credential, err = realtime.FetchClientSecret(ctx, c.httpClient, c.credentialURL)
		if err != nil {
			c.setDisconnected()
			return fmt.Errorf("session: fetching credential: %w", err)
		}
	}

	tr, err := c.dial(ctx, credential)
	if err != nil {
		c.setDisconnected()
		return fmt.Errorf("session: connecting transport: %w", err)
	}

	cnCtx, cancel := context.WithCancel(context.Background())
	cn := &conn{tr: tr, ctx: cnCtx, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	// Disconnect may have run while the dial was in flight; a session the
	// caller already tore down must not come back up.
	if c.status != StatusConnecting {
		c.mu.Unlock()
		cancel()
		if cerr := tr.Close(); cerr != nil {
			c.logger.Debug("closing transport", "error", cerr)
		}
		return fmt.Errorf("session: disconnected while connecting: %w", ErrNotConnected)
	}
	c.conn = cn
	c.mu.Unlock()

	c.metrics.SessionStarted(ctx)
	go c.run(cn)
	return nil
}

// Disconnect tears the session down and discards in-flight tool calls.
// Idempotent; disconnecting a disconnected coordinator is a no-op.
func (c *Coordinator) Disconnect() {
	c.mu.Lock()
	cn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.talking = false
	c.mu.Unlock()

	if cn == nil {
		return
	}
	cn.cancel()
	if err := cn.tr.Close(); err != nil {
		c.logger.Debug("closing transport", "error", err)
	}
	<-cn.done
	c.metrics.SessionEnded(context.Background())
	c.logger.Info("session disconnected")
}

// SetAudioEnabled toggles output audio playback. A no-op while disconnected.
func (c *Coordinator) SetAudioEnabled(enabled bool) {
	c.mu.Lock()
	cn := c.conn
	c.mu.Unlock()
	if cn != nil {
		cn.tr.SetAudioEnabled(enabled)
	}
}

// SetTurnMode switches between server voice activity detection and
// push-to-talk. While connected this triggers exactly one configuration
// push, preceded by an input buffer clear, so the new policy never applies
// to audio captured under the old one.
func (c *Coordinator) SetTurnMode(mode TurnMode) error {
	if mode != TurnServerVAD && mode != TurnPushToTalk {
		return fmt.Errorf("session: unknown turn mode %q", mode)
	}

	c.mu.Lock()
	if c.turnMode == mode {
		c.mu.Unlock()
		return nil
	}
	c.turnMode = mode
	c.talking = false
	cn, connected := c.conn, c.status == StatusConnected
	c.mu.Unlock()

	if connected {
		c.pushConfig(cn)
	}
	return nil
}

// SendUserText submits a typed user turn. If the assistant is still speaking
// the in-progress item is truncated and the response cancelled first.
func (c *Coordinator) SendUserText(text string) error {
	cn, err := c.liveConn()
	if err != nil {
		return err
	}

	c.interruptAssistant(cn)

	id := c.newID()
	c.transcript.AddMessage(id, transcript.RoleUser, text, false)
	c.send(cn, realtime.NewUserMessage(id, text))
	c.send(cn, realtime.NewResponseCreate())
	return nil
}

// StartTalking opens a push-to-talk turn: any in-progress assistant speech
// is interrupted and the input buffer cleared. Valid only while connected in
// [TurnPushToTalk] mode.
func (c *Coordinator) StartTalking() error {
	cn, err := c.liveConn()
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.turnMode != TurnPushToTalk {
		c.mu.Unlock()
		return fmt.Errorf("session: push-to-talk is not the active turn mode")
	}
	c.talking = true
	c.mu.Unlock()

	c.interruptAssistant(cn)
	c.send(cn, realtime.NewInputAudioBufferClear())
	return nil
}

// SendAudio appends base64-encoded pcm16 audio to the open push-to-talk turn.
func (c *Coordinator) SendAudio(audioB64 string) error {
	cn, err := c.liveConn()
	if err != nil {
		return err
	}
	c.mu.Lock()
	talking := c.talking
	c.mu.Unlock()
	if !talking {
		return ErrNotTalking
	}
	c.send(cn, realtime.NewInputAudioBufferAppend(audioB64))
	return nil
}

// StopTalking closes the push-to-talk turn: the buffered audio is committed
// and a response requested.
func (c *Coordinator) StopTalking() error {
	cn, err := c.liveConn()
	if err != nil {
		return err
	}
	c.mu.Lock()
	talking := c.talking
	c.talking = false
	c.mu.Unlock()
	if !talking {
		return ErrNotTalking
	}
	c.send(cn, realtime.NewInputAudioBufferCommit())
	c.send(cn, realtime.NewResponseCreate())
	return nil
}

// SelectAgent hands control to the named agent directly, outside the tool
// driven transfer path. The session stays connected; the agent's
// configuration is pushed immediately.
func (c *Coordinator) SelectAgent(name string) error {
	def, ok := c.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("session: unknown agent %q", name)
	}
	cn, err := c.liveConn()
	if err != nil {
		return err
	}
	c.mu.Lock()
	same := c.active.Name == name
	c.mu.Unlock()
	if same {
		return nil
	}
	c.transferTo(cn, def)
	return nil
}

// ── internals ──────────────────────────────────────────────────────────────────

func (c *Coordinator) setDisconnected() {
	c.mu.Lock()
	c.status = StatusDisconnected
	c.mu.Unlock()
}

// liveConn returns the current connection when the session is CONNECTED.
func (c *Coordinator) liveConn() (*conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusConnected || c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// run is the single consumer of the inbound event stream. Every event is
// appended to the event log before dispatch so the log is a complete,
// order-preserving record of the wire.
func (c *Coordinator) run(cn *conn) {
	defer close(cn.done)

	for evt := range cn.tr.Events() {
		c.eventLog.AppendServer(evt.Type, evt.Raw)
		c.metrics.AddEventReceived(cn.ctx, evt.Type)
		c.dispatch(cn, evt)
	}

	cn.cancel()
	c.mu.Lock()
	stale := c.conn != cn
	if !stale {
		c.conn = nil
		c.status = StatusDisconnected
	}
	c.mu.Unlock()
	if !stale {
		c.metrics.SessionEnded(context.Background())
		c.logger.Info("transport closed by peer")
	}
}

// send logs and transmits one client event. A channel that is no longer open
// drops the event observably: a log entry, a metric, never a crash.
func (c *Coordinator) send(cn *conn, evt realtime.ClientEvent) {
	c.eventLog.AppendClient(evt.EventType(), evt)
	if err := cn.tr.Send(cn.ctx, evt); err != nil {
		c.eventLog.AppendClient("error.data_channel_not_open", map[string]any{
			"attempted_event": evt.EventType(),
			"error":           err.Error(),
		})
		c.metrics.AddSendFailure(cn.ctx)
		c.logger.Warn("dropping client event, channel not open",
			"event", evt.EventType(), "error", err)
		return
	}
	c.metrics.AddEventSent(cn.ctx, evt.EventType())
}

// pushConfig re-sends the full session configuration for the active agent:
// instructions verbatim, the advertised tool list, and the turn-detection
// policy. The input buffer is cleared first.
func (c *Coordinator) pushConfig(cn *conn) {
	c.mu.Lock()
	def := c.active
	mode := c.turnMode
	c.mu.Unlock()

	var td *realtime.TurnDetection
	if mode == TurnServerVAD {
		td = realtime.ServerVAD()
	}

	c.send(cn, realtime.NewInputAudioBufferClear())
	c.send(cn, realtime.NewSessionUpdate(def.Instructions, c.voice, wireTools(def.Tools), td))
}

// wireTools converts declared tool schemas into the wire tool format.
func wireTools(schemas []agent.ToolSchema) []realtime.Tool {
	tools := make([]realtime.Tool, len(schemas))
	for i, s := range schemas {
		tools[i] = realtime.Tool{
			Type:        "function",
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		}
	}
	return tools
}

// interruptAssistant stops in-progress assistant speech before a new user
// turn. A DONE item needs nothing; an IN_PROGRESS one gets exactly one
// truncate directive with the elapsed playback offset, then one cancel.
func (c *Coordinator) interruptAssistant(cn *conn) {
	item, ok := c.transcript.LastAssistantMessage()
	if !ok || item.Status == transcript.StatusDone {
		return
	}
	elapsedMs := c.now().Sub(item.CreatedAt).Milliseconds()
	c.send(cn, realtime.NewItemTruncate(item.ItemID, elapsedMs))
	c.send(cn, realtime.NewResponseCancel())
}

// transferTo hands conversational control to def: active agent update,
// transfer breadcrumb, configuration push. The transport connection is
// untouched.
func (c *Coordinator) transferTo(cn *conn, def *agent.Definition) {
	c.mu.Lock()
	from := c.active.Name
	c.active = def
	c.mu.Unlock()

	c.transcript.AddBreadcrumb(c.newID(), "Agent: "+def.Name, nil)
	c.pushConfig(cn)
	c.metrics.AddTransfer(cn.ctx, from, def.Name)
	c.logger.Info("agent transfer", "from", from, "to", def.Name)
}

// greet injects a synthetic, hidden user greeting right after the first
// configuration push so the model speaks first.
func (c *Coordinator) greet(cn *conn) {
	id := c.newID()
	c.transcript.AddMessage(id, transcript.RoleUser, "hi", true)
	c.send(cn, realtime.NewUserMessage(id, "hi"))
	c.send(cn, realtime.NewResponseCreate())
}

// archiveItem tees a finalized message item to the archive, best effort.
func (c *Coordinator) archiveItem(itemID string) {
	if c.archive == nil {
		return
	}
	item, ok := c.transcript.Get(itemID)
	if !ok || item.Type != transcript.TypeMessage {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := c.archive.WriteItem(ctx, item); err != nil {
			c.logger.Warn("archiving transcript item", "item_id", item.ItemID, "error", err)
		}
	}()
}

// marshalResult renders a tool result for the function-call output item.
func marshalResult(result map[string]any) string {
	out, err := json.Marshal(result)
	if err != nil {
		return `{"error":"unserializable tool result"}`
	}
	return string(out)
}
