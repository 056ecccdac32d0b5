package realtime

import "encoding/json"

// ClientEvent is any client→server protocol event. Implementations are plain
// structs whose Type field carries the wire discriminator; EventType exposes
// it for logging without re-marshalling.
type ClientEvent interface {
	EventType() string
}

// ── Session configuration ──────────────────────────────────────────────────────

// TurnDetection is the server-side voice-activity-detection policy. A nil
// *TurnDetection in [SessionPayload] marshals to an explicit null, which
// disables silence-triggered turns entirely (push-to-talk mode).
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	CreateResponse    bool    `json:"create_response"`
}

// VAD tuning. Fixed detection parameters applied whenever server VAD is on.
const (
	vadThreshold         = 0.5
	vadPrefixPaddingMs   = 300
	vadSilenceDurationMs = 200
)

// ServerVAD returns the standard server voice-activity-detection policy with
// automatic response triggering on silence.
func ServerVAD() *TurnDetection {
	return &TurnDetection{
		Type:              "server_vad",
		Threshold:         vadThreshold,
		PrefixPaddingMs:   vadPrefixPaddingMs,
		SilenceDurationMs: vadSilenceDurationMs,
		CreateResponse:    true,
	}
}

// Tool is one tool schema in the wire format the endpoint expects.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// SessionPayload is the session object of a session.update event. TurnDetection
// is deliberately not omitempty: push-to-talk requires an explicit null.
type SessionPayload struct {
	Modalities              []string       `json:"modalities"`
	Instructions            string         `json:"instructions"`
	Voice                   string         `json:"voice,omitempty"`
	InputAudioFormat        string         `json:"input_audio_format"`
	OutputAudioFormat       string         `json:"output_audio_format"`
	InputAudioTranscription *Transcription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection `json:"turn_detection"`
	Tools                   []Tool         `json:"tools"`
}

// Transcription selects the model used to transcribe user input audio.
type Transcription struct {
	Model string `json:"model"`
}

// SessionUpdateEvent replaces the full session configuration: instructions,
// tool list, and turn-detection policy.
type SessionUpdateEvent struct {
	Type    string         `json:"type"`
	Session SessionPayload `json:"session"`
}

func (e SessionUpdateEvent) EventType() string { return e.Type }

// NewSessionUpdate builds a full configuration push for the given agent
// configuration. turnDetection may be nil for push-to-talk.
func NewSessionUpdate(instructions, voice string, tools []Tool, turnDetection *TurnDetection) SessionUpdateEvent {
	if tools == nil {
		tools = []Tool{}
	}
	return SessionUpdateEvent{
		Type: "session.update",
		Session: SessionPayload{
			Modalities:              []string{"text", "audio"},
			Instructions:            instructions,
			Voice:                   voice,
			InputAudioFormat:        "pcm16",
			OutputAudioFormat:       "pcm16",
			InputAudioTranscription: &Transcription{Model: "whisper-1"},
			TurnDetection:           turnDetection,
			Tools:                   tools,
		},
	}
}

// ── Input audio buffer events ──────────────────────────────────────────────────

// SimpleEvent is a client event consisting solely of a type discriminator.
type SimpleEvent struct {
	Type string `json:"type"`
}

func (e SimpleEvent) EventType() string { return e.Type }

// NewInputAudioBufferClear discards any audio buffered but not yet committed.
func NewInputAudioBufferClear() SimpleEvent {
	return SimpleEvent{Type: "input_audio_buffer.clear"}
}

// NewInputAudioBufferCommit commits the buffered audio as a user turn.
func NewInputAudioBufferCommit() SimpleEvent {
	return SimpleEvent{Type: "input_audio_buffer.commit"}
}

// NewResponseCreate asks the model to produce a response now.
func NewResponseCreate() SimpleEvent {
	return SimpleEvent{Type: "response.create"}
}

// NewResponseCancel aborts the in-flight model response.
func NewResponseCancel() SimpleEvent {
	return SimpleEvent{Type: "response.cancel"}
}

// AppendAudioEvent streams one base64-encoded PCM16 chunk into the input
// audio buffer.
type AppendAudioEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

func (e AppendAudioEvent) EventType() string { return e.Type }

// NewInputAudioBufferAppend wraps an already base64-encoded PCM16 chunk.
func NewInputAudioBufferAppend(audioB64 string) AppendAudioEvent {
	return AppendAudioEvent{Type: "input_audio_buffer.append", Audio: audioB64}
}

// ── Conversation item events ───────────────────────────────────────────────────

// ContentPart is one content element of a conversation item. Text parts
// carry their content in Text; audio parts carry the spoken words in
// Transcript.
type ContentPart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// ConversationItem is the item object of item create events and of
// server-side item lifecycle events.
type ConversationItem struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
	Name    string        `json:"name,omitempty"`
}

// ItemCreateEvent inserts a conversation item.
type ItemCreateEvent struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

func (e ItemCreateEvent) EventType() string { return e.Type }

// NewUserMessage creates a user text message item with a locally generated ID.
func NewUserMessage(itemID, text string) ItemCreateEvent {
	return ItemCreateEvent{
		Type: "conversation.item.create",
		Item: ConversationItem{
			ID:      itemID,
			Type:    "message",
			Role:    "user",
			Content: []ContentPart{{Type: "input_text", Text: text}},
		},
	}
}

// NewFunctionCallOutput delivers a tool call's result, keyed by the call ID
// the model assigned, so the model can continue the turn.
func NewFunctionCallOutput(callID, output string) ItemCreateEvent {
	return ItemCreateEvent{
		Type: "conversation.item.create",
		Item: ConversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	}
}

// ItemTruncateEvent cuts an assistant item's audio at the given offset; sent
// when the user interrupts in-progress speech.
type ItemTruncateEvent struct {
	Type         string `json:"type"`
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int64  `json:"audio_end_ms"`
}

func (e ItemTruncateEvent) EventType() string { return e.Type }

// NewItemTruncate truncates itemID's first content part at audioEndMs.
// Negative offsets are clamped to zero.
func NewItemTruncate(itemID string, audioEndMs int64) ItemTruncateEvent {
	if audioEndMs < 0 {
		audioEndMs = 0
	}
	return ItemTruncateEvent{
		Type:       "conversation.item.truncate",
		ItemID:     itemID,
		AudioEndMs: audioEndMs,
	}
}

// ── Server events ──────────────────────────────────────────────────────────────

// ErrorDetail is the nested error object of a server error event.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ServerEvent is the decoded envelope of one inbound protocol event. Fields
// are a union across event types; consumers switch on Type and read the
// fields that type defines. Raw preserves the full payload for the event log.
type ServerEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`

	// Streaming deltas (response.audio.delta, response.audio_transcript.delta).
	ItemID string `json:"item_id,omitempty"`
	Delta  string `json:"delta,omitempty"`

	// conversation.item.input_audio_transcription.completed and
	// response.audio_transcript.done
	Transcript string `json:"transcript,omitempty"`

	// response.function_call_arguments.done
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`

	// Item lifecycle events.
	Item *ConversationItem `json:"item,omitempty"`

	// error
	Error *ErrorDetail `json:"error,omitempty"`

	// Raw is the undecoded payload as received on the wire.
	Raw json.RawMessage `json:"-"`
}

// ParseServerEvent decodes one inbound frame, retaining the raw payload.
// The frame is returned even when only the type discriminator could be read.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var evt ServerEvent
	err := json.Unmarshal(data, &evt)
	evt.Raw = append(json.RawMessage(nil), data...)
	return evt, err
}
