package session

import (
	"encoding/json"

	"github.com/voicenav/voicenav/internal/agent"
	"github.com/voicenav/voicenav/internal/observe"
	"github.com/voicenav/voicenav/internal/transcript"
	"github.com/voicenav/voicenav/pkg/realtime"
)

// dispatch interprets one inbound event. Unrecognized types have already
// been logged by the run loop and need nothing further; nothing here raises.
func (c *Coordinator) dispatch(cn *conn, evt realtime.ServerEvent) {
	switch evt.Type {
	case "session.created":
		c.onSessionCreated(cn)

	case "conversation.item.created":
		c.onItemCreated(evt)

	case "conversation.item.input_audio_transcription.completed":
		c.onUserTranscriptionCompleted(evt)

	case "response.audio_transcript.delta":
		c.transcript.AppendText(evt.ItemID, transcript.RoleAssistant, evt.Delta)

	case "response.audio_transcript.done":
		c.onAssistantTranscriptDone(evt)

	case "response.output_item.done":
		c.onOutputItemDone(evt)

	case "response.function_call_arguments.done":
		c.onFunctionCall(cn, evt)

	case "response.audio.delta", "output_audio_buffer.stopped":
		// Audio plumbing is handled inside the transport; these carry no
		// transcript semantics.

	case "error":
		c.onServerError(evt)
	}
}

// onSessionCreated marks the session live and performs the initial
// configuration handshake: agent breadcrumb, configuration push, synthetic
// greeting.
func (c *Coordinator) onSessionCreated(cn *conn) {
	c.mu.Lock()
	c.status = StatusConnected
	name := c.active.Name
	c.mu.Unlock()

	c.logger.Info("session established", "agent", name)
	c.transcript.AddBreadcrumb(c.newID(), "Agent: "+name, nil)
	c.pushConfig(cn)
	c.greet(cn)
}

// onItemCreated inserts a placeholder message item. Items the coordinator
// already created locally (typed user turns, the greeting) are left alone so
// their text and hidden flag survive the server echo.
func (c *Coordinator) onItemCreated(evt realtime.ServerEvent) {
	item := evt.Item
	if item == nil || item.Type != "message" || item.ID == "" {
		return
	}
	if _, exists := c.transcript.Get(item.ID); exists {
		return
	}
	c.transcript.AddMessage(item.ID, transcript.Role(item.Role), itemText(item), false)
}

// onUserTranscriptionCompleted replaces the user item's text with the final
// transcription. An empty or whitespace-only transcript renders as
// "[inaudible]".
func (c *Coordinator) onUserTranscriptionCompleted(evt realtime.ServerEvent) {
	final := evt.Transcript
	if final == "" || final == "\n" {
		final = "[inaudible]"
	}
	c.transcript.SetText(evt.ItemID, final)
}

// onAssistantTranscriptDone replaces the assistant item's streamed text with
// the authoritative final transcript when the two diverge.
func (c *Coordinator) onAssistantTranscriptDone(evt realtime.ServerEvent) {
	if evt.ItemID == "" || evt.Transcript == "" {
		return
	}
	if current, ok := c.transcript.Get(evt.ItemID); ok && current.Title != evt.Transcript {
		c.transcript.SetText(evt.ItemID, evt.Transcript)
	}
}

// onOutputItemDone finalizes an assistant item. When the final text differs
// from the streamed concatenation the title is overwritten; either way the
// status transition to DONE happens exactly once.
func (c *Coordinator) onOutputItemDone(evt realtime.ServerEvent) {
	item := evt.Item
	if item == nil || item.ID == "" {
		return
	}
	if final := itemText(item); final != "" {
		if current, ok := c.transcript.Get(item.ID); ok && current.Title != final {
			c.transcript.SetText(item.ID, final)
		}
	}
	c.transcript.Complete(item.ID)
	c.archiveItem(item.ID)
}

// onServerError records a remote error as a breadcrumb. The connection
// remains usable; endpoint errors are turn-scoped, not session-scoped.
func (c *Coordinator) onServerError(evt realtime.ServerEvent) {
	msg := "unknown error"
	var data any
	if evt.Error != nil {
		msg = evt.Error.Message
		data = evt.Error
	}
	c.logger.Warn("server error event", "message", msg)
	c.transcript.AddBreadcrumb(c.newID(), "error: "+msg, data)
}

// ── Tool dispatch & agent transfer ─────────────────────────────────────────────

// onFunctionCall handles a completed tool-call request. Local handlers run
// in their own goroutine so the event stream keeps flowing while the call is
// pending; the synthesized transfer tool resolves inline; a tool with no
// local handler is left to the model.
func (c *Coordinator) onFunctionCall(cn *conn, evt realtime.ServerEvent) {
	args := map[string]any{}
	if evt.Arguments != "" {
		if err := json.Unmarshal([]byte(evt.Arguments), &args); err != nil {
			c.logger.Warn("undecodable tool arguments", "tool", evt.Name, "error", err)
		}
	}
	c.transcript.AddBreadcrumb(c.newID(), "function call: "+evt.Name, args)

	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if handler, ok := active.Handler(evt.Name); ok {
		go c.runHandler(cn, handler, evt.Name, evt.CallID, args)
		return
	}

	if evt.Name == agent.TransferToolName {
		c.handleTransferCall(cn, evt.CallID, args)
		return
	}

	c.logger.Debug("tool has no local handler", "tool", evt.Name, "agent", active.Name)
}

// runHandler executes one local tool handler and completes the tool-call
// cycle: result breadcrumb, optional agent transfer, exactly one
// function-call output. A handler settling after disconnect detects the
// stale connection and no-ops.
func (c *Coordinator) runHandler(cn *conn, handler agent.Handler, tool, callID string, args map[string]any) {
	ctx, span := observe.StartSpan(cn.ctx, "tool."+tool)
	defer span.End()
	logger := observe.Logger(ctx)

	start := c.now()
	result, err := handler(ctx, args)
	status := "ok"
	if err != nil {
		// Handlers are expected to catch their own failures; a returned
		// error still completes the cycle as a user-facing error result.
		status = "error"
		logger.Warn("tool handler failed", "tool", tool, "error", err)
		result = map[string]any{"error": "The tool could not complete your request. Please try again."}
	}
	c.metrics.RecordToolCall(ctx, tool, status, c.now().Sub(start).Seconds())

	c.mu.Lock()
	stale := c.conn != cn
	c.mu.Unlock()
	if stale {
		logger.Debug("discarding tool result, session gone", "tool", tool, "call_id", callID)
		return
	}

	c.transcript.AddBreadcrumb(c.newID(), "function call result: "+tool, result)

	if target, ok := transferTarget(result); ok {
		if def, known := c.registry.Lookup(target); known {
			c.transferTo(cn, def)
		} else {
			logger.Warn("transfer target unknown, staying with active agent",
				"tool", tool, "target", target)
			c.eventLog.AppendClient("error.transfer_target_unknown", map[string]any{
				"tool":   tool,
				"target": target,
			})
		}
	}

	c.send(cn, realtime.NewFunctionCallOutput(callID, marshalResult(result)))
	c.send(cn, realtime.NewResponseCreate())
}

// handleTransferCall resolves the synthesized transfer tool. An unknown
// destination drops the transfer but still delivers the output, so the model
// learns the handoff did not happen.
func (c *Coordinator) handleTransferCall(cn *conn, callID string, args map[string]any) {
	target, _ := args["destination_agent"].(string)
	def, known := c.registry.Lookup(target)
	if known {
		c.transferTo(cn, def)
	} else {
		c.logger.Warn("transfer target unknown, staying with active agent", "target", target)
	}

	result := map[string]any{
		"destination_agent": target,
		"did_transfer":      known,
	}
	c.transcript.AddBreadcrumb(c.newID(), "function call result: "+agent.TransferToolName, result)
	c.send(cn, realtime.NewFunctionCallOutput(callID, marshalResult(result)))
}

// transferTarget extracts the transfer directive from a tool result.
// "nextAgent" is canonical; "switchAgent" is accepted as a legacy alias.
func transferTarget(result map[string]any) (string, bool) {
	for _, key := range []string{"nextAgent", "switchAgent"} {
		if target, ok := result[key].(string); ok && target != "" {
			return target, true
		}
	}
	return "", false
}

// itemText joins the text content of a conversation item. Audio parts carry
// their words in the transcript field instead of text.
func itemText(item *realtime.ConversationItem) string {
	var text string
	for _, part := range item.Content {
		if part.Text != "" {
			text += part.Text
			continue
		}
		text += part.Transcript
	}
	return text
}
