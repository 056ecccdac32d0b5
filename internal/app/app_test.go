package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voicenav/voicenav/internal/config"
	"github.com/voicenav/voicenav/internal/session"
	"github.com/voicenav/voicenav/internal/session/mock"
	"github.com/voicenav/voicenav/pkg/realtime"
)

const agentSetDoc = `
agents:
  - name: concierge
    public_description: Front desk.
    instructions: You are the concierge.
    downstream_agents: [porter]
  - name: porter
    public_description: Carries things.
    instructions: You are the porter.
`

func writeAgentSet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(agentSetDoc), 0o600); err != nil {
		t.Fatalf("writing agent set: %v", err)
	}
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Realtime: config.RealtimeConfig{CredentialURL: "http://localhost:3000/api/session"},
		Agents:   config.AgentsConfig{File: writeAgentSet(t)},
	}
}

func TestBuildRegistry_FromFile(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	reg, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry() error: %v", err)
	}
	if _, ok := reg.Lookup("concierge"); !ok {
		t.Error("concierge missing from loaded set")
	}
	if _, ok := reg.Lookup("porter"); !ok {
		t.Error("porter missing from loaded set")
	}
}

func TestBuildRegistry_BuiltinSetNeedsBackend(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: "http://localhost:8000"},
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry() error: %v", err)
	}
	if _, ok := reg.Lookup("voiceNavigator"); !ok {
		t.Error("built-in set missing voiceNavigator")
	}
}

func TestTurnMode_Mapping(t *testing.T) {
	t.Parallel()

	if got := turnMode(config.TurnPushToTalk); got != session.TurnPushToTalk {
		t.Errorf("push_to_talk maps to %s", got)
	}
	if got := turnMode(""); got != session.TurnServerVAD {
		t.Errorf("default maps to %s, want server VAD", got)
	}
}

func TestOpsHandler_ReadyTracksSessionStatus(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	handler := a.opsHandler()

	get := func(path string) int {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := get("/healthz"); code != http.StatusOK {
		t.Errorf("/healthz = %d, want 200", code)
	}
	// Disconnected session: alive but not ready.
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("/readyz while disconnected = %d, want 503", code)
	}
	if code := get("/metrics"); code != http.StatusOK {
		t.Errorf("/metrics = %d, want 200", code)
	}
}

func TestNew_AudioOutputWiresWriterSink(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Realtime.AudioOutput = filepath.Join(t.TempDir(), "speech.pcm")

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := os.Stat(cfg.Realtime.AudioOutput); err != nil {
		t.Errorf("audio output file not created: %v", err)
	}
	if len(a.closers) != 1 {
		t.Errorf("closers = %d, want the audio output file", len(a.closers))
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}

func TestRun_DisconnectsOnContextCancel(t *testing.T) {
	t.Parallel()

	tr := mock.NewTransport()
	cfg := testConfig(t)
	cfg.Realtime.CredentialURL = "" // dialer ignores the credential

	a, err := New(context.Background(), cfg, WithDialer(
		func(context.Context, string) (session.Transport, error) {
			return tr, nil
		},
	))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() {
		if err := a.Shutdown(); err != nil {
			t.Errorf("Shutdown() error: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	tr.Emit(realtime.ServerEvent{Type: "session.created"})
	waitForStatus(t, a.Coordinator(), session.StatusConnected)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if got := a.Coordinator().Status(); got != session.StatusDisconnected {
		t.Errorf("status after Run = %s, want DISCONNECTED", got)
	}
}

func waitForStatus(t *testing.T, coord *session.Coordinator, want session.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if coord.Status() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("status never reached %s", want)
}
