package voicenavigator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voicenav/voicenav/internal/agent"
	"github.com/voicenav/voicenav/internal/navigator"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *navigator.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return navigator.New(srv.URL)
}

func TestNewRegistry_GraphShape(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(navigator.New("http://127.0.0.1:0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, ok := reg.First()
	if !ok || first.Name != NavigatorName {
		t.Errorf("default starting agent must be the navigator, got %v", first)
	}

	greeter, ok := reg.Lookup(GreeterName)
	if !ok {
		t.Fatal("greeter missing")
	}
	tool, ok := greeter.Tool(agent.TransferToolName)
	if !ok {
		t.Fatal("greeter must carry a transfer tool")
	}
	props := tool.Parameters["properties"].(map[string]any)
	enum := props["destination_agent"].(map[string]any)["enum"].([]any)
	if len(enum) != 2 || enum[0] != ControlName || enum[1] != ImageToTextName {
		t.Errorf("greeter downstream enum wrong: %v", enum)
	}

	nav, _ := reg.Lookup(NavigatorName)
	if _, ok := nav.Tool(agent.TransferToolName); ok {
		t.Error("the standalone navigator must not get a transfer tool")
	}
	if _, ok := nav.Handler("selfOperateComputer"); !ok {
		t.Error("navigator must bind selfOperateComputer locally")
	}
}

func TestOperateHandler_SuccessAndFailureShapes(t *testing.T) {
	t.Parallel()

	t.Run("done operation", func(t *testing.T) {
		t.Parallel()
		backend := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"operations": []map[string]string{{"operation": "done", "summary": "Opened Chrome."}},
			})
		})
		h := operateHandler(backend)

		result, err := h(context.Background(), map[string]any{"command": "open chrome"})
		if err != nil {
			t.Fatalf("handler must not fail: %v", err)
		}
		msg, _ := result["message"].(string)
		if !strings.HasPrefix(msg, "Success!") || !strings.Contains(msg, "Opened Chrome.") {
			t.Errorf("unexpected message: %q", msg)
		}
	})

	t.Run("non-done operation", func(t *testing.T) {
		t.Parallel()
		backend := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"operations": []map[string]string{{"operation": "failed", "summary": "No such app."}},
			})
		})
		result, err := operateHandler(backend)(context.Background(), map[string]any{"command": "open nothing"})
		if err != nil {
			t.Fatalf("handler must not fail: %v", err)
		}
		if msg, _ := result["message"].(string); !strings.Contains(msg, "No such app.") {
			t.Errorf("failure summary not surfaced: %q", msg)
		}
	})

	t.Run("backend error becomes user-facing string", func(t *testing.T) {
		t.Parallel()
		backend := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		result, err := operateHandler(backend)(context.Background(), map[string]any{"command": "open chrome"})
		if err != nil {
			t.Fatalf("I/O failures must be caught by the handler: %v", err)
		}
		if msg, _ := result["message"].(string); !strings.Contains(msg, "Something went wrong") {
			t.Errorf("unexpected message: %q", msg)
		}
	})
}

func TestOperateHandlerWithReturn_AddsDirective(t *testing.T) {
	t.Parallel()

	backend := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"operations": []map[string]string{{"operation": "done", "summary": "ok"}},
		})
	})
	result, err := operateHandlerWithReturn(backend, GreeterName)(context.Background(), map[string]any{"command": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["nextAgent"] != GreeterName {
		t.Errorf("want nextAgent=%s, got %v", GreeterName, result["nextAgent"])
	}
}

func TestReadHandler(t *testing.T) {
	t.Parallel()

	t.Run("joins descriptions and transfers", func(t *testing.T) {
		t.Parallel()
		backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["prompt"] != "article" {
				t.Errorf("want prompt 'article', got %q", req["prompt"])
			}
			json.NewEncoder(w).Encode(map[string]any{"descriptions": []string{"Part one.", "Part two."}})
		})
		result, err := readHandler(backend, GreeterName)(context.Background(), map[string]any{"prompt": "article"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result["description"] != "Part one. Part two." {
			t.Errorf("unexpected description: %v", result["description"])
		}
		if result["nextAgent"] != GreeterName {
			t.Errorf("missing transfer directive: %v", result)
		}
	})

	t.Run("empty prompt defaults to general", func(t *testing.T) {
		t.Parallel()
		backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["prompt"] != "general" {
				t.Errorf("want default prompt 'general', got %q", req["prompt"])
			}
			json.NewEncoder(w).Encode(map[string]any{"descriptions": []string{}})
		})
		result, _ := readHandler(backend, "")(context.Background(), map[string]any{})
		if result["description"] != "No content detected." {
			t.Errorf("unexpected description: %v", result["description"])
		}
		if _, has := result["nextAgent"]; has {
			t.Error("no transfer directive expected when returnAgent is empty")
		}
	})

	t.Run("backend error becomes user-facing string", func(t *testing.T) {
		t.Parallel()
		backend := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("{not json"))
		})
		result, err := readHandler(backend, GreeterName)(context.Background(), map[string]any{"prompt": "video"})
		if err != nil {
			t.Fatalf("I/O failures must be caught by the handler: %v", err)
		}
		if desc, _ := result["description"].(string); !strings.Contains(desc, "Error processing screen content") {
			t.Errorf("unexpected description: %q", desc)
		}
	})
}
