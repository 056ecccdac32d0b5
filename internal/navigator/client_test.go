package navigator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOperate_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/operate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["prompt"] != "open YouTube" {
			t.Errorf("want prompt 'open YouTube', got %q", req["prompt"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"operations": []map[string]string{
				{"operation": "done", "summary": "Opened YouTube in the default browser."},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	ops, err := c.Operate(context.Background(), "open YouTube")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "done" {
		t.Errorf("unexpected operations: %+v", ops)
	}
}

func TestDescribe_JoinsDescriptions(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/read" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"descriptions": []string{"A news article about weather.", "It forecasts rain."},
		})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	text, err := c.Describe(context.Background(), "article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "A news article about weather. It forecasts rain." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestPost_NonSuccessStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	if _, err := c.Operate(context.Background(), "open chrome"); err == nil {
		t.Error("non-2xx must return an error")
	}
}

func TestPost_MalformedJSONIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("{not json"))
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	if _, err := c.Describe(context.Background(), "general"); err == nil {
		t.Error("malformed JSON must return an error")
	}
}

func TestPost_RespectsTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	t.Cleanup(func() { close(block); srv.Close() })

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	if _, err := c.Operate(context.Background(), "open chrome"); err == nil {
		t.Error("timeout must surface as an error")
	}
}
