// Package health provides HTTP liveness and readiness handlers for the
// voicenav operations endpoint.
//
//   - /healthz: liveness probe; returns 200 whenever the process serves HTTP.
//   - /readyz: readiness probe; returns 200 only when every registered
//     [Check] passes.
//
// Responses are JSON with a top-level "status" ("ok" or "fail") and a
// per-check "checks" map.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// checkTimeout bounds how long one readiness check may run.
const checkTimeout = 5 * time.Second

// Check is a named readiness probe. Probe returns nil when the dependency
// is healthy and an error describing the failure otherwise.
type Check struct {
	// Name labels this check in the JSON response ("session", "archive", ...).
	Name string

	// Probe inspects the dependency. It must respect context cancellation.
	Probe func(ctx context.Context) error
}

// SessionCheck reports ready only while status() returns want. Used to gate
// readiness on the realtime session being connected.
func SessionCheck(name, want string, status func() string) Check {
	return Check{
		Name: name,
		Probe: func(context.Context) error {
			if got := status(); got != want {
				return fmt.Errorf("session status is %s", got)
			}
			return nil
		},
	}
}

// Pinger is satisfied by connection pools that expose a Ping method, such as
// pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes a [Pinger]. A nil pinger reports failure so that a
// misconfigured dependency surfaces in /readyz instead of panicking.
func PingCheck(name string, p Pinger) Check {
	return Check{
		Name: name,
		Probe: func(ctx context.Context) error {
			if p == nil {
				return errors.New("not configured")
			}
			return p.Ping(ctx)
		},
	}
}

// response is the JSON body for both endpoints.
type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz routes. The check list is fixed at
// construction time, so the handler is safe for concurrent use.
type Handler struct {
	checks []Check
}

// New creates a [Handler] evaluating the given checks, in order, on each
// /readyz request.
func New(checks ...Check) *Handler {
	c := make([]Check, len(checks))
	copy(c, checks)
	return &Handler{checks: c}
}

// Register adds both routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz always reports ok. A process able to answer HTTP is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz runs every check under a [checkTimeout] deadline derived from the
// request context and reports 503 when any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := response{
		Status: "ok",
		Checks: make(map[string]string, len(h.checks)),
	}
	code := http.StatusOK

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Probe(ctx)
		cancel()

		if err != nil {
			res.Checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			code = http.StatusServiceUnavailable
		} else {
			res.Checks[c.Name] = "ok"
		}
	}

	writeJSON(w, code, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
