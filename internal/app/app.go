// Package app assembles the voicenav client from configuration: the agent
// registry, the conversation coordinator, the optional transcript archive,
// and the operations HTTP endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voicenav/voicenav/internal/agent"
	"github.com/voicenav/voicenav/internal/agent/voicenavigator"
	"github.com/voicenav/voicenav/internal/config"
	"github.com/voicenav/voicenav/internal/eventlog"
	"github.com/voicenav/voicenav/internal/health"
	"github.com/voicenav/voicenav/internal/navigator"
	"github.com/voicenav/voicenav/internal/observe"
	"github.com/voicenav/voicenav/internal/session"
	transcriptpg "github.com/voicenav/voicenav/internal/transcript/postgres"

	"github.com/voicenav/voicenav/internal/transcript"
	"github.com/voicenav/voicenav/pkg/realtime"
)

// opsShutdownTimeout bounds the graceful stop of the ops HTTP listener.
const opsShutdownTimeout = 5 * time.Second

// App is the assembled client. Construct with [New], drive with [App.Run],
// and release resources with [App.Shutdown].
type App struct {
	cfg   *config.Config
	coord *session.Coordinator

	transcript *transcript.Store
	eventLog   *eventlog.Log
	archive    *transcriptpg.Archive
	ops        *http.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error
}

// Option adjusts construction.
type Option func(*options)

type options struct {
	metrics *observe.Metrics
	sink    realtime.AudioSink
	dialer  session.Dialer
}

// WithMetrics attaches metric instruments. Without it the app runs
// uninstrumented.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithAudioSink routes decoded output audio to sink instead of discarding it.
func WithAudioSink(sink realtime.AudioSink) Option {
	return func(o *options) { o.sink = sink }
}

// WithDialer substitutes the transport dialer. Test seam.
func WithDialer(d session.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// New builds the application from cfg. The caller owns the returned app and
// must call [App.Shutdown] when done.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:        cfg,
		transcript: transcript.NewStore(),
		eventLog:   eventlog.New(),
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	if o.sink == nil && cfg.Realtime.AudioOutput != "" {
		f, err := os.OpenFile(cfg.Realtime.AudioOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("app: opening audio output: %w", err)
		}
		o.sink = realtime.WriterSink{W: f}
		a.closers = append(a.closers, f.Close)
		slog.Info("audio output enabled", "path", cfg.Realtime.AudioOutput)
	}

	if cfg.Archive.PostgresDSN != "" {
		archive, err := transcriptpg.NewArchive(ctx, cfg.Archive.PostgresDSN, session.NewItemID())
		if err != nil {
			return nil, fmt.Errorf("app: opening transcript archive: %w", err)
		}
		a.archive = archive
		a.closers = append(a.closers, func() error {
			archive.Close()
			return nil
		})
		slog.Info("transcript archive enabled")
	}

	sessCfg := session.Config{
		Registry:      reg,
		StartAgent:    cfg.Agents.Start,
		CredentialURL: cfg.Realtime.CredentialURL,
		BaseURL:       cfg.Realtime.BaseURL,
		Model:         cfg.Realtime.Model,
		Voice:         cfg.Realtime.Voice,
		Sink:          o.sink,
		TurnMode:      turnMode(cfg.Turn.Mode),
		Transcript:    a.transcript,
		EventLog:      a.eventLog,
		Metrics:       o.metrics,
		Dialer:        o.dialer,
	}
	if a.archive != nil {
		sessCfg.Archive = a.archive
	}
	a.coord, err = session.New(sessCfg)
	if err != nil {
		return nil, fmt.Errorf("app: building coordinator: %w", err)
	}

	if cfg.Server.ListenAddr != "" {
		a.ops = &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: a.opsHandler(),
		}
	}

	return a, nil
}

// buildRegistry loads the agent set named in cfg, or assembles the built-in
// voice-navigation set over the configured backend.
func buildRegistry(cfg *config.Config) (*agent.Registry, error) {
	if cfg.Agents.File != "" {
		reg, err := agent.LoadSet(cfg.Agents.File)
		if err != nil {
			return nil, fmt.Errorf("app: loading agent set: %w", err)
		}
		slog.Info("agent set loaded", "file", cfg.Agents.File, "agents", len(reg.Agents()))
		return reg, nil
	}

	var backendOpts []navigator.Option
	if cfg.Backend.Timeout > 0 {
		backendOpts = append(backendOpts, navigator.WithTimeout(cfg.Backend.Timeout))
	}
	backend := navigator.New(cfg.Backend.BaseURL, backendOpts...)
	reg, err := voicenavigator.NewRegistry(backend)
	if err != nil {
		return nil, fmt.Errorf("app: building built-in agent set: %w", err)
	}
	return reg, nil
}

func turnMode(mode config.TurnModeName) session.TurnMode {
	if mode == config.TurnPushToTalk {
		return session.TurnPushToTalk
	}
	return session.TurnServerVAD
}

// opsHandler builds the operations mux: health, readiness and metrics.
func (a *App) opsHandler() http.Handler {
	checks := []health.Check{
		health.SessionCheck("session", string(session.StatusConnected), func() string {
			return string(a.coord.Status())
		}),
	}
	if a.archive != nil {
		checks = append(checks, health.PingCheck("archive", a.archive))
	}

	mux := http.NewServeMux()
	health.New(checks...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Coordinator returns the conversation coordinator for interactive control.
func (a *App) Coordinator() *session.Coordinator { return a.coord }

// Transcript returns the conversation transcript store.
func (a *App) Transcript() *transcript.Store { return a.transcript }

// EventLog returns the protocol event log.
func (a *App) EventLog() *eventlog.Log { return a.eventLog }

// Run connects the realtime session, starts the ops listener, and blocks
// until ctx is cancelled, then disconnects. A lost connection does not abort
// Run; the caller may reconnect through the coordinator.
func (a *App) Run(ctx context.Context) error {
	if err := a.coord.Connect(ctx); err != nil {
		return fmt.Errorf("app: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.ops != nil {
		g.Go(func() error {
			slog.Info("ops listener starting", "addr", a.ops.Addr)
			if err := a.ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: ops listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opsShutdownTimeout)
			defer cancel()
			return a.ops.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.coord.Disconnect()
		return gctx.Err()
	})

	return g.Wait()
}

// Shutdown releases resources in reverse acquisition order.
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
