// Command voicenav is a headless realtime voice agent client. It connects a
// terminal session to a speech/text model endpoint and hands conversational
// control between configured agents.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voicenav/voicenav/internal/app"
	"github.com/voicenav/voicenav/internal/config"
	"github.com/voicenav/voicenav/internal/observe"
	"github.com/voicenav/voicenav/internal/session"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voicenav: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voicenav: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voicenav starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider("voicenav", version)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg, app.WithMetrics(observe.DefaultMetrics()))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	go readCommands(ctx, application, stop)

	slog.Info("client ready; type a message, /help for commands, Ctrl+C to quit")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(); err != nil {
		slog.Warn("shutdown error", "err", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// readCommands drives the conversation from stdin. Plain lines are user text
// turns; lines starting with "/" are control commands.
func readCommands(ctx context.Context, application *app.App, quit context.CancelFunc) {
	coord := application.Coordinator()
	muted := false

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			if err := coord.SendUserText(line); err != nil {
				fmt.Fprintf(os.Stderr, "send: %v\n", err)
			}
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "/help":
			printHelp()

		case "/ptt":
			mode := session.TurnServerVAD
			if arg == "on" {
				mode = session.TurnPushToTalk
			}
			if err := coord.SetTurnMode(mode); err != nil {
				fmt.Fprintf(os.Stderr, "turn mode: %v\n", err)
			}

		case "/talk":
			if err := coord.StartTalking(); err != nil {
				fmt.Fprintf(os.Stderr, "talk: %v\n", err)
			}

		case "/done":
			if err := coord.StopTalking(); err != nil {
				fmt.Fprintf(os.Stderr, "done: %v\n", err)
			}

		case "/mute":
			muted = !muted
			coord.SetAudioEnabled(!muted)
			fmt.Printf("audio muted: %v\n", muted)

		case "/agent":
			if arg == "" {
				fmt.Printf("active agent: %s (status %s)\n", coord.ActiveAgent(), coord.Status())
				break
			}
			if err := coord.SelectAgent(arg); err != nil {
				fmt.Fprintf(os.Stderr, "agent: %v\n", err)
			}

		case "/transcript":
			printTranscript(application)

		case "/log":
			printEventLog(application)

		case "/quit":
			quit()
			return

		default:
			fmt.Fprintf(os.Stderr, "unknown command %q; /help lists commands\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  <text>        send a user text turn
  /ptt on|off   switch push-to-talk mode on or off
  /talk         begin a push-to-talk turn
  /done         end the push-to-talk turn and request a response
  /mute         toggle output audio playback
  /agent [name] show the active agent, or hand control to another agent
  /transcript   print the conversation transcript
  /log          print the protocol event log
  /quit         disconnect and exit
`)
}

func printTranscript(application *app.App) {
	for _, item := range application.Transcript().Items() {
		if item.Hidden {
			continue
		}
		label := string(item.Role)
		if label == "" {
			label = "system"
		}
		marker := ""
		if item.Status != "DONE" {
			marker = " …"
		}
		fmt.Printf("[%s] %s: %s%s\n", item.CreatedAt.Format("15:04:05"), label, item.Title, marker)
	}
}

func printEventLog(application *app.App) {
	for _, entry := range application.EventLog().Entries() {
		arrow := "->"
		if entry.Direction == "server" {
			arrow = "<-"
		}
		fmt.Printf("%4d %s %s %s\n", entry.ID, entry.Timestamp.Format("15:04:05.000"), arrow, entry.EventName)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level.ToSlog(),
	}))
}
