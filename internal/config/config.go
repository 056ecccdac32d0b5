// Package config provides the configuration schema and loader for the
// voicenav client.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ToSlog maps l to the corresponding slog level. Unset defaults to info.
func (l LogLevel) ToSlog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// TurnModeName selects the initial turn-taking mode.
type TurnModeName string

const (
	TurnServerVAD  TurnModeName = "server_vad"
	TurnPushToTalk TurnModeName = "push_to_talk"
)

// IsValid reports whether t is a recognised turn mode.
func (t TurnModeName) IsValid() bool {
	return t == TurnServerVAD || t == TurnPushToTalk
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Turn     TurnConfig     `yaml:"turn"`
	Backend  BackendConfig  `yaml:"backend"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Agents   AgentsConfig   `yaml:"agents"`
}

// ServerConfig holds the operations endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the address of the ops HTTP listener serving /healthz,
	// /readyz and /metrics. Empty disables the listener.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is the minimum level emitted. Defaults to info.
	LogLevel LogLevel `yaml:"log_level"`
}

// RealtimeConfig points at the speech model endpoint.
type RealtimeConfig struct {
	// BaseURL is the realtime WebSocket endpoint. Empty uses the production
	// default.
	BaseURL string `yaml:"base_url"`

	// Model selects the realtime model.
	Model string `yaml:"model"`

	// Voice selects the output voice.
	Voice string `yaml:"voice"`

	// CredentialURL is the endpoint issuing short-lived client secrets.
	CredentialURL string `yaml:"credential_url"`

	// AudioOutput is a file or FIFO path that receives the model's raw
	// PCM16 speech. Empty discards output audio.
	AudioOutput string `yaml:"audio_output"`
}

// TurnConfig selects the initial turn-taking mode.
type TurnConfig struct {
	// Mode is server_vad or push_to_talk. Defaults to server_vad.
	Mode TurnModeName `yaml:"mode"`
}

// BackendConfig points at the downstream actuation/OCR service used by the
// built-in agent set.
type BackendConfig struct {
	// BaseURL is the service root; /api/operate and /api/read are derived
	// from it.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single backend request. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// ArchiveConfig configures the optional transcript archive.
type ArchiveConfig struct {
	// PostgresDSN enables archiving when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// AgentsConfig selects the agent set.
type AgentsConfig struct {
	// File is a YAML agent-set definition. Empty uses the built-in
	// voice-navigation set.
	File string `yaml:"file"`

	// Start names the agent initially in control. Empty uses the set's
	// first agent.
	Start string `yaml:"start"`
}
