// Package config provides the configuration schema and loader for citabot.
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

// Level maps l to the slog level. Unknown values map to info.
func (l LogLevel) Level() slog.Level {
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

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Discord  DiscordConfig  `yaml:"discord"`
	Sounds   SoundsConfig   `yaml:"sounds"`
	Playback PlaybackConfig `yaml:"playback"`
	Members  MembersConfig  `yaml:"members"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// ListenAddr is the ops HTTP listener (/healthz, /readyz, /metrics).
	// Empty disables it.
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds gateway and quote source settings.
type DiscordConfig struct {
	// Token is the bot token. Overridden by DISCORD_TOKEN.
	Token string `yaml:"token"`

	// GuildID pins the bot to one server. Empty means the first guild the
	// gateway reports.
	GuildID string `yaml:"guild_id"`

	CommandPrefix string `yaml:"command_prefix"`

	// HistoryLimit caps how many messages are read from the source channel.
	HistoryLimit int `yaml:"history_limit"`

	// SourceCategory and SourceChannel name the quote channel, matched
	// case-insensitively.
	SourceCategory string `yaml:"source_category"`
	SourceChannel  string `yaml:"source_channel"`

	// MemberCacheTTL is how long resolved usernames are cached.
	MemberCacheTTL time.Duration `yaml:"member_cache_ttl"`
}

// SoundsConfig describes the local clip inventory.
type SoundsConfig struct {
	Dir       string `yaml:"dir"`
	Extension string `yaml:"extension"`

	// Watch reloads the inventory when files are added or removed.
	Watch bool `yaml:"watch"`

	FFmpegPath string `yaml:"ffmpeg_path"`
}

// PlaybackConfig tunes voice playback.
type PlaybackConfig struct {
	// ConnectTimeout bounds the voice join and ready wait.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// BreakerFailures consecutive failed voice joins make further joins
	// fail fast for BreakerReset.
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset"`
}

// MembersConfig configures the member picker.
type MembersConfig struct {
	// ZenRole is the role whose holders are listed by the zen and meteo
	// pickers.
	ZenRole string `yaml:"zen_role"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":9090",
			LogLevel:   LogInfo,
		},
		Discord: DiscordConfig{
			CommandPrefix:  "!",
			HistoryLimit:   100,
			SourceCategory: "la tour",
			SourceChannel:  "citations",
			MemberCacheTTL: 10 * time.Minute,
		},
		Sounds: SoundsConfig{
			Dir:        "sounds",
			Extension:  ".ogg",
			FFmpegPath: "ffmpeg",
		},
		Playback: PlaybackConfig{
			ConnectTimeout:  30 * time.Second,
			BreakerFailures: 5,
			BreakerReset:    time.Minute,
		},
		Members: MembersConfig{
			ZenRole: "Zen",
		},
	}
}
