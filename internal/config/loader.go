package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TokenEnv is the environment variable that overrides [DiscordConfig.Token].
const TokenEnv = "DISCORD_TOKEN"

// ErrMissingToken is returned by [RequireToken] when no bot token is set.
var ErrMissingToken = errors.New("config: discord token is not set (set " + TokenEnv + " or discord.token)")

// Load reads the YAML configuration file at path on top of [Defaults],
// applies environment overrides and validates the result. A missing file is
// not an error; the defaults are used.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Defaults()
		ApplyEnv(cfg, os.LookupEnv)
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	ApplyEnv(cfg, os.LookupEnv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Defaults] and
// validates the result. Environment overrides are not applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := Defaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. lookup is usually
// [os.LookupEnv].
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(TokenEnv); ok && strings.TrimSpace(v) != "" {
		cfg.Discord.Token = strings.TrimSpace(v)
	}
}

// RequireToken returns [ErrMissingToken] when cfg has no bot token.
func RequireToken(cfg *Config) error {
	if cfg.Discord.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.CommandPrefix == "" {
		errs = append(errs, errors.New("discord.command_prefix must not be empty"))
	}
	if cfg.Discord.HistoryLimit < 1 || cfg.Discord.HistoryLimit > 1000 {
		errs = append(errs, fmt.Errorf("discord.history_limit %d is out of range [1, 1000]", cfg.Discord.HistoryLimit))
	}
	if cfg.Discord.SourceCategory == "" || cfg.Discord.SourceChannel == "" {
		errs = append(errs, errors.New("discord.source_category and discord.source_channel are required"))
	}
	if cfg.Discord.MemberCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("discord.member_cache_ttl %s must not be negative", cfg.Discord.MemberCacheTTL))
	}

	if cfg.Sounds.Dir == "" {
		errs = append(errs, errors.New("sounds.dir is required"))
	}
	if !strings.HasPrefix(cfg.Sounds.Extension, ".") || len(cfg.Sounds.Extension) < 2 {
		errs = append(errs, fmt.Errorf("sounds.extension %q must start with a dot", cfg.Sounds.Extension))
	}

	if cfg.Playback.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("playback.connect_timeout %s must be positive", cfg.Playback.ConnectTimeout))
	}
	if cfg.Playback.BreakerFailures < 0 {
		errs = append(errs, fmt.Errorf("playback.breaker_failures %d must not be negative", cfg.Playback.BreakerFailures))
	}

	return errors.Join(errs...)
}
