// Package config provides the format bot configuration with a defined load
// order: CLI flags > environment variables > working-dir config > global
// config > defaults.
//
// Paths:
//   - Working dir: format-bot.toml (relative to the current directory)
//   - Global: XDG config dir, e.g. ~/.config/haiku-format-bot/config.toml (see os.UserConfigDir)
//
// Environment variables (override config files when set):
//   - FORMATBOT_GERRIT_URL, FORMATBOT_FORMAT_COMMAND,
//   - FORMATBOT_TIMEOUT (Go duration string or integer seconds),
//   - FORMATBOT_RANGE_END_EXCLUSIVE (1/true/yes/on = true, 0/false/no/off = false),
//   - FORMATBOT_GERRIT_USER, FORMATBOT_GERRIT_PASSWORD (credentials for review
//     submission; read from the environment only, never from config files).
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/haiku/haiku-format-bot/cli/internal/erruser"
)

// Config holds all format bot configuration.
type Config struct {
	GerritURL     string        `toml:"gerrit_url"`
	FormatCommand string        `toml:"format_command"`
	Timeout       time.Duration `toml:"timeout"`
	// RangeEndExclusive ends comment ranges one line past the segment, the
	// convention the Gerrit documentation describes. Off by default because
	// Gerrit 3.7.1 highlights the end line's content either way.
	RangeEndExclusive bool `toml:"range_end_exclusive"`
	// GerritUser and GerritPassword authenticate review submission. They
	// come from the environment only so that credentials never end up in
	// checked-in config files.
	GerritUser     string `toml:"-"`
	GerritPassword string `toml:"-"`
}

// Overrides represents optional CLI flag overrides. Non-nil pointer means
// "override with this value". Credentials have no override on purpose.
type Overrides struct {
	GerritURL         *string
	FormatCommand     *string
	Timeout           *time.Duration
	RangeEndExclusive *bool
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// WorkDir is the directory searched for format-bot.toml; if empty, "." is used.
	WorkDir string
	// GlobalConfigPath is the global config file path; if empty, the XDG path is used.
	GlobalConfigPath string
	// Env is the environment key=value slice; if nil, os.Environ() is used.
	Env []string
	// Overrides are applied last (highest precedence).
	Overrides *Overrides
}

const (
	_defaultGerritURL     = "https://review.haiku-os.org/"
	_defaultFormatCommand = "clang-format-16"
	_defaultTimeout       = 30 * time.Second
)

// DefaultConfig returns the default configuration (no I/O).
func DefaultConfig() Config {
	return Config{
		GerritURL:     _defaultGerritURL,
		FormatCommand: _defaultFormatCommand,
		Timeout:       _defaultTimeout,
	}
}

// Load loads configuration with precedence: defaults < global file <
// working-dir file < env < overrides. Missing config files are ignored.
// Invalid TOML or invalid env values return an error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, erruser.New("Could not determine config directory.", err)
		}
		globalPath = filepath.Join(dir, "haiku-format-bot", "config.toml")
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	if err := mergeFile(&cfg, filepath.Join(workDir, "format-bot.toml")); err != nil {
		return nil, err
	}

	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}

	applyOverrides(&cfg, opts.Overrides)
	return &cfg, nil
}

// mergeFile reads path and merges into cfg. Only fields present and non-empty
// in the file overwrite previous values. A missing file is skipped.
func mergeFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New("Invalid configuration file.", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return erruser.New("Could not read configuration file.", err)
	}
	var file struct {
		GerritURL         *string `toml:"gerrit_url"`
		FormatCommand     *string `toml:"format_command"`
		Timeout           *string `toml:"timeout"`
		RangeEndExclusive *bool   `toml:"range_end_exclusive"`
	}
	if _, err := toml.Decode(string(data), &file); err != nil {
		return erruser.New(fmt.Sprintf("Invalid configuration in %s.", path), err)
	}
	if file.GerritURL != nil && *file.GerritURL != "" {
		cfg.GerritURL = *file.GerritURL
	}
	if file.FormatCommand != nil && *file.FormatCommand != "" {
		cfg.FormatCommand = *file.FormatCommand
	}
	if file.Timeout != nil && *file.Timeout != "" {
		d, err := parseDuration(*file.Timeout)
		if err != nil {
			return erruser.New(fmt.Sprintf("Configuration timeout in %s is invalid.", path), err)
		}
		cfg.Timeout = d
	}
	if file.RangeEndExclusive != nil {
		cfg.RangeEndExclusive = *file.RangeEndExclusive
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	// Try Go duration first (e.g. "30s", "2m")
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}
	// Try integer seconds
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}

// env key names for config
const (
	envGerritURL         = "FORMATBOT_GERRIT_URL"
	envFormatCommand     = "FORMATBOT_FORMAT_COMMAND"
	envTimeout           = "FORMATBOT_TIMEOUT"
	envRangeEndExclusive = "FORMATBOT_RANGE_END_EXCLUSIVE"
	envGerritUser        = "FORMATBOT_GERRIT_USER"
	envGerritPassword    = "FORMATBOT_GERRIT_PASSWORD"
)

func applyEnv(cfg *Config, env []string) error {
	vals := make(map[string]string)
	for _, e := range env {
		idx := strings.Index(e, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(e[:idx])
		val := strings.TrimSpace(e[idx+1:])
		vals[key] = val
	}
	if v, ok := vals[envGerritURL]; ok && v != "" {
		cfg.GerritURL = v
	}
	if v, ok := vals[envFormatCommand]; ok && v != "" {
		cfg.FormatCommand = v
	}
	if v, ok := vals[envTimeout]; ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New("FORMATBOT_TIMEOUT must be a valid duration.", err)
		}
		cfg.Timeout = d
	}
	if v, ok := vals[envRangeEndExclusive]; ok && v != "" {
		b, err := parseBool(v)
		if err != nil {
			return erruser.New("FORMATBOT_RANGE_END_EXCLUSIVE must be 1/true/yes/on or 0/false/no/off.", err)
		}
		cfg.RangeEndExclusive = b
	}
	if v, ok := vals[envGerritUser]; ok {
		cfg.GerritUser = v
	}
	if v, ok := vals[envGerritPassword]; ok {
		cfg.GerritPassword = v
	}
	return nil
}

// parseBool parses common boolean env values: 1/true/yes/on = true, 0/false/no/off = false (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.GerritURL != nil {
		cfg.GerritURL = *o.GerritURL
	}
	if o.FormatCommand != nil {
		cfg.FormatCommand = *o.FormatCommand
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.RangeEndExclusive != nil {
		cfg.RangeEndExclusive = *o.RangeEndExclusive
	}
}
