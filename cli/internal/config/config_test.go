package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func ptrStr(s string) *string { return &s }

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	c := DefaultConfig()
	if c.GerritURL != _defaultGerritURL {
		t.Errorf("GerritURL = %q, want %q", c.GerritURL, _defaultGerritURL)
	}
	if c.FormatCommand != _defaultFormatCommand {
		t.Errorf("FormatCommand = %q, want %q", c.FormatCommand, _defaultFormatCommand)
	}
	if c.Timeout != _defaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, _defaultTimeout)
	}
	if c.RangeEndExclusive {
		t.Error("RangeEndExclusive should default to false")
	}
	if c.GerritUser != "" || c.GerritPassword != "" {
		t.Errorf("credentials non-empty: %q, %q", c.GerritUser, c.GerritPassword)
	}
}

func TestLoad_defaultsOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent.toml"),
		Env:              []string{},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if *cfg != want {
		t.Errorf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_globalOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "global.toml")
	if err := os.WriteFile(globalPath, []byte(`gerrit_url = "https://gerrit.example.org/"`), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: globalPath,
		Env:              []string{},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GerritURL != "https://gerrit.example.org/" {
		t.Errorf("GerritURL = %q, want https://gerrit.example.org/", cfg.GerritURL)
	}
	if cfg.FormatCommand != _defaultFormatCommand {
		t.Errorf("FormatCommand should remain default, got %q", cfg.FormatCommand)
	}
}

func TestLoad_workDirOverridesGlobal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "global.toml")
	workDir := filepath.Join(dir, "work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(globalPath, []byte(`format_command = "clang-format-15"`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "format-bot.toml"), []byte(`format_command = "haiku-format"`), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          workDir,
		GlobalConfigPath: globalPath,
		Env:              []string{},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FormatCommand != "haiku-format" {
		t.Errorf("FormatCommand = %q, want haiku-format (working dir overrides global)", cfg.FormatCommand)
	}
}

func TestLoad_envOverridesFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "format-bot.toml"), []byte(`gerrit_url = "https://file.example.org/"`), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nonexistent.toml"),
		Env:              []string{"FORMATBOT_GERRIT_URL=https://env.example.org/"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GerritURL != "https://env.example.org/" {
		t.Errorf("GerritURL = %q, want https://env.example.org/", cfg.GerritURL)
	}
}

func TestLoad_overridesOverrideEnv(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{"FORMATBOT_GERRIT_URL=https://env.example.org/"},
		Overrides:        &Overrides{GerritURL: ptrStr("https://flag.example.org/")},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GerritURL != "https://flag.example.org/" {
		t.Errorf("GerritURL = %q, want https://flag.example.org/", cfg.GerritURL)
	}
}

func TestLoad_precedenceChain(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "global.toml")
	workDir := filepath.Join(dir, "work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(globalPath, []byte("gerrit_url = \"https://global/\"\nformat_command = \"global-format\""), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "format-bot.toml"), []byte("gerrit_url = \"https://work/\"\nformat_command = \"work-format\""), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          workDir,
		GlobalConfigPath: globalPath,
		Env:              []string{"FORMATBOT_GERRIT_URL=https://env/", "FORMATBOT_FORMAT_COMMAND=env-format"},
		Overrides:        &Overrides{GerritURL: ptrStr("https://override/"), FormatCommand: ptrStr("override-format")},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GerritURL != "https://override/" {
		t.Errorf("GerritURL = %q, want https://override/", cfg.GerritURL)
	}
	if cfg.FormatCommand != "override-format" {
		t.Errorf("FormatCommand = %q, want override-format", cfg.FormatCommand)
	}
}

func TestLoad_invalidTOML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(badPath, []byte("gerrit_url = [ broken"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: badPath,
		Env:              []string{},
	})
	if err == nil {
		t.Fatal("Load: expected error for invalid TOML")
	}
}

func TestLoad_invalidTimeoutEnv(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()
	_, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{"FORMATBOT_TIMEOUT=not-a-duration"},
	})
	if err == nil {
		t.Fatal("Load: expected error for invalid FORMATBOT_TIMEOUT")
	}
}

func TestLoad_invalidBoolEnv(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()
	_, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{"FORMATBOT_RANGE_END_EXCLUSIVE=maybe"},
	})
	if err == nil {
		t.Fatal("Load: expected error for invalid FORMATBOT_RANGE_END_EXCLUSIVE")
	}
}

func TestLoad_missingFilesNoError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "missing.toml"),
		Env:              []string{},
	})
	if err != nil {
		t.Fatalf("Load: %v (missing files should be ok)", err)
	}
	if cfg.GerritURL != _defaultGerritURL {
		t.Errorf("GerritURL = %q, want default", cfg.GerritURL)
	}
}

func TestLoad_timeoutInTOML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	globalPath := filepath.Join(dir, "global.toml")
	if err := os.WriteFile(globalPath, []byte(`timeout = "2m"`), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: globalPath,
		Env:              []string{},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := 2 * time.Minute
	if cfg.Timeout != want {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, want)
	}
}

func TestLoad_envTimeoutSeconds(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()
	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{"FORMATBOT_TIMEOUT=90"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
}

func TestLoad_rangeEndExclusive(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "format-bot.toml"), []byte(`range_end_exclusive = true`), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.RangeEndExclusive {
		t.Error("RangeEndExclusive = false, want true from file")
	}

	cfg, err = Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{"FORMATBOT_RANGE_END_EXCLUSIVE=off"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RangeEndExclusive {
		t.Error("RangeEndExclusive = true, want false from env override")
	}
}

func TestLoad_credentialsFromEnvOnly(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// A gerrit_user key in a config file is ignored; credentials only
	// come from the environment.
	if err := os.WriteFile(filepath.Join(dir, "format-bot.toml"), []byte(`gerrit_user = "file-user"`), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	cfg, err := Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GerritUser != "" {
		t.Errorf("GerritUser = %q, want empty (files must not provide credentials)", cfg.GerritUser)
	}

	cfg, err = Load(ctx, LoadOptions{
		WorkDir:          dir,
		GlobalConfigPath: filepath.Join(dir, "nope.toml"),
		Env:              []string{"FORMATBOT_GERRIT_USER=bot", "FORMATBOT_GERRIT_PASSWORD=secret"},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GerritUser != "bot" || cfg.GerritPassword != "secret" {
		t.Errorf("credentials = %q/%q, want bot/secret", cfg.GerritUser, cfg.GerritPassword)
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5m", 5 * time.Minute},
		{"30s", 30 * time.Second},
		{"90", 90 * time.Second},
		{"0", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseDuration(tt.in)
			if err != nil {
				t.Fatalf("parseDuration(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDuration_invalid(t *testing.T) {
	t.Parallel()
	_, err := parseDuration("")
	if err == nil {
		t.Error("expected error for empty duration")
	}
	_, err = parseDuration("x1m")
	if err == nil {
		t.Error("expected error for invalid duration")
	}
}
