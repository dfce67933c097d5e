package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/SimilarityDeck/internal/config"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "simdeck", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Server.AudioURL != "http://localhost:5000" {
		t.Fatalf("unexpected audio url %q", cfg.Server.AudioURL)
	}
	wantHistory := filepath.Join(tempHome, ".local", "share", "simdeck", "history.sqlite3")
	if cfg.History.Path != wantHistory {
		t.Fatalf("unexpected history path: got %q want %q", cfg.History.Path, wantHistory)
	}
	if cfg.Analysis.DefaultKind != "audio" {
		t.Fatalf("unexpected default kind %q", cfg.Analysis.DefaultKind)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SIMDECK_AUDIO_URL", "http://audio.internal:5000/")
	t.Setenv("SIMDECK_IMAGE_URL", "https://images.internal")
	t.Setenv("SIMDECK_HISTORY_PATH", "/var/lib/simdeck/h.sqlite3")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.AudioURL != "http://audio.internal:5000" {
		t.Fatalf("expected trimmed audio url from env, got %q", cfg.Server.AudioURL)
	}
	if cfg.BaseURL(simdeck.KindImage) != "https://images.internal" {
		t.Fatalf("unexpected image url %q", cfg.BaseURL(simdeck.KindImage))
	}
	if cfg.History.Path != "/var/lib/simdeck/h.sqlite3" {
		t.Fatalf("unexpected history path %q", cfg.History.Path)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "simdeck.toml")
	content := `
[server]
image_url = "http://10.0.0.2:8000"
timeout_seconds = 30

[analysis]
default_kind = "IMAGE"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be used, got %q exists=%v", resolved, exists)
	}

	profile, err := cfg.Profile("")
	if err != nil {
		t.Fatalf("Profile returned error: %v", err)
	}
	if profile.Kind != simdeck.KindImage || profile.BaseURL != "http://10.0.0.2:8000" {
		t.Fatalf("unexpected profile %s at %s", profile.Kind, profile.BaseURL)
	}
	if cfg.Timeout().Seconds() != 30 {
		t.Fatalf("unexpected timeout %v", cfg.Timeout())
	}
	if cfg.Server.AudioURL != "http://localhost:5000" {
		t.Fatalf("unset keys should keep defaults, got %q", cfg.Server.AudioURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad url", "[server]\naudio_url = \"localhost:5000\"\n", "server.audio_url"},
		{"bad kind", "[analysis]\ndefault_kind = \"video\"\n", "default_kind"},
		{"bad level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
		{"zero timeout", "[server]\ntimeout_seconds = 0\n", "timeout_seconds"},
		{"unknown key", "[server]\nport = 1\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}

	def := config.Default()
	if decoded.Server != def.Server {
		t.Fatalf("sample server section drifted: %+v vs %+v", decoded.Server, def.Server)
	}
	if decoded.Analysis != def.Analysis || decoded.History != def.History || decoded.Logging != def.Logging {
		t.Fatal("sample sections drifted from defaults")
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil || !exists {
		t.Fatalf("sample should load cleanly: exists=%v err=%v", exists, err)
	}
	if _, err := cfg.Encode(); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
}
