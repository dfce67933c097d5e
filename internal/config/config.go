package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
	"github.com/himanishpuri/SimilarityDeck/pkg/utils"
)

//go:embed sample_config.toml
var sampleConfig string

// Server holds the backend endpoints.
type Server struct {
	AudioURL       string `toml:"audio_url"`
	ImageURL       string `toml:"image_url"`
	CatalogURL     string `toml:"catalog_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RateLimitMs    int    `toml:"rate_limit_ms"`
}

type Analysis struct {
	DefaultKind string `toml:"default_kind"`
	ExportDir   string `toml:"export_dir"`
	FFprobe     bool   `toml:"ffprobe"`
}

type Playback struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Config is the on-disk configuration of the simdeck commands.
type Config struct {
	Server   Server   `toml:"server"`
	Analysis Analysis `toml:"analysis"`
	Playback Playback `toml:"playback"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			AudioURL:       "http://localhost:5000",
			ImageURL:       "http://localhost:5000",
			CatalogURL:     "http://localhost:5000",
			TimeoutSeconds: 120,
			RateLimitMs:    500,
		},
		Analysis: Analysis{
			DefaultKind: string(simdeck.KindAudio),
			ExportDir:   "~/SimilarityDeck/exports",
			FFprobe:     true,
		},
		Playback: Playback{
			Command: "ffplay",
			Args:    []string{"-nodisp", "-autoexit", "-loglevel", "quiet"},
		},
		History: History{
			Enabled: true,
			Path:    "~/.local/share/simdeck/history.sqlite3",
		},
		Logging: Logging{
			Level: "info",
			File:  "~/.local/state/simdeck/simdeck.log",
		},
	}
}

// DefaultConfigPath returns the absolute path of the user configuration file.
func DefaultConfigPath() (string, error) {
	return utils.ExpandHome("~/.config/simdeck/config.toml")
}

// Load locates, parses and validates a configuration file. A missing file
// is not an error; the defaults apply. It returns the resolved path and
// whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := utils.ExpandHome(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("simdeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) applyEnv() {
	c.Server.AudioURL = getEnvOrDefault("SIMDECK_AUDIO_URL", c.Server.AudioURL)
	c.Server.ImageURL = getEnvOrDefault("SIMDECK_IMAGE_URL", c.Server.ImageURL)
	c.Server.CatalogURL = getEnvOrDefault("SIMDECK_CATALOG_URL", c.Server.CatalogURL)
	c.History.Path = getEnvOrDefault("SIMDECK_HISTORY_PATH", c.History.Path)
}

func (c *Config) normalize() error {
	c.Server.AudioURL = strings.TrimRight(strings.TrimSpace(c.Server.AudioURL), "/")
	c.Server.ImageURL = strings.TrimRight(strings.TrimSpace(c.Server.ImageURL), "/")
	c.Server.CatalogURL = strings.TrimRight(strings.TrimSpace(c.Server.CatalogURL), "/")
	c.Analysis.DefaultKind = strings.ToLower(strings.TrimSpace(c.Analysis.DefaultKind))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	for _, p := range []*string{&c.Analysis.ExportDir, &c.History.Path, &c.Logging.File} {
		if *p == "" {
			continue
		}
		expanded, err := utils.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"server.audio_url":   c.Server.AudioURL,
		"server.image_url":   c.Server.ImageURL,
		"server.catalog_url": c.Server.CatalogURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
		}
	}
	if c.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("server.timeout_seconds must be positive")
	}
	if c.Server.RateLimitMs < 0 {
		return fmt.Errorf("server.rate_limit_ms must not be negative")
	}
	if _, err := simdeck.ProfileFor(simdeck.Kind(c.Analysis.DefaultKind), ""); err != nil {
		return fmt.Errorf("analysis.default_kind: %w", err)
	}
	if c.Playback.Command == "" {
		return fmt.Errorf("playback.command must not be empty")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// BaseURL returns the backend for kind.
func (c *Config) BaseURL(kind simdeck.Kind) string {
	if kind == simdeck.KindImage {
		return c.Server.ImageURL
	}
	return c.Server.AudioURL
}

// Profile builds the flow profile for kind, defaulting to analysis.default_kind.
func (c *Config) Profile(kind string) (simdeck.Profile, error) {
	if kind == "" {
		kind = c.Analysis.DefaultKind
	}
	k := simdeck.Kind(strings.ToLower(kind))
	return simdeck.ProfileFor(k, c.BaseURL(k))
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

func (c *Config) RateLimit() time.Duration {
	return time.Duration(c.Server.RateLimitMs) * time.Millisecond
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
