package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/SimilarityDeck/internal/config"
	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck/audio"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if level, err := logger.ParseLevel(cfg.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// session bundles a flow with the collaborators it owns.
type session struct {
	flow    *simdeck.Flow
	client  *simdeck.HTTPClient
	history simdeck.History
	profile simdeck.Profile
}

func (s *session) Close() {
	s.flow.Close()
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			logger.Warnf("closing history: %v", err)
		}
	}
}

// newSession wires a flow for kind ("" selects analysis.default_kind).
func (c *commandContext) newSession(kind string, observer func(simdeck.State)) (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	profile, err := cfg.Profile(kind)
	if err != nil {
		return nil, err
	}

	client := simdeck.NewHTTPClient(
		simdeck.WithHTTPTimeout(cfg.Timeout()),
		simdeck.WithRateLimit(cfg.RateLimit()),
	)

	player := audio.NewExecPlayer()
	player.Command = cfg.Playback.Command
	player.Args = append([]string(nil), cfg.Playback.Args...)

	opts := []simdeck.Option{
		simdeck.WithProfile(profile),
		simdeck.WithAnalyzer(client),
		simdeck.WithPlayer(player),
		simdeck.WithLogger(logger.GetLogger().With(string(profile.Kind))),
	}
	if observer != nil {
		opts = append(opts, simdeck.WithObserver(observer))
	}
	if profile.Kind == simdeck.KindAudio && cfg.Analysis.FFprobe && audio.FFprobeAvailable() {
		opts = append(opts, simdeck.WithProbe(ffprobeMedia))
	}

	s := &session{client: client, profile: profile}
	if cfg.History.Enabled {
		history, err := simdeck.NewSQLiteHistory(cfg.History.Path)
		if err != nil {
			logger.Warnf("history disabled: %v", err)
		} else {
			s.history = history
			opts = append(opts, simdeck.WithHistory(history))
		}
	}

	s.flow = simdeck.NewFlow(opts...)
	return s, nil
}

// openHistory opens the history store for the history subcommands.
func (c *commandContext) openHistory() (simdeck.History, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled in %s", c.configPath)
	}
	return simdeck.NewSQLiteHistory(cfg.History.Path)
}

func ffprobeMedia(ctx context.Context, path string) (*simdeck.MediaInfo, error) {
	md, err := audio.ReadMetadataFFmpeg(ctx, path)
	if err != nil {
		return nil, err
	}
	return &simdeck.MediaInfo{
		Duration:   md.Duration,
		SampleRate: md.SampleRate,
		Channels:   md.Channels,
		Title:      md.Title,
		Artist:     md.Artist,
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
