package simdeck

import (
	"context"
	"time"
)

type Config struct {
	Profile  Profile
	Analyzer Analyzer
	Player   Player
	History  History
	Logger   Logger
	Observer func(State)
	Probe    func(ctx context.Context, path string) (*MediaInfo, error)
	Sleep    func(ctx context.Context, d time.Duration) error
	Now      func() time.Time
}

type Option func(*Config)

func WithProfile(p Profile) Option {
	return func(c *Config) {
		c.Profile = p
	}
}

func WithAnalyzer(a Analyzer) Option {
	return func(c *Config) {
		c.Analyzer = a
	}
}

func WithPlayer(p Player) Option {
	return func(c *Config) {
		c.Player = p
	}
}

func WithHistory(h History) Option {
	return func(c *Config) {
		c.History = h
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithObserver registers fn to receive a snapshot after every state change.
// fn runs outside the flow lock and may call back into the flow.
func WithObserver(fn func(State)) Option {
	return func(c *Config) {
		c.Observer = fn
	}
}

// WithSleep replaces the timer used by the progress animation.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Config) {
		c.Sleep = fn
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// WithProbe adds a best-effort metadata reader run on every accepted file.
func WithProbe(fn func(ctx context.Context, path string) (*MediaInfo, error)) Option {
	return func(c *Config) {
		c.Probe = fn
	}
}

func defaultConfig() *Config {
	return &Config{
		Profile: AudioProfile("http://localhost:5000"),
		Sleep:   sleepContext,
		Now:     time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}
