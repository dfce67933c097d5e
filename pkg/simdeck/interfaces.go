package simdeck

import "context"

// Analyzer submits a query file to the similarity service.
type Analyzer interface {
	Analyze(ctx context.Context, profile Profile, file SelectedFile) ([]AnalysisResult, error)
}

// HealthChecker probes the diagnostic endpoints of a backend.
type HealthChecker interface {
	Health(ctx context.Context, baseURL string) error
	TestDB(ctx context.Context, baseURL string) error
}

// Player plays one media URL at a time. Play replaces whatever was playing.
// onEnded fires asynchronously, and only when playback finished on its own.
type Player interface {
	Play(ctx context.Context, url string, onEnded func()) error
	Pause() error
}

// History persists finished analysis attempts.
type History interface {
	Record(ctx context.Context, entry HistoryEntry) (string, error)
	List(ctx context.Context, limit int) ([]HistoryEntry, error)
	Get(ctx context.Context, id string) (*HistoryEntry, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
