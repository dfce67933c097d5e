package simdeck

import "time"

// Screen is one of the mutually exclusive views of the upload/analyze flow.
type Screen int

const (
	ScreenUpload Screen = iota
	ScreenLoading
	ScreenResults
	ScreenError
)

func (s Screen) String() string {
	switch s {
	case ScreenUpload:
		return "upload"
	case ScreenLoading:
		return "loading"
	case ScreenResults:
		return "results"
	case ScreenError:
		return "error"
	default:
		return "unknown"
	}
}

// SelectedFile is the query file chosen by the user.
type SelectedFile struct {
	Name     string     // Base name shown to the user
	Path     string     // Absolute path on disk
	Size     int64      // Size in bytes
	MIMEType string     // Detected media type
	Media    *MediaInfo // Probed details, nil when unavailable
}

// MediaInfo holds optional details probed from the selected file.
type MediaInfo struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	Title      string
	Artist     string
}

// AnalysisResult is one ranked match returned by the similarity service.
// Rank is the position in the slice; results are never re-sorted locally.
type AnalysisResult struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Subtitle   string  `json:"subtitle,omitempty"`
	Similarity float64 `json:"similarity"` // Percentage (0-100) as supplied by the server
	MediaRef   string  `json:"media"`
}

// Progress is the cosmetic progress shown on the loading screen.
type Progress struct {
	Percent int
	Label   string
}

// State is an immutable snapshot of the flow, safe to render from any goroutine.
type State struct {
	Kind       Kind
	Screen     Screen
	File       *SelectedFile
	Results    []AnalysisResult
	Progress   Progress
	Err        error  // Set on the error screen
	ErrText    string // User-facing rendering of Err
	Notice     string // Message for a rejected file selection
	PlayingID  string
	Demo       bool // Results are built-in mock data
	Stats      Stats
	Generation uint64
}

// CanAnalyze reports whether the analyze action is enabled.
func (s State) CanAnalyze() bool {
	return s.File != nil
}

// Message is the user-facing text for the current error, if any.
func (s State) Message() string {
	if s.Err == nil {
		return ""
	}
	if s.ErrText != "" {
		return s.ErrText
	}
	return UserMessage(s.Err)
}
