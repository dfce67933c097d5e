package simdeck

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoFileSelected is returned by Analyze before any file was accepted.
	ErrNoFileSelected = errors.New("no file selected")
	// ErrUnsupportedType marks a file whose type the profile does not accept.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrFileTooLarge marks a file above the profile's size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrFileUnreadable marks a path that cannot be opened as a regular file.
	ErrFileUnreadable = errors.New("file unreadable")

	// ErrUnreachable classifies transport failures: the server never answered.
	ErrUnreachable = errors.New("analysis server unreachable")
	// ErrMalformedResponse marks a response body that is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed server response")
	// ErrNoMatches is the outcome of a successful analysis with zero results.
	ErrNoMatches = errors.New("no similar matches found")

	// ErrStale is returned to an analysis superseded by Reset or a newer Analyze.
	// Its result was discarded without touching the flow state.
	ErrStale = errors.New("analysis superseded")

	ErrBusy                = errors.New("analysis in progress")
	ErrNoResults           = errors.New("no results to work with")
	ErrUnknownResult       = errors.New("unknown result")
	ErrPlaybackUnsupported = errors.New("playback not supported for this profile")
	ErrNoPlayer            = errors.New("no player configured")
	ErrNoHealthChecker     = errors.New("analyzer does not support health checks")
	ErrNoAnalyzer          = errors.New("no analyzer configured")
)

// ValidationError is a rejected file selection with its user-facing message.
type ValidationError struct {
	Path   string
	Reason error
	Text   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid file %s: %v", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

// ServerError is a non-OK answer from the analysis service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("server error (HTTP %d): %s", e.StatusCode, e.Message)
}

// UserMessage renders err as text suitable for the error screen.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) && verr.Text != "" {
		return verr.Text
	}

	var serr *ServerError
	switch {
	case errors.As(err, &serr):
		if serr.Message != "" {
			return "Analysis failed: " + serr.Message
		}
		return fmt.Sprintf("Analysis failed: server returned HTTP %d", serr.StatusCode)
	case errors.Is(err, ErrNoMatches):
		return "No similar matches found"
	case errors.Is(err, ErrUnreachable):
		return "Could not reach the analysis server. Check that it is running and try again."
	case errors.Is(err, ErrMalformedResponse):
		return "The analysis server sent an unexpected response"
	case errors.Is(err, context.DeadlineExceeded):
		return "The analysis timed out"
	case errors.Is(err, context.Canceled):
		return "The analysis was cancelled"
	case errors.Is(err, ErrNoFileSelected):
		return "Please select a file first"
	}
	return err.Error()
}
