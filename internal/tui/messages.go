// Package tui provides the Bubble Tea front-end for the upload/analyze flow.
package tui

import "github.com/himanishpuri/SimilarityDeck/pkg/simdeck"

// StateChanged carries a flow snapshot published by the flow observer.
type StateChanged struct {
	State simdeck.State
}

// FileSelected is sent when a selection attempt finishes.
type FileSelected struct {
	Path string
	Err  error
}

// AnalysisDone is sent when Analyze returns.
type AnalysisDone struct {
	Err error
}

// PlaybackToggled is sent after a play/pause request.
type PlaybackToggled struct {
	ID  string
	Err error
}

// ResultsSaved is sent after an export attempt.
type ResultsSaved struct {
	Path string
	Err  error
}

// SystemChecked carries the health probe outcome.
type SystemChecked struct {
	Status simdeck.SystemStatus
	Err    error
}
