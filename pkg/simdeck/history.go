package simdeck

import (
	"errors"
	"time"
)

// Outcome classifies a finished analysis attempt.
type Outcome string

const (
	OutcomeResults   Outcome = "results"
	OutcomeNoMatches Outcome = "no_matches"
	OutcomeFailed    Outcome = "failed"
	OutcomeDemo      Outcome = "demo"
)

// HistoryEntry is one persisted analysis attempt.
type HistoryEntry struct {
	ID            string           `json:"id"`
	Kind          Kind             `json:"profile"`
	QueryFile     string           `json:"query_file"`
	QuerySize     int64            `json:"query_size"`
	Outcome       Outcome          `json:"outcome"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	ResultCount   int              `json:"result_count"`
	AvgSimilarity float64          `json:"avg_similarity"`
	Duration      time.Duration    `json:"duration"`
	CreatedAt     time.Time        `json:"created_at"`
	Results       []AnalysisResult `json:"results,omitempty"`
}

// Export converts a stored entry into the results export document.
func (e HistoryEntry) Export() Export {
	return Export{
		Timestamp: e.CreatedAt.UTC(),
		Profile:   e.Kind,
		QueryFile: e.QueryFile,
		Demo:      e.Outcome == OutcomeDemo,
		Results:   cloneResults(e.Results),
		Statistics: ExportStats{
			TotalMatches:     e.ResultCount,
			AvgSimilarity:    Stats{AvgSimilarity: e.AvgSimilarity}.AvgText(),
			ProcessingTimeMs: e.Duration.Milliseconds(),
		},
	}
}

func historyEntry(st State, started, finished time.Time) HistoryEntry {
	e := HistoryEntry{
		Kind:          st.Kind,
		ResultCount:   st.Stats.Total,
		AvgSimilarity: st.Stats.AvgSimilarity,
		Duration:      finished.Sub(started),
		CreatedAt:     finished,
		Results:       cloneResults(st.Results),
	}
	if st.File != nil {
		e.QueryFile = st.File.Name
		e.QuerySize = st.File.Size
	}

	switch {
	case st.Screen == ScreenResults && st.Demo:
		e.Outcome = OutcomeDemo
	case st.Screen == ScreenResults:
		e.Outcome = OutcomeResults
	case errors.Is(st.Err, ErrNoMatches):
		e.Outcome = OutcomeNoMatches
	default:
		e.Outcome = OutcomeFailed
		if st.Err != nil {
			e.ErrorMessage = st.Err.Error()
		}
	}
	return e
}
