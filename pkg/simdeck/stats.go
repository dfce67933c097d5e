package simdeck

import (
	"fmt"
	"time"
)

// Stats summarizes a result set.
type Stats struct {
	Total          int
	AvgSimilarity  float64
	ProcessingTime time.Duration
	Best           *AnalysisResult // First result in server order
}

// AvgText renders the average with one decimal, as shown to users.
func (s Stats) AvgText() string {
	return fmt.Sprintf("%.1f", s.AvgSimilarity)
}

// ComputeStats derives statistics from results without reordering them.
func ComputeStats(results []AnalysisResult, elapsed time.Duration) Stats {
	s := Stats{Total: len(results), ProcessingTime: elapsed}
	if len(results) == 0 {
		return s
	}

	var sum float64
	for _, r := range results {
		sum += r.Similarity
	}
	s.AvgSimilarity = sum / float64(len(results))

	best := results[0]
	s.Best = &best
	return s
}

// Confidence buckets a similarity score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func ConfidenceOf(similarity float64) Confidence {
	switch {
	case similarity >= 80:
		return ConfidenceHigh
	case similarity >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
