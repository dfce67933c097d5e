package simdeck

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/SimilarityDeck/pkg/utils"
)

// Export is the JSON document written by SaveResults.
type Export struct {
	Timestamp  time.Time        `json:"timestamp"`
	Profile    Kind             `json:"profile"`
	QueryFile  string           `json:"query_file"`
	Demo       bool             `json:"demo"`
	Results    []AnalysisResult `json:"results"`
	Statistics ExportStats      `json:"statistics"`
}

type ExportStats struct {
	TotalMatches     int    `json:"total_matches"`
	AvgSimilarity    string `json:"avg_similarity"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// NewExport builds the export document for a finished state.
func NewExport(st State, at time.Time) Export {
	e := Export{
		Timestamp: at.UTC(),
		Profile:   st.Kind,
		Demo:      st.Demo,
		Results:   cloneResults(st.Results),
		Statistics: ExportStats{
			TotalMatches:     st.Stats.Total,
			AvgSimilarity:    st.Stats.AvgText(),
			ProcessingTimeMs: st.Stats.ProcessingTime.Milliseconds(),
		},
	}
	if st.File != nil {
		e.QueryFile = st.File.Name
	}
	return e
}

// ExportFilename is the file name used for results exported at t.
func ExportFilename(kind Kind, t time.Time) string {
	return fmt.Sprintf("%s_similarity_results_%d.json", kind, t.UnixMilli())
}

// WriteExport encodes e as indented JSON.
func WriteExport(w io.Writer, e Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

func saveExport(dir string, e Export) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := utils.MakeDir(dir); err != nil {
		return "", err
	}

	path := filepath.Join(dir, ExportFilename(e.Profile, e.Timestamp))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}

	if err := WriteExport(f, e); err != nil {
		f.Close()
		return "", fmt.Errorf("writing export: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing export: %w", err)
	}
	return path, nil
}
