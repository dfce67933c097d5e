package simdeck

import (
	"context"
	"time"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck/storage"
)

// ErrHistoryNotFound is returned for an unknown history id.
var ErrHistoryNotFound = storage.ErrNotFound

// storageAdapter adapts the storage.DBClient to implement the History interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteHistory opens (or creates) the analysis history at dbPath.
func NewSQLiteHistory(dbPath string) (History, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) Record(ctx context.Context, e HistoryEntry) (string, error) {
	row := &storage.Analysis{
		ID:            e.ID,
		Profile:       string(e.Kind),
		QueryFile:     e.QueryFile,
		QuerySize:     e.QuerySize,
		Outcome:       string(e.Outcome),
		ErrorMessage:  e.ErrorMessage,
		ResultCount:   e.ResultCount,
		AvgSimilarity: e.AvgSimilarity,
		DurationMs:    e.Duration.Milliseconds(),
		CreatedAt:     e.CreatedAt,
		Matches:       make([]storage.Match, len(e.Results)),
	}
	for i, r := range e.Results {
		row.Matches[i] = storage.Match{
			ResultID:   r.ID,
			Title:      r.Title,
			Subtitle:   r.Subtitle,
			Similarity: r.Similarity,
			MediaRef:   r.MediaRef,
		}
	}
	return s.db.SaveAnalysis(ctx, row)
}

func (s *storageAdapter) List(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.ListAnalyses(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, len(rows))
	for i := range rows {
		entries[i] = fromAnalysis(&rows[i])
	}
	return entries, nil
}

func (s *storageAdapter) Get(ctx context.Context, id string) (*HistoryEntry, error) {
	row, err := s.db.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	e := fromAnalysis(row)
	return &e, nil
}

func (s *storageAdapter) Delete(ctx context.Context, id string) error {
	return s.db.DeleteAnalysis(ctx, id)
}

func (s *storageAdapter) Count(ctx context.Context) (int64, error) {
	return s.db.CountAnalyses(ctx)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func fromAnalysis(a *storage.Analysis) HistoryEntry {
	e := HistoryEntry{
		ID:            a.ID,
		Kind:          Kind(a.Profile),
		QueryFile:     a.QueryFile,
		QuerySize:     a.QuerySize,
		Outcome:       Outcome(a.Outcome),
		ErrorMessage:  a.ErrorMessage,
		ResultCount:   a.ResultCount,
		AvgSimilarity: a.AvgSimilarity,
		Duration:      time.Duration(a.DurationMs) * time.Millisecond,
		CreatedAt:     a.CreatedAt,
	}
	for _, m := range a.Matches {
		e.Results = append(e.Results, AnalysisResult{
			ID:         m.ResultID,
			Title:      m.Title,
			Subtitle:   m.Subtitle,
			Similarity: m.Similarity,
			MediaRef:   m.MediaRef,
		})
	}
	return e
}
