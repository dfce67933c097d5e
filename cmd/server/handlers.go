package main

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck/catalog"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	config  *ServerConfig
	profile simdeck.Profile
	log     simdeck.Logger
}

// NewServer creates a new server instance
func NewServer(config *ServerConfig) (*Server, error) {
	profile, err := simdeck.ProfileFor(config.Kind, "")
	if err != nil {
		return nil, err
	}
	return &Server{
		config:  config,
		profile: profile,
		log:     logger.GetLogger().With("server"),
	}, nil
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Message: http.StatusText(statusCode),
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "SimilarityDeck demo backend",
		"kind":    s.profile.Kind,
		"endpoints": map[string]string{
			"health":   "GET /api/health",
			"testDB":   "GET /api/test-db",
			"analyze":  "POST " + simdeck.DefaultEndpoint,
			"list":     "GET /api/list-songs",
			"search":   "POST /buscar",
			"document": "GET /documento/{id}",
			"media":    "GET /static/{file}",
		},
	})
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Message: fmt.Sprintf("%s similarity server running", s.profile.Kind),
	})
}

// handleTestDB handles GET /api/test-db
func (s *Server) handleTestDB(w http.ResponseWriter, r *http.Request) {
	n := len(s.profile.Mock)
	if n == 0 {
		s.respondJSON(w, http.StatusInternalServerError, StatusResponse{Status: "error", Message: "index is empty"})
		return
	}
	s.respondJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Message: "index reachable",
		Count:   n,
	})
}

// handleListIndexed handles GET /api/list-songs
func (s *Server) handleListIndexed(w http.ResponseWriter, r *http.Request) {
	items := s.profile.MockResults()
	out := make([]map[string]any, len(items))
	for i, item := range items {
		out[i] = encodeResult(s.profile, item)
	}
	s.respondJSON(w, http.StatusOK, AnalyzeResponse{
		Status:  "ok",
		Results: out,
		Total:   len(out),
	})
}

// handleAnalyze handles POST /api/analyze-similarity (multipart file upload)
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.profile.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large. Maximum %s", s.profile.MaxSizeText()))
			return
		}
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(s.profile.FormField)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("No %s file provided", s.profile.Kind))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !allowedUpload(s.profile, header.Filename) {
		s.respondError(w, http.StatusBadRequest, "File type not allowed")
		return
	}
	if header.Size > s.profile.MaxBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large. Maximum %s", s.profile.MaxSizeText()))
		return
	}

	h := fnv.New64a()
	if _, err := io.Copy(h, file); err != nil {
		s.log.Errorf("Failed to read upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	uploadID := uuid.NewString()
	ranked := rank(s.profile.MockResults(), h.Sum64())
	s.log.Infof("Upload %s (%s, %d bytes) ranked %d items", uploadID, header.Filename, header.Size, len(ranked))

	results := make([]map[string]any, len(ranked))
	for i, item := range ranked {
		item.MediaRef = s.mediaPath(item)
		results[i] = encodeResult(s.profile, item)
	}

	s.respondJSON(w, http.StatusOK, AnalyzeResponse{
		Status:  "ok",
		Results: results,
		Total:   len(results),
		Message: foundMessage(s.profile.Kind, len(results)),
	})
}

// rank perturbs the indexed scores by the upload digest so different files
// produce different orderings, then sorts by similarity.
func rank(items []simdeck.AnalysisResult, digest uint64) []simdeck.AnalysisResult {
	for i := range items {
		shift := uint(i*5) % 60
		delta := float64(int((digest>>shift)&0x1f)-16) / 2
		score := math.Max(0, math.Min(100, items[i].Similarity+delta))
		items[i].Similarity = math.Round(score*10) / 10
	}
	slices.SortStableFunc(items, func(a, b simdeck.AnalysisResult) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	if len(items) > MaxResults {
		items = items[:MaxResults]
	}
	return items
}

// mediaPath prefers a local copy named after the item id in the media dir,
// which is served under /static/.
func (s *Server) mediaPath(item simdeck.AnalysisResult) string {
	if s.config.MediaDir == "" {
		return item.MediaRef
	}
	exts := audioExtensions
	if s.profile.Kind == simdeck.KindImage {
		exts = s.profile.AllowedExtensions
	}
	for _, ext := range exts {
		name := item.ID + ext
		info, err := os.Stat(filepath.Join(s.config.MediaDir, name))
		if err == nil && info.Mode().IsRegular() {
			return "/static/" + name
		}
	}
	return item.MediaRef
}

// handleSearch handles POST /buscar
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	docs := catalog.MockSearch(req.Query)
	if docs == nil {
		docs = []catalog.Document{}
	}
	s.log.Debugf("Search %q matched %d documents", req.Query, len(docs))
	s.respondJSON(w, http.StatusOK, docs)
}

// handleDocument handles GET /documento/{id}
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	s.respondJSON(w, http.StatusOK, catalog.Document{
		ID:      id,
		Title:   fmt.Sprintf("Documento %d", id),
		Content: fmt.Sprintf("Este es el contenido completo del documento %d.", id),
	})
}
