package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
)

// MaxResults caps the ranked list, like the LIMIT of the similarity query.
const MaxResults = 12

// audioExtensions is what the audio backend accepts; flac is allowed here
// even though the client never offers it.
var audioExtensions = []string{".mp3", ".wav", ".m4a", ".flac"}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Kind           simdeck.Kind
	MediaDir       string
	AllowedOrigins []string
	Verbose        bool
}

// AnalyzeResponse is the body of a successful POST /api/analyze-similarity.
// Results are keyed by the profile's field names.
type AnalyzeResponse struct {
	Status  string           `json:"status"`
	Results []map[string]any `json:"results"`
	Total   int              `json:"total"`
	Message string           `json:"message"`
}

// StatusResponse is returned by the health endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

// SearchRequest is the body of POST /buscar
type SearchRequest struct {
	Query string `json:"query"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// allowedUpload reports whether the backend accepts name for the profile.
func allowedUpload(profile simdeck.Profile, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	if profile.Kind == simdeck.KindAudio {
		return slices.Contains(audioExtensions, ext)
	}
	return slices.Contains(profile.AllowedExtensions, ext)
}

// encodeResult renders r with the JSON keys the client expects for profile.
func encodeResult(profile simdeck.Profile, r simdeck.AnalysisResult) map[string]any {
	f := profile.Fields
	out := map[string]any{
		f.ID:         r.ID,
		f.Title:      r.Title,
		f.Similarity: r.Similarity,
		f.Media:      r.MediaRef,
	}
	if f.Subtitle != "" {
		out[f.Subtitle] = r.Subtitle
	}
	return out
}

func foundMessage(kind simdeck.Kind, n int) string {
	noun := "songs"
	if kind == simdeck.KindImage {
		noun = "images"
	}
	return fmt.Sprintf("Found %d similar %s", n, noun)
}
