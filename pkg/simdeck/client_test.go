package simdeck

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient() *HTTPClient {
	return NewHTTPClient(WithRateLimit(0), WithHTTPTimeout(5*time.Second))
}

func testFile(t *testing.T, name, mimeType string, data []byte) SelectedFile {
	t.Helper()
	path := writeFile(t, name, data)
	return SelectedFile{Name: name, Path: path, Size: int64(len(data)), MIMEType: mimeType}
}

func TestHTTPClientAnalyzeAudio(t *testing.T) {
	payload := []byte("ID3 fake mp3 payload")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/analyze-similarity" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.ContentLength != -1 && r.ContentLength <= int64(len(payload)) {
			t.Errorf("Content-Length %d too small for payload", r.ContentLength)
		}

		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("Missing audio field: %v", err)
		}
		defer f.Close()
		got, _ := io.ReadAll(f)
		if string(got) != string(payload) {
			t.Errorf("Uploaded bytes differ: %q", got)
		}
		if hdr.Filename != "query.mp3" {
			t.Errorf("Expected filename query.mp3, got %s", hdr.Filename)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "audio/mpeg" {
			t.Errorf("Expected part type audio/mpeg, got %s", ct)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"ok","results":[
			{"id": 12, "title": "Imagine", "artist": "John Lennon", "similarity": 88.4, "audioPath": "/audio/12.mp3"},
			{"id": "a-1", "title": "Yesterday", "artist": "The Beatles", "similarity": "71.25", "audioPath": "https://cdn.example/y.mp3"}
		]}`)
	}))
	defer server.Close()

	profile := AudioProfile(server.URL)
	results, err := newTestClient().Analyze(context.Background(), profile, testFile(t, "query.mp3", "audio/mpeg", payload))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	first := results[0]
	if first.ID != "12" || first.Title != "Imagine" || first.Subtitle != "John Lennon" || first.Similarity != 88.4 {
		t.Errorf("Unexpected first result %+v", first)
	}
	if first.MediaRef != server.URL+"/audio/12.mp3" {
		t.Errorf("Expected resolved media URL, got %s", first.MediaRef)
	}
	if results[1].ID != "a-1" || results[1].Similarity != 71.25 {
		t.Errorf("Unexpected second result %+v", results[1])
	}
	if results[1].MediaRef != "https://cdn.example/y.mp3" {
		t.Errorf("Absolute media must be kept, got %s", results[1].MediaRef)
	}
}

func TestHTTPClientAnalyzeImageFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("image"); err != nil {
			t.Errorf("Missing image field: %v", err)
		}
		io.WriteString(w, `{"status":"ok","results":[{"id":1,"name":"Messi Portrait","similarity":95.2,"imagePath":"/static/1.jpg"}]}`)
	}))
	defer server.Close()

	results, err := newTestClient().Analyze(context.Background(), ImageProfile(server.URL), testFile(t, "q.png", "image/png", []byte("png")))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Messi Portrait" || results[0].Subtitle != "" {
		t.Errorf("Unexpected results %+v", results)
	}
}

func TestHTTPClientErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(error) bool
		message string
	}{
		{
			name:   "server error body",
			status: http.StatusBadRequest,
			body:   `{"error":"No audio file provided"}`,
			check: func(err error) bool {
				var serr *ServerError
				return errors.As(err, &serr) && serr.StatusCode == 400 && serr.Message == "No audio file provided"
			},
		},
		{
			name:   "server error without json",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(err error) bool {
				var serr *ServerError
				return errors.As(err, &serr) && serr.StatusCode == 502
			},
		},
		{
			name:   "status not ok",
			status: http.StatusOK,
			body:   `{"status":"error","message":"model not loaded"}`,
			check: func(err error) bool {
				var serr *ServerError
				return errors.As(err, &serr) && serr.Message == "model not loaded"
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `not json`,
			check:  func(err error) bool { return errors.Is(err, ErrMalformedResponse) },
		},
		{
			name:   "bad similarity",
			status: http.StatusOK,
			body:   `{"status":"ok","results":[{"id":1,"title":"x","similarity":"high"}]}`,
			check:  func(err error) bool { return errors.Is(err, ErrMalformedResponse) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient().Analyze(context.Background(), AudioProfile(server.URL), testFile(t, "q.mp3", "audio/mpeg", []byte("x")))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !tt.check(err) {
				t.Errorf("Unexpected error classification: %v", err)
			}
			if errors.Is(err, ErrUnreachable) {
				t.Errorf("A server answer must not be classified as unreachable: %v", err)
			}
		})
	}
}

func TestHTTPClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient().Analyze(context.Background(), ImageProfile(url), testFile(t, "q.png", "image/png", []byte("png")))
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Expected ErrUnreachable, got %v", err)
	}
}

func TestHTTPClientCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient().Analyze(ctx, ImageProfile(server.URL), testFile(t, "q.png", "image/png", []byte("png")))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if errors.Is(err, ErrUnreachable) {
		t.Error("Cancellation must not be classified as unreachable")
	}
}

func TestHTTPClientRateLimitDeadline(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewHTTPClient(WithRateLimit(time.Hour))
	file := testFile(t, "q.png", "image/png", []byte("png"))
	if _, err := c.Analyze(context.Background(), ImageProfile(url), file); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Expected the first call to reach the network, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.Analyze(ctx, ImageProfile(url), file)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
	if msg := UserMessage(err); msg != "The analysis timed out" {
		t.Errorf("Unexpected user message %q", msg)
	}
}

func TestHTTPClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			io.WriteString(w, `{"status":"healthy"}`)
		case "/api/test-db":
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"status":"error","error":"no such table"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient()
	if err := c.Health(context.Background(), server.URL+"/"); err != nil {
		t.Errorf("Health failed: %v", err)
	}

	err := c.TestDB(context.Background(), server.URL)
	var serr *ServerError
	if !errors.As(err, &serr) || serr.Message != "no such table" {
		t.Errorf("Expected server error from test-db, got %v", err)
	}

	status := ProbeSystem(context.Background(), c, server.URL)
	if status.Server != "Active" || status.Database != "Error" || status.DemoMode {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestHTTPClientMissingFile(t *testing.T) {
	file := SelectedFile{Name: "gone.mp3", Path: "/nonexistent/gone.mp3", MIMEType: "audio/mpeg"}
	_, err := newTestClient().Analyze(context.Background(), AudioProfile("http://127.0.0.1:1"), file)
	if !errors.Is(err, ErrFileUnreadable) {
		t.Errorf("Expected ErrFileUnreadable, got %v", err)
	}
}
