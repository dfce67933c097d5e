package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	historyDB  string
	exportDir  string
}

// setupCLITestEnv writes a config that points every backend at serverURL
// and keeps all state under a temp dir.
func setupCLITestEnv(t *testing.T, serverURL string) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		historyDB:  filepath.Join(base, "history.sqlite3"),
		exportDir:  filepath.Join(base, "exports"),
	}

	content := fmt.Sprintf(`
[server]
audio_url = %q
image_url = %q
catalog_url = %q
rate_limit_ms = 0

[analysis]
export_dir = %q
ffprobe = false

[history]
path = %q

[logging]
level = "error"
`, serverURL, serverURL, serverURL, env.exportDir, env.historyDB)

	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeQueryFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("query bytes"), 0o644); err != nil {
		t.Fatalf("write query file: %v", err)
	}
	return path
}

func newAnalysisServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze-similarity", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("audio"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"No audio file provided"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","results":[
			{"id":7,"title":"Blue Monday","artist":"New Order","similarity":93.4,"audioPath":"/static/7.mp3"},
			{"id":3,"title":"Age of Consent","artist":"New Order","similarity":71.0,"audioPath":"/static/3.mp3"}
		]}`)
	})
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"healthy"}`)
	})
	mux.HandleFunc("/api/test-db", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"status":"error","message":"database locked"}`)
	})
	mux.HandleFunc("/buscar", func(w http.ResponseWriter, r *http.Request) {
		docs := make([]map[string]any, 7)
		for i := range docs {
			docs[i] = map[string]any{"id": i + 1, "titulo": fmt.Sprintf("Doc %d", i+1), "contenido": "texto", "imagen": ""}
		}
		_ = json.NewEncoder(w).Encode(docs)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func closedServerURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "simdeck ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "conf", "simdeck.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "loaded from "+target) || !strings.Contains(out, "audio_url") {
		t.Fatalf("unexpected config show output:\n%s", out)
	}
}

func TestAnalyzeJSONAndHistory(t *testing.T) {
	srv := newAnalysisServer(t)
	env := setupCLITestEnv(t, srv.URL)
	query := writeQueryFile(t, env.baseDir, "query.mp3")

	out, _, err := runCLI(t, []string{"analyze", query, "--json", "--save"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var export simdeck.Export
	if err := json.Unmarshal([]byte(out), &export); err != nil {
		t.Fatalf("analyze --json output is not an export: %v\n%s", err, out)
	}
	if len(export.Results) != 2 || export.Results[0].Title != "Blue Monday" || export.Results[1].ID != "3" {
		t.Fatalf("unexpected results %+v", export.Results)
	}
	if export.Results[0].MediaRef != srv.URL+"/static/7.mp3" {
		t.Errorf("media should resolve against the backend, got %q", export.Results[0].MediaRef)
	}
	if export.Statistics.AvgSimilarity != "82.2" {
		t.Errorf("unexpected average %q", export.Statistics.AvgSimilarity)
	}

	saved, err := filepath.Glob(filepath.Join(env.exportDir, "audio_similarity_results_*.json"))
	if err != nil || len(saved) != 1 {
		t.Fatalf("expected one saved export, got %v (%v)", saved, err)
	}

	out, _, err = runCLI(t, []string{"history", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var entries []simdeck.HistoryEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("history list --json: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].QueryFile != "query.mp3" || entries[0].Outcome != simdeck.OutcomeResults {
		t.Fatalf("unexpected history %+v", entries)
	}
	id := entries[0].ID

	out, _, err = runCLI(t, []string{"history", "show", id[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show by prefix: %v", err)
	}
	if !strings.Contains(out, "Blue Monday") || !strings.Contains(out, "query.mp3") {
		t.Fatalf("history show missing details:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"history", "export", id, "--dir", "-"}, env.configPath)
	if err != nil {
		t.Fatalf("history export: %v", err)
	}
	if !strings.Contains(out, `"total_matches": 2`) {
		t.Fatalf("unexpected export:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"history", "delete", id}, env.configPath); err != nil {
		t.Fatalf("history delete: %v", err)
	}
	if _, _, err := runCLI(t, []string{"history", "show", id}, env.configPath); err == nil {
		t.Fatal("deleted analysis should not be found")
	}
}

func TestAnalyzeRejectsUnsupportedFile(t *testing.T) {
	env := setupCLITestEnv(t, closedServerURL(t))
	query := writeQueryFile(t, env.baseDir, "notes.txt")

	_, _, err := runCLI(t, []string{"analyze", query}, env.configPath)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	if !strings.Contains(err.Error(), "audio") {
		t.Fatalf("expected the audio type message, got %v", err)
	}
}

func TestAnalyzeImageFallsBackToDemo(t *testing.T) {
	env := setupCLITestEnv(t, closedServerURL(t))
	query := writeQueryFile(t, env.baseDir, "query.png")

	out, _, err := runCLI(t, []string{"analyze", query, "--kind", "image"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "demo results") || !strings.Contains(out, "Messi Portrait") {
		t.Fatalf("expected demo results table:\n%s", out)
	}
}

func TestAnalyzeAudioUnreachableFails(t *testing.T) {
	env := setupCLITestEnv(t, closedServerURL(t))
	query := writeQueryFile(t, env.baseDir, "query.mp3")

	_, _, err := runCLI(t, []string{"analyze", query}, env.configPath)
	if err == nil {
		t.Fatal("audio analysis against a dead server should fail")
	}
	if !strings.Contains(err.Error(), "Could not reach") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	srv := newAnalysisServer(t)
	env := setupCLITestEnv(t, srv.URL)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "Active") || !strings.Contains(out, "Error") {
		t.Fatalf("expected active server with database error:\n%s", out)
	}
}

func TestCatalogSearch(t *testing.T) {
	srv := newAnalysisServer(t)
	env := setupCLITestEnv(t, srv.URL)

	out, _, err := runCLI(t, []string{"catalog", "search", "doc", "--page", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog search: %v", err)
	}
	if !strings.Contains(out, "Doc 6") || strings.Contains(out, "Doc 1 ") {
		t.Fatalf("expected the second page:\n%s", out)
	}
	if !strings.Contains(out, "Page 2 of 2") {
		t.Fatalf("expected pager footer:\n%s", out)
	}
}

func TestCatalogSearchOffline(t *testing.T) {
	env := setupCLITestEnv(t, closedServerURL(t))

	out, _, err := runCLI(t, []string{"catalog", "search", "politica", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog search: %v", err)
	}
	var page catalogPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !page.Offline || page.Total != 6 || len(page.Documents) != 5 {
		t.Fatalf("unexpected offline page %+v", page)
	}
}
