package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/himanishpuri/SimilarityDeck/pkg/logger"
)

func TestRedirectTUILogsWithoutFile(t *testing.T) {
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	var terminal bytes.Buffer
	logger.SetOutput(&terminal)

	closeLog, err := redirectTUILogs("")
	if err != nil {
		t.Fatalf("redirectTUILogs: %v", err)
	}
	defer closeLog()

	logger.Errorf("must not reach the screen")
	if terminal.Len() != 0 {
		t.Fatalf("log output leaked to the terminal: %q", terminal.String())
	}
}

func TestRedirectTUILogsToFile(t *testing.T) {
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	path := filepath.Join(t.TempDir(), "state", "simdeck.log")
	closeLog, err := redirectTUILogs(path)
	if err != nil {
		t.Fatalf("redirectTUILogs: %v", err)
	}
	logger.Errorf("written to the log file")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to the log file") {
		t.Errorf("log file content = %q", data)
	}
}
