package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return New(Config{
		Level:    level,
		Output:   buf,
		ShowTime: false,
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{" error ", ERROR, false},
		{"fatal", FATAL, false},
		{"loud", INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, WARN)

	log.Debugf("debug %d", 1)
	log.Infof("info %d", 2)
	log.Warnf("warn %d", 3)
	log.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below WARN were written: %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("expected error line, got %q", out)
	}
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO)

	code := -1
	log.exit = func(c int) { code = c }
	log.Fatalf("boom")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] boom") {
		t.Errorf("expected fatal line, got %q", buf.String())
	}
}

func TestSetOutputDisablesColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: INFO, Colorize: true, Output: &buf})
	log.SetOutput(&buf)

	log.Infof("plain")
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("expected no escape codes, got %q", buf.String())
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simdeck.log")
	log := New(Config{Level: INFO})

	f, err := log.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	log.Infof("to file")
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestWithSharesOutputAndLevel(t *testing.T) {
	var buf bytes.Buffer
	root := newTestLogger(&buf, INFO)
	child := root.With("server").With("http")

	child.Infof("listening on %d", 5000)
	if !strings.Contains(buf.String(), "[INFO] server.http: listening on 5000") {
		t.Errorf("unexpected child line %q", buf.String())
	}

	buf.Reset()
	root.SetLevel(ERROR)
	child.Warnf("dropped")
	if buf.Len() != 0 {
		t.Errorf("child should follow the parent's level, got %q", buf.String())
	}

	var other bytes.Buffer
	root.SetOutput(&other)
	child.Errorf("moved")
	if !strings.Contains(other.String(), "moved") {
		t.Errorf("child should follow the parent's output, got %q", other.String())
	}
}

func TestMessageWithoutArgsIsNotFormatted(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, INFO)
	log.Infof("100% done")
	if !strings.Contains(buf.String(), "100% done") {
		t.Errorf("unexpected line %q", buf.String())
	}
}
