package simdeck

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestProfileAccepts(t *testing.T) {
	audioProfile := AudioProfile("")
	imageProfile := ImageProfile("")

	tests := []struct {
		name    string
		profile Profile
		mime    string
		file    string
		want    bool
	}{
		{"mpeg", audioProfile, "audio/mpeg", "a.mp3", true},
		{"wav", audioProfile, "audio/wav", "a.wav", true},
		{"m4a", audioProfile, "audio/x-m4a", "a.m4a", true},
		{"mp3 extension with unknown type", audioProfile, "application/octet-stream", "song.MP3", true},
		{"ogg", audioProfile, "audio/ogg", "a.ogg", false},
		{"image for audio", audioProfile, "image/png", "a.png", false},
		{"png", imageProfile, "image/png", "a.png", true},
		{"gif by prefix", imageProfile, "image/gif", "a.gif", true},
		{"webp extension", imageProfile, "application/octet-stream", "a.webp", true},
		{"pdf", imageProfile, "application/pdf", "a.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.Accepts(tt.mime, tt.file); got != tt.want {
				t.Errorf("Accepts(%q, %q) = %v, want %v", tt.mime, tt.file, got, tt.want)
			}
		})
	}
}

func TestDetectMIMESniffsMissingExtension(t *testing.T) {
	path := writeFile(t, "upload", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

	got, err := DetectMIME(path)
	if err != nil {
		t.Fatalf("DetectMIME failed: %v", err)
	}
	if got != "image/png" {
		t.Errorf("Expected image/png, got %s", got)
	}
}

func TestInspectImageBySniffing(t *testing.T) {
	path := writeFile(t, "photo", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

	file, err := ImageProfile("").Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if file.MIMEType != "image/png" || file.Name != "photo" {
		t.Errorf("Unexpected file %+v", file)
	}
}

func TestInspectMissingFile(t *testing.T) {
	_, err := AudioProfile("").Inspect(filepath.Join(t.TempDir(), "gone.mp3"))
	if !errors.Is(err, ErrFileUnreadable) {
		t.Errorf("Expected ErrFileUnreadable, got %v", err)
	}
	if UserMessage(err) == "" {
		t.Error("Expected a user message")
	}
}

func TestInspectDirectory(t *testing.T) {
	_, err := AudioProfile("").Inspect(t.TempDir())
	if !errors.Is(err, ErrFileUnreadable) {
		t.Errorf("Expected ErrFileUnreadable for a directory, got %v", err)
	}
}

func TestInspectWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 11025, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 11025},
		Data:           make([]int, 11025*2),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to finalize wav: %v", err)
	}
	f.Close()

	file, err := AudioProfile("").Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if file.Media == nil {
		t.Fatal("Expected probed media info")
	}
	if file.Media.SampleRate != 11025 || file.Media.Channels != 2 {
		t.Errorf("Unexpected media info %+v", file.Media)
	}
}

func TestInspectEmptyWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silent.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 11025, 16, 1, 1)
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to finalize wav: %v", err)
	}
	f.Close()

	file, err := AudioProfile("").Inspect(path)
	if err == nil {
		t.Fatalf("Expected a header-only WAV to be rejected, got %+v", file)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected a ValidationError for an unsupported file, got %v", err)
	}
}

func TestInspectCorruptWAV(t *testing.T) {
	path := writeFile(t, "broken.wav", []byte("definitely not riff"))

	_, err := AudioProfile("").Inspect(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}
