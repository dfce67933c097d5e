package simdeck

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck/audio"
)

// extensionTypes resolves the media types the platform mime table often lacks.
var extensionTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// DetectMIME guesses the media type of path from its extension, falling
// back to sniffing the first 512 bytes.
func DetectMIME(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := extensionTypes[ext]; ok {
		return t, nil
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mt, nil
}

// Accepts reports whether the profile accepts a file with this media type and name.
func (p Profile) Accepts(mimeType, name string) bool {
	mimeType = strings.ToLower(mimeType)
	if slices.Contains(p.AllowedMIME, mimeType) {
		return true
	}
	if p.MIMEPrefix != "" && strings.HasPrefix(mimeType, p.MIMEPrefix) {
		return true
	}
	return slices.Contains(p.AllowedExtensions, strings.ToLower(filepath.Ext(name)))
}

// Inspect validates path against the profile and describes it.
// Rejections are returned as *ValidationError.
func (p Profile) Inspect(path string) (*SelectedFile, error) {
	reject := func(reason error, text string) error {
		return &ValidationError{Path: path, Reason: reason, Text: text}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %v", ErrFileUnreadable, err), "Cannot read the selected file")
	}
	if !info.Mode().IsRegular() {
		return nil, reject(ErrFileUnreadable, "The selected path is not a file")
	}

	mimeType, err := DetectMIME(abs)
	if err != nil {
		return nil, reject(fmt.Errorf("%w: %v", ErrFileUnreadable, err), "Cannot read the selected file")
	}
	if !p.Accepts(mimeType, info.Name()) {
		return nil, reject(ErrUnsupportedType, p.InvalidTypeText)
	}

	if p.MaxBytes > 0 && info.Size() > p.MaxBytes {
		return nil, reject(ErrFileTooLarge, "File is too large. Maximum size is "+p.MaxSizeText())
	}

	file := &SelectedFile{
		Name:     info.Name(),
		Path:     abs,
		Size:     info.Size(),
		MIMEType: mimeType,
	}

	if p.ProbeWAV && strings.EqualFold(filepath.Ext(abs), ".wav") {
		wavInfo, err := audio.ProbeWAV(abs)
		if err != nil {
			return nil, reject(fmt.Errorf("%w: %v", ErrUnsupportedType, err), "The selected WAV file is damaged or not a WAV file")
		}
		if !wavInfo.HasAudio {
			return nil, reject(fmt.Errorf("%w: empty data chunk", ErrUnsupportedType), "The selected WAV file contains no audio")
		}
		file.Media = &MediaInfo{
			Duration:   wavInfo.Duration,
			SampleRate: wavInfo.SampleRate,
			Channels:   wavInfo.Channels,
		}
	}

	return file, nil
}
