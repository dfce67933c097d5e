package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for files without a usable RIFF/WAVE header.
var ErrInvalidWAV = errors.New("not a valid WAV file")

// WAVInfo describes a decoded WAV header.
type WAVInfo struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	BitDepth   int
	HasAudio   bool // At least one PCM frame could be read
}

// ProbeWAV validates the RIFF/WAVE header of path and reads its format.
func ProbeWAV(path string) (*WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	duration, err := decoder.Duration()
	if err != nil {
		return nil, fmt.Errorf("%w: reading duration: %v", ErrInvalidWAV, err)
	}

	info := &WAVInfo{
		Duration:   duration,
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
	}

	// A single frame is enough to tell an empty data chunk apart.
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: info.Channels,
			SampleRate:  info.SampleRate,
		},
		Data:           make([]int, max(info.Channels, 1)),
		SourceBitDepth: info.BitDepth,
	}
	n, err := decoder.PCMBuffer(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: reading samples: %v", ErrInvalidWAV, err)
	}
	info.HasAudio = n > 0

	return info, nil
}
