package audio

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Metadata is what ffprobe reports about a local media file.
type Metadata struct {
	Filename   string
	Title      string
	Artist     string
	Album      string
	Duration   time.Duration
	SampleRate int
	Channels   int
	Format     string
}

// ErrNoAudioStream is returned for media without an audio track.
var ErrNoAudioStream = errors.New("no audio stream found")

// FFprobe is the binary ReadMetadataFFmpeg runs. Tests point it elsewhere.
var FFprobe = "ffprobe"

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// FFprobeAvailable reports whether the ffprobe binary is on PATH.
func FFprobeAvailable() bool {
	_, err := exec.LookPath(FFprobe)
	return err == nil
}

// ReadMetadataFFmpeg runs ffprobe on path. Without a deadline on ctx it
// gives up after 5 seconds.
func ReadMetadataFFmpeg(ctx context.Context, path string) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		FFprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("ffprobe %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}

	return parseProbe(path, out)
}

func parseProbe(path string, out []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("decoding ffprobe output: %w", err)
	}

	stream := probe.firstAudioStream()
	if stream == nil {
		return nil, ErrNoAudioStream
	}

	seconds, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	sampleRate, _ := strconv.Atoi(stream.SampleRate)

	meta := &Metadata{
		Filename:   filepath.Base(path),
		Duration:   time.Duration(seconds * float64(time.Second)),
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Format:     probe.Format.Format,
	}

	meta.Title = tag(probe.Format.Tags, "title")
	meta.Artist = tag(probe.Format.Tags, "artist")
	meta.Album = tag(probe.Format.Tags, "album")
	return meta, nil
}

// tag looks a key up case-insensitively; Vorbis and FLAC files report
// upper-case keys.
func tag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
