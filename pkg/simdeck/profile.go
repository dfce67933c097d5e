package simdeck

import (
	"fmt"
	"strings"
	"time"
)

// Kind names a front-end variant of the flow.
type Kind string

const (
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// DefaultEndpoint is the analysis path shared by both backends.
const DefaultEndpoint = "/api/analyze-similarity"

// ResultFields maps the server's JSON keys onto AnalysisResult.
type ResultFields struct {
	ID         string
	Title      string
	Subtitle   string
	Similarity string
	Media      string
}

// ProgressStep is one frame of the cosmetic loading animation.
type ProgressStep struct {
	Percent int
	Label   string
	Delay   time.Duration
}

// Profile parameterizes the upload/analyze flow for one variant.
type Profile struct {
	Kind      Kind
	BaseURL   string
	Endpoint  string
	FormField string
	Fields    ResultFields

	AllowedMIME       []string // Exact media types accepted
	MIMEPrefix        string   // Any media type with this prefix is accepted
	AllowedExtensions []string // Accepted regardless of detected type
	MaxBytes          int64
	ProbeWAV          bool
	InvalidTypeText   string

	Playback bool

	Progress []ProgressStep
	Complete *ProgressStep // Shown after a successful response

	MockFallback bool
	MockDelay    time.Duration
	Mock         []AnalysisResult

	NoMatchesText string
}

// AudioProfile returns the profile of the audio similarity front-end.
func AudioProfile(baseURL string) Profile {
	return Profile{
		Kind:      KindAudio,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Endpoint:  DefaultEndpoint,
		FormField: "audio",
		Fields: ResultFields{
			ID:         "id",
			Title:      "title",
			Subtitle:   "artist",
			Similarity: "similarity",
			Media:      "audioPath",
		},
		AllowedMIME:       []string{"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/wave", "audio/m4a", "audio/x-m4a", "audio/mp4"},
		AllowedExtensions: []string{".mp3", ".wav", ".m4a"},
		MaxBytes:          50 << 20,
		ProbeWAV:          true,
		InvalidTypeText:   "Please select a valid audio file (MP3, WAV, M4A)",
		Playback:          true,
		Progress: []ProgressStep{
			{Percent: 20, Label: "Loading audio file...", Delay: 600 * time.Millisecond},
			{Percent: 40, Label: "Sending to server...", Delay: 600 * time.Millisecond},
			{Percent: 60, Label: "Extracting MFCC features...", Delay: 600 * time.Millisecond},
			{Percent: 80, Label: "Comparing against database...", Delay: 600 * time.Millisecond},
			{Percent: 90, Label: "Processing results..."},
		},
		Complete:      &ProgressStep{Percent: 100, Label: "Analysis complete!", Delay: 500 * time.Millisecond},
		Mock:          mockSongs(),
		NoMatchesText: "No similar songs found. Try another audio file.",
	}
}

// ImageProfile returns the profile of the image similarity front-end.
func ImageProfile(baseURL string) Profile {
	steps := make([]ProgressStep, 0, 21)
	for pct := 0; pct <= 100; pct += 5 {
		steps = append(steps, ProgressStep{
			Percent: pct,
			Label:   fmt.Sprintf("%d%%", pct),
			Delay:   100 * time.Millisecond,
		})
	}

	return Profile{
		Kind:      KindImage,
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Endpoint:  DefaultEndpoint,
		FormField: "image",
		Fields: ResultFields{
			ID:         "id",
			Title:      "name",
			Similarity: "similarity",
			Media:      "imagePath",
		},
		MIMEPrefix:        "image/",
		AllowedExtensions: []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp"},
		MaxBytes:          16 << 20,
		InvalidTypeText:   "Please select a valid image file",
		Progress:          steps,
		MockFallback:      true,
		MockDelay:         time.Second,
		Mock:              mockImages(),
		NoMatchesText:     "No similar images found",
	}
}

// ProfileFor returns the built-in profile for kind.
func ProfileFor(kind Kind, baseURL string) (Profile, error) {
	switch kind {
	case KindAudio:
		return AudioProfile(baseURL), nil
	case KindImage:
		return ImageProfile(baseURL), nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (want audio or image)", kind)
	}
}

// EndpointURL is the absolute analysis URL.
func (p Profile) EndpointURL() string {
	endpoint := p.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return p.BaseURL + endpoint
}

// ResolveMedia turns a server-relative media path into an absolute URL.
func (p Profile) ResolveMedia(ref string) string {
	if ref == "" || strings.Contains(ref, "://") || p.BaseURL == "" {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return p.BaseURL + ref
}

// MaxSizeText renders the size limit for user messages.
func (p Profile) MaxSizeText() string {
	return fmt.Sprintf("%d MB", p.MaxBytes>>20)
}
