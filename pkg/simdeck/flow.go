package simdeck

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Flow is the upload/analyze state machine:
// Upload -> Loading -> Results | Error, and back to Upload on Reset.
// All methods are safe for concurrent use.
type Flow struct {
	cfg *Config

	mu      sync.Mutex
	state   State
	gen     uint64
	playGen uint64
	cancel  context.CancelFunc
	started time.Time
}

// NewFlow creates a flow on the Upload screen.
func NewFlow(opts ...Option) *Flow {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Flow{
		cfg:   cfg,
		state: State{Kind: cfg.Profile.Kind, Screen: ScreenUpload},
	}
}

func (f *Flow) Profile() Profile {
	return f.cfg.Profile
}

// Snapshot returns a copy of the current state.
func (f *Flow) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// SelectFile validates path and makes it the current selection. A rejected
// file clears any previous selection and sets State.Notice.
func (f *Flow) SelectFile(path string) error {
	if f.Snapshot().Screen == ScreenLoading {
		return ErrBusy
	}

	file, err := f.cfg.Profile.Inspect(path)
	if err == nil {
		f.probeMedia(file)
	}

	f.mu.Lock()
	if f.state.Screen == ScreenLoading {
		f.mu.Unlock()
		return ErrBusy
	}
	f.stopPlaybackLocked()
	f.state = State{Kind: f.cfg.Profile.Kind, Screen: ScreenUpload}
	if err != nil {
		f.state.Notice = UserMessage(err)
	} else {
		f.state.File = file
	}
	st := f.snapshotLocked()
	f.mu.Unlock()

	if err != nil {
		f.cfg.Logger.Warnf("rejected %s: %v", path, err)
	} else {
		f.cfg.Logger.Debugf("selected %s (%s, %d bytes)", file.Name, file.MIMEType, file.Size)
	}
	f.notify(st)
	return err
}

func (f *Flow) probeMedia(file *SelectedFile) {
	if f.cfg.Probe == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := f.cfg.Probe(ctx, file.Path)
	if err != nil {
		f.cfg.Logger.Debugf("probing %s: %v", file.Name, err)
		return
	}
	if file.Media == nil {
		file.Media = info
		return
	}
	file.Media.Title = info.Title
	file.Media.Artist = info.Artist
	if file.Media.Duration == 0 {
		file.Media.Duration = info.Duration
	}
}

// Analyze uploads the selected file and waits for the outcome. Each call
// supersedes any analysis still running. It returns nil when results are
// shown, ErrStale when superseded, and the failure otherwise.
func (f *Flow) Analyze(ctx context.Context) error {
	f.mu.Lock()
	if f.state.File == nil {
		f.mu.Unlock()
		return ErrNoFileSelected
	}
	if f.cfg.Analyzer == nil {
		f.mu.Unlock()
		return ErrNoAnalyzer
	}
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	gen := f.gen
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.cancel = cancel

	f.stopPlaybackLocked()
	file := *f.state.File
	profile := f.cfg.Profile
	f.state = State{Kind: profile.Kind, Screen: ScreenLoading, File: f.state.File}
	f.started = f.cfg.Now()
	st := f.snapshotLocked()
	f.mu.Unlock()

	f.cfg.Logger.Infof("analyzing %s against %s", file.Name, profile.EndpointURL())
	f.notify(st)

	for _, step := range profile.Progress {
		if err := f.setProgress(gen, step); err != nil {
			return err
		}
		if err := f.cfg.Sleep(runCtx, step.Delay); err != nil {
			return f.finish(gen, nil, false, err)
		}
	}

	results, err := f.cfg.Analyzer.Analyze(runCtx, profile, file)
	demo := false
	if err != nil && errors.Is(err, ErrUnreachable) && profile.MockFallback && len(profile.Mock) > 0 {
		f.cfg.Logger.Warnf("server unreachable, using demo results: %v", err)
		if serr := f.cfg.Sleep(runCtx, profile.MockDelay); serr != nil {
			return f.finish(gen, nil, false, serr)
		}
		results, err, demo = profile.MockResults(), nil, true
	}

	if err == nil && profile.Complete != nil {
		if perr := f.setProgress(gen, *profile.Complete); perr != nil {
			return perr
		}
		if serr := f.cfg.Sleep(runCtx, profile.Complete.Delay); serr != nil {
			return f.finish(gen, nil, false, serr)
		}
	}

	return f.finish(gen, results, demo, err)
}

func (f *Flow) setProgress(gen uint64, step ProgressStep) error {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return ErrStale
	}
	f.state.Progress = Progress{Percent: step.Percent, Label: step.Label}
	st := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(st)
	return nil
}

func (f *Flow) finish(gen uint64, results []AnalysisResult, demo bool, err error) error {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return ErrStale
	}
	f.cancel = nil
	started := f.started
	finished := f.cfg.Now()
	profile := f.cfg.Profile

	switch {
	case err != nil:
		f.state.Screen = ScreenError
		f.state.Err = err
		f.state.ErrText = UserMessage(err)
	case len(results) == 0:
		err = ErrNoMatches
		f.state.Screen = ScreenError
		f.state.Err = err
		f.state.ErrText = profile.NoMatchesText
	default:
		results = withIDs(results)
		f.state.Screen = ScreenResults
		f.state.Results = results
		f.state.Demo = demo
		f.state.Stats = ComputeStats(results, finished.Sub(started))
		if demo {
			f.state.Notice = "Analysis server unavailable, showing demo results"
		}
	}
	st := f.snapshotLocked()
	f.mu.Unlock()

	switch {
	case err == nil:
		f.cfg.Logger.Infof("analysis finished with %d results", len(results))
	case errors.Is(err, ErrNoMatches):
		f.cfg.Logger.Infof("analysis finished without matches")
	default:
		f.cfg.Logger.Errorf("analysis failed: %v", err)
	}

	f.notify(st)
	f.record(st, started, finished)
	return err
}

// withIDs gives results that arrived without an id a positional one ("#2"),
// so every row stays addressable for playback.
func withIDs(results []AnalysisResult) []AnalysisResult {
	out := cloneResults(results)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = "#" + strconv.Itoa(i+1)
		}
	}
	return out
}

func (f *Flow) record(st State, started, finished time.Time) {
	if f.cfg.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := f.cfg.History.Record(ctx, historyEntry(st, started, finished)); err != nil {
		f.cfg.Logger.Warnf("recording history: %v", err)
	}
}

// TogglePlayback plays the result with the given id, or pauses it when it
// is already playing. Only one result plays at a time. ctx bounds the
// playback process.
func (f *Flow) TogglePlayback(ctx context.Context, id string) error {
	f.mu.Lock()
	profile := f.cfg.Profile
	player := f.cfg.Player

	if !profile.Playback {
		f.mu.Unlock()
		return ErrPlaybackUnsupported
	}
	if player == nil {
		f.mu.Unlock()
		return ErrNoPlayer
	}
	if f.state.Screen != ScreenResults {
		f.mu.Unlock()
		return ErrNoResults
	}

	var target *AnalysisResult
	for i := range f.state.Results {
		if f.state.Results[i].ID == id {
			target = &f.state.Results[i]
			break
		}
	}
	if target == nil {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownResult, id)
	}

	if f.state.PlayingID == id {
		err := player.Pause()
		f.state.PlayingID = ""
		f.playGen++
		st := f.snapshotLocked()
		f.mu.Unlock()
		f.notify(st)
		return err
	}

	f.stopPlaybackLocked()
	f.playGen++
	pg := f.playGen
	url := profile.ResolveMedia(target.MediaRef)

	var playErr error
	if err := player.Play(ctx, url, func() { f.playbackEnded(pg) }); err != nil {
		playErr = fmt.Errorf("playing %q: %w", target.Title, err)
	} else {
		f.state.PlayingID = id
	}
	st := f.snapshotLocked()
	f.mu.Unlock()

	if playErr != nil {
		f.cfg.Logger.Warnf("%v", playErr)
	}
	f.notify(st)
	return playErr
}

func (f *Flow) playbackEnded(pg uint64) {
	f.mu.Lock()
	if pg != f.playGen || f.state.PlayingID == "" {
		f.mu.Unlock()
		return
	}
	f.state.PlayingID = ""
	st := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(st)
}

func (f *Flow) stopPlaybackLocked() {
	if f.state.PlayingID == "" {
		return
	}
	if err := f.cfg.Player.Pause(); err != nil {
		f.cfg.Logger.Warnf("stopping playback: %v", err)
	}
	f.state.PlayingID = ""
	f.playGen++
}

// Reset abandons any running analysis, stops playback and returns to an
// empty Upload screen.
func (f *Flow) Reset() {
	f.mu.Lock()
	f.abortLocked()
	f.state = State{Kind: f.cfg.Profile.Kind, Screen: ScreenUpload}
	st := f.snapshotLocked()
	f.mu.Unlock()

	f.notify(st)
}

// Close stops any analysis and playback without touching the screen.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abortLocked()
}

func (f *Flow) abortLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.gen++
	f.stopPlaybackLocked()
}

// SaveResults writes the current results as JSON into dir and returns the
// file path.
func (f *Flow) SaveResults(dir string) (string, error) {
	st := f.Snapshot()
	if st.Screen != ScreenResults || len(st.Results) == 0 {
		return "", ErrNoResults
	}

	path, err := saveExport(dir, NewExport(st, f.cfg.Now()))
	if err != nil {
		return "", err
	}
	f.cfg.Logger.Infof("results saved to %s", path)
	return path, nil
}

// CheckSystem runs the health probes against the profile's backend.
func (f *Flow) CheckSystem(ctx context.Context) (SystemStatus, error) {
	hc, ok := f.cfg.Analyzer.(HealthChecker)
	if !ok {
		return SystemStatus{}, ErrNoHealthChecker
	}
	return ProbeSystem(ctx, hc, f.cfg.Profile.BaseURL), nil
}

func (f *Flow) notify(st State) {
	if f.cfg.Observer != nil {
		f.cfg.Observer(st)
	}
}

func (f *Flow) snapshotLocked() State {
	st := f.state
	st.Generation = f.gen
	if st.File != nil {
		file := *st.File
		if file.Media != nil {
			media := *file.Media
			file.Media = &media
		}
		st.File = &file
	}
	st.Results = cloneResults(st.Results)
	if st.Stats.Best != nil {
		best := *st.Stats.Best
		st.Stats.Best = &best
	}
	return st
}
