package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
)

// Controller is the part of *simdeck.Flow the UI drives.
// Methods that mutate the flow are only ever called from tea.Cmds: the flow
// observer sends into the program and must not run on the update loop.
type Controller interface {
	Profile() simdeck.Profile
	Snapshot() simdeck.State
	SelectFile(path string) error
	Analyze(ctx context.Context) error
	TogglePlayback(ctx context.Context, id string) error
	Reset()
	SaveResults(dir string) (string, error)
	CheckSystem(ctx context.Context) (simdeck.SystemStatus, error)
}

// Model is the root Bubble Tea model.
type Model struct {
	ctrl      Controller
	ctx       context.Context
	exportDir string

	state   simdeck.State
	input   textinput.Model
	bar     progress.Model
	spinner spinner.Model

	cursor  int
	status  string
	system  *simdeck.SystemStatus
	width   int
	height  int
	pending bool // an Analyze command is running
}

// NewModel creates the UI. initialPath, when set, is selected on start.
func NewModel(ctx context.Context, ctrl Controller, exportDir, initialPath string) Model {
	ti := textinput.New()
	ti.Placeholder = "path/to/file"
	ti.Prompt = "File: "
	ti.CharLimit = 4096
	ti.Width = 60
	ti.SetValue(initialPath)
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		ctrl:      ctrl,
		ctx:       ctx,
		exportDir: exportDir,
		state:     ctrl.Snapshot(),
		input:     ti,
		bar:       progress.New(progress.WithDefaultGradient()),
		spinner:   s,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.checkSystem()}
	if path := strings.TrimSpace(m.input.Value()); path != "" {
		cmds = append(cmds, m.selectFile(path))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(msg.Width-8, 60))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case StateChanged:
		// Observer sends race each other; a snapshot from a superseded run must not win.
		if msg.State.Generation < m.state.Generation {
			return m, nil
		}
		return m.applyState(msg.State)

	case FileSelected:
		m.status = ""
		if errors.Is(msg.Err, simdeck.ErrBusy) {
			m.status = "An analysis is already running"
		}
		return m.applyState(m.ctrl.Snapshot())

	case AnalysisDone:
		m.pending = false
		// Flow errors land on the error screen; only precondition failures need the status line.
		if errors.Is(msg.Err, simdeck.ErrNoFileSelected) || errors.Is(msg.Err, simdeck.ErrNoAnalyzer) {
			m.status = simdeck.UserMessage(msg.Err)
		}
		return m.applyState(m.ctrl.Snapshot())

	case PlaybackToggled:
		if msg.Err != nil {
			m.status = simdeck.UserMessage(msg.Err)
		}
		return m.applyState(m.ctrl.Snapshot())

	case ResultsSaved:
		if msg.Err != nil {
			m.status = "Save failed: " + simdeck.UserMessage(msg.Err)
		} else {
			m.status = "Saved " + msg.Path
		}
		return m, nil

	case SystemChecked:
		if msg.Err == nil {
			st := msg.Status
			m.system = &st
		}
		return m, nil

	case spinner.TickMsg:
		if m.state.Screen != simdeck.ScreenLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state.Screen == simdeck.ScreenUpload {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) applyState(st simdeck.State) (tea.Model, tea.Cmd) {
	prev := m.state.Screen
	m.state = st

	if m.cursor >= len(st.Results) {
		m.cursor = max(0, len(st.Results)-1)
	}

	var cmd tea.Cmd
	switch {
	case st.Screen == simdeck.ScreenLoading && prev != simdeck.ScreenLoading:
		cmd = m.spinner.Tick
	case st.Screen == simdeck.ScreenResults && prev != simdeck.ScreenResults:
		m.cursor = 0
	case st.Screen == simdeck.ScreenUpload && prev != simdeck.ScreenUpload:
		if st.File == nil {
			m.input.SetValue("")
		}
		cmd = m.input.Focus()
	}
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state.Screen {
	case simdeck.ScreenUpload:
		return m.handleUploadKey(msg)
	case simdeck.ScreenLoading:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "esc", "b":
			return m, m.reset()
		}
	case simdeck.ScreenResults:
		return m.handleResultsKey(msg)
	case simdeck.ScreenError:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "r":
			return m.analyze()
		case "esc", "b":
			return m, m.reset()
		}
	}
	return m, nil
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.input.Value() == "" {
			return m, tea.Quit
		}
		m.input.SetValue("")
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			return m, nil
		}
		return m, m.selectFile(path)
	case "ctrl+s":
		if !m.state.CanAnalyze() {
			m.status = simdeck.UserMessage(simdeck.ErrNoFileSelected)
			return m, nil
		}
		return m.analyze()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.state.Results)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(0, len(m.state.Results)-1)
	case " ", "space", "enter":
		if m.cursor < len(m.state.Results) {
			return m, m.togglePlayback(m.state.Results[m.cursor].ID)
		}
	case "s":
		return m, m.saveResults()
	case "r":
		return m.analyze()
	case "esc", "b":
		return m, m.reset()
	}
	return m, nil
}

func (m Model) analyze() (tea.Model, tea.Cmd) {
	m.pending = true
	m.status = ""
	ctrl, ctx := m.ctrl, m.ctx
	return m, func() tea.Msg {
		return AnalysisDone{Err: ctrl.Analyze(ctx)}
	}
}

func (m Model) selectFile(path string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return FileSelected{Path: path, Err: ctrl.SelectFile(path)}
	}
}

func (m Model) reset() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Reset()
		return StateChanged{State: ctrl.Snapshot()}
	}
}

func (m Model) togglePlayback(id string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return PlaybackToggled{ID: id, Err: ctrl.TogglePlayback(ctx, id)}
	}
}

func (m Model) saveResults() tea.Cmd {
	ctrl, dir := m.ctrl, m.exportDir
	return func() tea.Msg {
		path, err := ctrl.SaveResults(dir)
		return ResultsSaved{Path: path, Err: err}
	}
}

func (m Model) checkSystem() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		st, err := ctrl.CheckSystem(ctx)
		return SystemChecked{Status: st, Err: err}
	}
}

// State returns the last rendered flow state (for testing).
func (m Model) State() simdeck.State {
	return m.state
}

// Cursor returns the highlighted result (for testing).
func (m Model) Cursor() int {
	return m.cursor
}
