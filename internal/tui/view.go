package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/himanishpuri/SimilarityDeck/pkg/simdeck"
	"github.com/himanishpuri/SimilarityDeck/pkg/utils"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.title()))
	b.WriteString("\n\n")

	switch m.state.Screen {
	case simdeck.ScreenUpload:
		b.WriteString(m.viewUpload())
	case simdeck.ScreenLoading:
		b.WriteString(m.viewLoading())
	case simdeck.ScreenResults:
		b.WriteString(m.viewResults())
	case simdeck.ScreenError:
		b.WriteString(m.viewError())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(NoticeStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusBar())
	return b.String()
}

func (m Model) title() string {
	if m.ctrl.Profile().Kind == simdeck.KindImage {
		return "Image Similarity"
	}
	return "Audio Similarity"
}

func (m Model) viewUpload() string {
	var b strings.Builder
	p := m.ctrl.Profile()

	b.WriteString(SubtleStyle.Render(fmt.Sprintf("Choose a file to analyze (max %s)", p.MaxSizeText())))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if f := m.state.File; f != nil {
		b.WriteString(fmt.Sprintf("Selected: %s\n", f.Name))
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("%s · %s", utils.FormatSize(f.Size), f.MIMEType)))
		b.WriteString("\n")
		if mi := f.Media; mi != nil {
			b.WriteString(SubtleStyle.Render(mediaLine(mi)))
			b.WriteString("\n")
		}
	}

	if m.state.Notice != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(m.state.Notice))
		b.WriteString("\n")
	}

	if m.system != nil {
		b.WriteString("\n")
		b.WriteString(systemLine(*m.system))
		b.WriteString("\n")
	}
	return b.String()
}

func mediaLine(mi *simdeck.MediaInfo) string {
	var parts []string
	if mi.Title != "" {
		t := mi.Title
		if mi.Artist != "" {
			t += " by " + mi.Artist
		}
		parts = append(parts, t)
	}
	if mi.Duration > 0 {
		parts = append(parts, mi.Duration.Round(100*time.Millisecond).String())
	}
	if mi.SampleRate > 0 {
		parts = append(parts, fmt.Sprintf("%d Hz", mi.SampleRate))
	}
	if mi.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%d ch", mi.Channels))
	}
	return strings.Join(parts, " · ")
}

func systemLine(st simdeck.SystemStatus) string {
	line := fmt.Sprintf("Server: %s  Engine: %s  Database: %s", st.Server, st.Engine, st.Database)
	if st.DemoMode {
		return NoticeStyle.Render(line + "  (demo mode)")
	}
	return SubtleStyle.Render(line)
}

func (m Model) viewLoading() string {
	var b strings.Builder
	if f := m.state.File; f != nil {
		b.WriteString(fmt.Sprintf("%s Analyzing %s\n\n", m.spinner.View(), f.Name))
	}
	b.WriteString(m.bar.ViewAs(float64(m.state.Progress.Percent) / 100))
	b.WriteString("\n")
	if m.state.Progress.Label != "" {
		b.WriteString(SubtleStyle.Render(m.state.Progress.Label))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewResults() string {
	var b strings.Builder
	st := m.state
	p := m.ctrl.Profile()

	if st.Notice != "" {
		b.WriteString(NoticeStyle.Render(st.Notice))
		b.WriteString("\n\n")
	}

	if best := st.Stats.Best; best != nil {
		card := fmt.Sprintf("Best match\n%s\n%s", best.Title, similarityText(best.Similarity))
		if best.Subtitle != "" {
			card = fmt.Sprintf("Best match\n%s\n%s\n%s", best.Title, best.Subtitle, similarityText(best.Similarity))
		}
		b.WriteString(BestMatchCard.Render(card))
		b.WriteString("\n")
	}

	b.WriteString(SubtleStyle.Render(fmt.Sprintf("%d matches · avg %s%% · %s",
		st.Stats.Total, st.Stats.AvgText(), st.Stats.ProcessingTime.Round(time.Millisecond))))
	b.WriteString("\n\n")

	for i, r := range st.Results {
		marker := "  "
		if p.Playback {
			marker = "▶ "
			if r.ID == st.PlayingID {
				marker = "❚❚"
			}
		}
		line := fmt.Sprintf("%s %2d. %-40s %s", marker, i+1, truncate(r.Title, 40), similarityText(r.Similarity))
		if r.Subtitle != "" {
			line += SubtleStyle.Render("  " + r.Subtitle)
		}
		if i == m.cursor {
			b.WriteString(SelectedRow.Render(line))
		} else {
			b.WriteString(NormalRow.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func similarityText(v float64) string {
	c := simdeck.ConfidenceOf(v)
	return confidenceStyles[string(c)].Render(fmt.Sprintf("%5.1f%% %s", v, c))
}

func (m Model) viewError() string {
	var b strings.Builder
	b.WriteString(ErrorStyle.Render(m.state.Message()))
	b.WriteString("\n")
	if f := m.state.File; f != nil {
		b.WriteString(SubtleStyle.Render("File: " + f.Name))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) statusBar() string {
	var keys [][2]string
	switch m.state.Screen {
	case simdeck.ScreenUpload:
		keys = [][2]string{{"enter", "select"}, {"ctrl+s", "analyze"}, {"ctrl+c", "quit"}}
	case simdeck.ScreenLoading:
		keys = [][2]string{{"esc", "cancel"}, {"q", "quit"}}
	case simdeck.ScreenResults:
		keys = [][2]string{{"j/k", "move"}, {"s", "save"}, {"r", "retry"}, {"b", "back"}, {"q", "quit"}}
		if m.ctrl.Profile().Playback {
			keys = append([][2]string{{"space", "play/pause"}}, keys...)
		}
	case simdeck.ScreenError:
		keys = [][2]string{{"r", "retry"}, {"b", "back"}, {"q", "quit"}}
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, StatusBarKey.Render(k[0])+" "+k[1])
	}
	bar := strings.Join(parts, "  ")
	if m.width > 0 {
		return StatusBar.Width(m.width).Render(bar)
	}
	return StatusBar.Render(bar)
}

func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
