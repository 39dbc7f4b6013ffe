package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxd/config"
	"voxd/listen"
)

// TUI message types
type partialMsg struct{ Text string }
type lineMsg struct{ Text string }
type doneMsg struct{ Err error }
type tickMsg time.Time

var (
	pulseColors = []string{"196", "160", "124", "88", "124", "160"}
	pulseStyles = make([]lipgloss.Style, len(pulseColors))

	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	lineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

func init() {
	for i, c := range pulseColors {
		pulseStyles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c)).Bold(true)
	}
}

type tuiModel struct {
	modeLine      string
	frame         int
	partial       string
	lines         []string
	err           error
	width, height int
}

func newTUIModel(cfg config.Config) tuiModel {
	return tuiModel{modeLine: fmt.Sprintf("[%s | %s]", cfg.Model, cfg.Language)}
}

func tuiTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case partialMsg:
		m.partial = strings.TrimSpace(msg.Text)

	case lineMsg:
		m.partial = ""
		m.lines = append(m.lines, msg.Text)

	case doneMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m tuiModel) View() string {
	var b strings.Builder
	dot := pulseStyles[m.frame%len(pulseStyles)].Render("●")
	b.WriteString(dot + " " + pulseStyles[0].Render("LISTENING") + "  " + headerStyle.Render(m.modeLine) + "\n\n")

	width := m.width - 2
	if width < 20 {
		width = 78
	}
	var body []string
	for _, l := range m.lines {
		for _, w := range wrapText(l, width) {
			body = append(body, lineStyle.Render(w))
		}
	}
	if m.partial != "" {
		for _, w := range wrapText(m.partial, width) {
			body = append(body, partialStyle.Render(w))
		}
	}
	if len(body) == 0 {
		body = append(body, helpStyle.Render("Speak; each pause commits a line."))
	}
	// Keep the newest lines when the terminal is short.
	if room := m.height - 4; m.height > 0 && room > 0 && len(body) > room {
		body = body[len(body)-room:]
	}
	b.WriteString(strings.Join(body, "\n"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	b.WriteString(boldStyle.Render("Ctrl+C") + helpStyle.Render(" to stop"))
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// runTUI shows a live view of continuous dictation until ctx ends, the
// user quits or the source fails. It returns the committed lines.
func runTUI(ctx context.Context, src listen.Source, cfg config.Config, record func(string)) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	loopDone := make(chan error, 1)
	go func() {
		err := dictate(ctx, src, true,
			func(text string) { p.Send(partialMsg{Text: text}) },
			func(text string) error {
				record(text)
				p.Send(lineMsg{Text: text})
				return nil
			})
		p.Send(doneMsg{Err: err})
		loopDone <- err
	}()

	final, runErr := p.Run()
	interrupted := ctx.Err() != nil
	cancel()
	loopErr := <-loopDone

	var lines []string
	if m, ok := final.(tuiModel); ok {
		lines = m.lines
	}
	if loopErr != nil {
		return lines, loopErr
	}
	if runErr != nil && !interrupted {
		return lines, runErr
	}
	return lines, nil
}
