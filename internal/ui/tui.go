package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer provides rich terminal UI using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if the output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newIndexingModel(cfg.Root)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	opts = append(opts, tea.WithContext(ctx))

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		m, _ := r.program.Run()
		if im, ok := m.(*indexingModel); ok && im.quitting && r.cfg.Interrupt != nil {
			r.cfg.Interrupt()
		}
	}()

	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program == nil {
		return nil
	}

	program.Quit()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		// Unresponsive program; do not hang the process on exit.
	}
	return nil
}

// Message types for bubbletea
type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats

// indexingModel is the bubbletea model for indexing progress.
type indexingModel struct {
	width    int
	quitting bool
	complete bool
	stage    Stage
	progress ProgressEvent
	warnings int
	errors   int
	lastWarn string
	started  time.Time
	stats    CompletionStats
	spinner  spinner.Model
	styles   Styles
	root     string
}

func newIndexingModel(root string) *indexingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &indexingModel{
		width:   80,
		started: time.Now(),
		spinner: s,
		styles:  DefaultStyles(),
		root:    root,
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case progressUpdateMsg:
		m.stage = msg.Stage
		if msg.Batches > 0 {
			m.progress = ProgressEvent(msg)
		}

	case errorMsg:
		if msg.IsWarn {
			m.warnings++
		} else {
			m.errors++
		}
		m.lastWarn = fmt.Sprintf("%s: %v", msg.File, msg.Err)

	case completeMsg:
		m.complete = true
		m.stage = StageComplete
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	contentWidth := max(m.width-4, 40)

	sections := []string{
		m.renderStages(),
		m.styles.Border.Render(strings.Repeat("─", contentWidth)),
		m.renderCounters(),
	}
	if m.lastWarn != "" {
		sections = append(sections, m.styles.Dim.Render(truncate(m.lastWarn, contentWidth-2)))
	}

	title := "filesearch indexer"
	if m.root != "" {
		title = fmt.Sprintf("filesearch indexer • %s", m.root)
	}
	panel := m.styles.Panel.Width(contentWidth).Render(strings.Join(sections, "\n"))

	return m.styles.Header.Render(title) + "\n" + panel + "\n" + m.renderStatusBar()
}

// renderStages renders the pipeline stage indicators.
func (m *indexingModel) renderStages() string {
	stages := []Stage{StageConnecting, StageSchema, StageIndexing, StageRefreshing}

	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		var icon string
		var style lipgloss.Style

		switch {
		case s < m.stage:
			icon = "●"
			style = m.styles.Success
		case s == m.stage:
			icon = m.spinner.View()
			style = m.styles.Active
		default:
			icon = "○"
			style = m.styles.Dim
		}
		parts = append(parts, style.Render(icon+" "+s.String()))
	}

	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

// renderCounters renders document counts and throughput.
func (m *indexingModel) renderCounters() string {
	p := m.progress
	counts := fmt.Sprintf("%s %s   %s %s   %s %s",
		m.styles.Label.Render("Indexed:"), m.styles.Active.Render(fmt.Sprint(p.Indexed)),
		m.styles.Label.Render("Failed:"), m.styles.Active.Render(fmt.Sprint(p.Failed)),
		m.styles.Label.Render("Batches:"), m.styles.Active.Render(fmt.Sprint(p.Batches)))

	elapsed := time.Since(m.started)
	speed := 0.0
	if elapsed > 0 {
		speed = float64(p.Indexed) / elapsed.Seconds()
	}
	return counts + "\n" + m.styles.Speed.Render(fmt.Sprintf("Speed: %.0f docs/s", speed))
}

// renderStatusBar renders the bottom status bar with warnings/errors.
func (m *indexingModel) renderStatusBar() string {
	var parts []string
	if m.warnings > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.warnings)))
	}
	if m.errors > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.errors)))
	}
	parts = append(parts, m.styles.Dim.Render("q to quit"))
	return strings.Join(parts, m.styles.Dim.Render("  │  "))
}

// renderComplete renders the completion summary.
func (m *indexingModel) renderComplete() string {
	lines := []string{
		m.styles.Success.Render("✓ Indexing Complete"),
		"",
		fmt.Sprintf("%s    %s", m.styles.Label.Render("Index:"), m.styles.Active.Render(m.stats.Index)),
		fmt.Sprintf("%s  %s", m.styles.Label.Render("Indexed:"), m.styles.Active.Render(fmt.Sprint(m.stats.Indexed))),
		fmt.Sprintf("%s   %s", m.styles.Label.Render("Failed:"), m.styles.Active.Render(fmt.Sprint(m.stats.Failed))),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"), m.styles.Active.Render(formatDuration(m.stats.Duration))),
	}
	if m.stats.ReadFailures > 0 {
		lines = append(lines, "", m.styles.Warning.Render(fmt.Sprintf("⚠ %d unreadable files", m.stats.ReadFailures)))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorLime)).
		Padding(1, 2)

	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// truncate shortens s to at most n runes, keeping the tail.
func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return "..." + string(r[len(r)-n+3:])
}

// Ensure TUIRenderer implements Renderer
var _ Renderer = (*TUIRenderer)(nil)
