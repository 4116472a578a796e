package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTUIRenderer_ReturnsErrorForNonTTY(t *testing.T) {
	// Given: a non-TTY buffer
	cfg := NewConfig(&bytes.Buffer{})

	// When: creating TUI renderer
	r, err := NewTUIRenderer(cfg)

	// Then: returns error
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestNewRenderer_FallsBackToPlain(t *testing.T) {
	r := NewRenderer(NewConfig(&bytes.Buffer{}))

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestIndexingModel_StageIndicators(t *testing.T) {
	// Given: a fresh model
	model := newIndexingModel("/data")

	// When: rendering
	view := model.View()

	// Then: every stage and the root are shown
	for _, name := range []string{"Connecting", "Schema", "Indexing", "Refreshing"} {
		assert.Contains(t, view, name)
	}
	assert.Contains(t, view, "/data")
}

func TestIndexingModel_ProgressUpdate(t *testing.T) {
	// Given: a model receiving a batch update
	model := newIndexingModel("")
	model.styles = NoColorStyles()

	_, _ = model.Update(progressUpdateMsg(ProgressEvent{Stage: StageIndexing, Indexed: 1000, Failed: 3, Batches: 2}))

	// Then: counters appear in the view
	view := model.View()
	assert.Contains(t, view, "Indexed: 1000")
	assert.Contains(t, view, "Failed: 3")
	assert.Contains(t, view, "Batches: 2")
}

func TestIndexingModel_ErrorCounts(t *testing.T) {
	model := newIndexingModel("")
	model.styles = NoColorStyles()

	_, _ = model.Update(errorMsg(ErrorEvent{File: "a.txt", Err: errors.New("bad"), IsWarn: true}))
	_, _ = model.Update(errorMsg(ErrorEvent{File: "b.txt", Err: errors.New("worse")}))

	view := model.View()
	assert.Contains(t, view, "1 warnings")
	assert.Contains(t, view, "1 errors")
	assert.Contains(t, view, "b.txt: worse")
}

func TestIndexingModel_CompleteQuits(t *testing.T) {
	// Given: a running model
	model := newIndexingModel("")

	// When: the run completes
	_, cmd := model.Update(completeMsg(CompletionStats{Index: "idx", Indexed: 7, Duration: 2 * time.Second}))

	// Then: the program quits and shows the summary
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	view := model.View()
	assert.Contains(t, view, "Indexing Complete")
	assert.Contains(t, view, "7")
}

func TestIndexingModel_QuitKey(t *testing.T) {
	model := newIndexingModel("")

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.True(t, model.quitting)
	assert.Equal(t, "Cancelled.\n", model.View())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5s"},
		{2 * time.Minute, "2m"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "...ghij", truncate("abcdefghij", 7))
}
