package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("🔍", "Checking engine...")

	// Then: output contains icon and message
	assert.Equal(t, "🔍 Checking engine...\n", buf.String())
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Status("", "detail")

	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		print func(w *Writer)
		want  string
	}{
		{name: "success", print: func(w *Writer) { w.Success("Config written") }, want: "✓ Config written\n"},
		{name: "warning", print: func(w *Writer) { w.Warning("Telemetry disabled") }, want: "! Telemetry disabled\n"},
		{name: "error", print: func(w *Writer) { w.Error("Failed to connect") }, want: "✗ Failed to connect\n"},
		{name: "successf", print: func(w *Writer) { w.Successf("%d queries", 3) }, want: "✓ 3 queries\n"},
		{name: "warningf", print: func(w *Writer) { w.Warningf("%s missing", "x") }, want: "! x missing\n"},
		{name: "errorf", print: func(w *Writer) { w.Errorf("code %d", 1) }, want: "✗ code 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.print(New(buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Code_PrintsCodeBlock(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a block with a trailing newline
	w.Code("engine:\n  backend: bleve\n")

	// Then: each line is indented and the block is padded with blank lines
	assert.Equal(t, "\n  engine:\n    backend: bleve\n\n", buf.String())
}

func TestWriter_Statusf_FormatsMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Statusf("📂", "Found %d files in %s", 42, "/path/to/dir")

	assert.Contains(t, buf.String(), "📂")
	assert.Contains(t, buf.String(), "Found 42 files in /path/to/dir")
}

func TestWriter_Newline_PrintsEmptyLine(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Newline()

	assert.Equal(t, "\n", buf.String())
}
