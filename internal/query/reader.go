package query

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"

	"github.com/Leonardo4312/filesearch/internal/ui"
)

// ErrInterrupted is returned by a LineReader when the operator interrupts input.
var ErrInterrupted = errors.New("input interrupted")

// LineReader reads operator input one line at a time.
// ReadLine returns io.EOF at end of input and ErrInterrupted on interrupt.
type LineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
	Close() error
}

// NewLineReader returns a TerminalReader when in is a terminal, a PlainReader otherwise.
func NewLineReader(in io.Reader, out io.Writer, historyPath string) LineReader {
	if ui.IsTTY(in) && ui.IsTTY(out) && liner.TerminalSupported() {
		return NewTerminalReader(historyPath)
	}
	return NewPlainReader(in, out)
}

// TerminalReader edits lines with liner and keeps a persistent history.
type TerminalReader struct {
	line        *liner.State
	historyPath string
}

// NewTerminalReader takes over the terminal until Close is called.
func NewTerminalReader(historyPath string) *TerminalReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(complete)

	r := &TerminalReader{line: line, historyPath: historyPath}
	r.loadHistory()
	return r
}

func (r *TerminalReader) loadHistory() {
	if r.historyPath == "" {
		return
	}
	if f, err := os.Open(r.historyPath); err == nil {
		_, _ = r.line.ReadHistory(f)
		_ = f.Close()
	}
}

// ReadLine implements LineReader. The context is not observed while the
// terminal is in raw mode; Ctrl+C is reported as ErrInterrupted.
func (r *TerminalReader) ReadLine(_ context.Context, prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	switch {
	case errors.Is(err, liner.ErrPromptAborted):
		return "", ErrInterrupted
	case err != nil:
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history and restores the terminal.
func (r *TerminalReader) Close() error {
	err := r.saveHistory()
	if cerr := r.line.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (r *TerminalReader) saveHistory() error {
	if r.historyPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.historyPath), 0o700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	f, err := os.OpenFile(r.historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := r.line.WriteHistory(f); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

// complete offers the query keywords and exit words.
func complete(line string) []string {
	var out []string
	lower := strings.ToLower(line)
	for _, c := range []string{KeywordName + " ", KeywordContent + " ", "esci"} {
		if strings.HasPrefix(c, lower) {
			out = append(out, c)
		}
	}
	return out
}

// PlainReader reads lines from a non-terminal input such as a pipe.
// Reads happen on a helper goroutine so a cancelled context interrupts a
// pending ReadLine.
type PlainReader struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan readResult
}

type readResult struct {
	line string
	err  error
}

// NewPlainReader creates a PlainReader echoing prompts to out.
func NewPlainReader(in io.Reader, out io.Writer) *PlainReader {
	return &PlainReader{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan readResult),
	}
}

// ReadLine implements LineReader.
func (r *PlainReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrInterrupted
	}
	r.once.Do(func() { go r.readLoop() })

	_, _ = fmt.Fprint(r.out, prompt)

	select {
	case <-ctx.Done():
		return "", ErrInterrupted
	case res, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return res.line, res.err
	}
}

// readLoop feeds lines until the input ends. The channel is closed after
// the final error so later reads see io.EOF.
func (r *PlainReader) readLoop() {
	defer close(r.lines)
	for {
		line, err := r.in.ReadString('\n')
		if line != "" {
			r.lines <- readResult{line: strings.TrimRight(line, "\r\n")}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.lines <- readResult{err: err}
			}
			return
		}
	}
}

// Close implements LineReader. A read already pending on the input is left
// to finish on its own.
func (r *PlainReader) Close() error {
	return nil
}
