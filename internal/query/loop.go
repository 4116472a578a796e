package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	fserrors "github.com/Leonardo4312/filesearch/internal/errors"
	"github.com/Leonardo4312/filesearch/internal/output"
	"github.com/Leonardo4312/filesearch/internal/store"
	"github.com/Leonardo4312/filesearch/internal/ui"
)

// Prompt is printed before each query line.
const Prompt = "Query> "

// Farewell is printed when the operator interrupts the loop.
const Farewell = "Goodbye!"

// State is the query loop state.
type State int

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EventKind classifies loop input.
type EventKind int

const (
	EventLine EventKind = iota
	EventInterrupt
	EventEOF
)

// Event is one input observed by the loop.
type Event struct {
	Kind EventKind
	Line string
}

// Action is the side effect requested by a transition.
type Action int

const (
	ActionNone Action = iota
	ActionDispatch
	ActionFarewell
)

var exitWords = map[string]bool{"esci": true, "exit": true, "quit": true}

// IsExitWord reports whether line asks the loop to stop.
func IsExitWord(line string) bool {
	return exitWords[strings.ToLower(strings.TrimSpace(line))]
}

// Transition computes the next state and the action for ev.
// Terminated is absorbing.
func Transition(state State, ev Event) (State, Action) {
	if state == StateTerminated {
		return StateTerminated, ActionNone
	}

	switch ev.Kind {
	case EventInterrupt:
		return StateTerminated, ActionFarewell
	case EventEOF:
		return StateTerminated, ActionNone
	}

	switch {
	case strings.TrimSpace(ev.Line) == "":
		return StateRunning, ActionNone
	case IsExitWord(ev.Line):
		return StateTerminated, ActionNone
	default:
		return StateRunning, ActionDispatch
	}
}

// QuerySearcher executes parsed queries. *Searcher implements it.
//
// A Search error with fatal severity (see fserrors.IsFatal) ends the loop
// and is returned by Run; any other error is printed and the loop goes on.
// *Searcher reports every failure as a recoverable search failure.
type QuerySearcher interface {
	Search(ctx context.Context, q Query) (store.SearchResponse, error)
	Index() string
}

// Loop is the interactive query loop.
type Loop struct {
	reader    LineReader
	searcher  QuerySearcher
	out       io.Writer
	styles    ui.Styles
	formatter *output.Formatter
	logger    *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithStyles sets the styles used for the banner, prompt and results.
func WithStyles(s ui.Styles) LoopOption {
	return func(l *Loop) {
		l.styles = s
		l.formatter = output.NewFormatter(s)
	}
}

// WithLoopLogger sets the logger.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a loop reading from reader and printing to out.
func NewLoop(reader LineReader, searcher QuerySearcher, out io.Writer, opts ...LoopOption) *Loop {
	styles := ui.NoColorStyles()
	l := &Loop{
		reader:    reader,
		searcher:  searcher,
		out:       out,
		styles:    styles,
		formatter: output.NewFormatter(styles),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run prints the banner and processes lines until an exit word, an
// interrupt or the end of input. Only reader failures and fatal search
// errors are returned.
func (l *Loop) Run(ctx context.Context) error {
	l.printBanner()

	state := StateRunning
	for state == StateRunning {
		l.println()
		line, err := l.reader.ReadLine(ctx, l.styles.Prompt.Render(Prompt))

		ev := Event{Kind: EventLine, Line: line}
		switch {
		case errors.Is(err, ErrInterrupted):
			ev = Event{Kind: EventInterrupt}
		case errors.Is(err, io.EOF):
			ev = Event{Kind: EventEOF}
			l.println()
		case err != nil:
			return fmt.Errorf("failed to read query: %w", err)
		}

		var action Action
		state, action = Transition(state, ev)
		switch action {
		case ActionDispatch:
			if err := l.dispatch(ctx, ev.Line); err != nil {
				return err
			}
		case ActionFarewell:
			l.println()
			l.println(l.styles.Header.Render(Farewell))
		}
	}

	l.logger.Debug("query_loop_terminated")
	return nil
}

// dispatch parses and runs one line. Recoverable errors are printed.
func (l *Loop) dispatch(ctx context.Context, line string) error {
	q, err := Parse(line)
	if err != nil {
		l.printError(err)
		return nil
	}

	l.println(l.styles.Dim.Render(output.DescribeQuery(q.StoreQuery(0))))

	resp, err := l.searcher.Search(ctx, q)
	if err != nil {
		if fserrors.IsFatal(err) {
			return err
		}
		l.printError(err)
		return nil
	}

	_, _ = fmt.Fprint(l.out, l.formatter.Format(resp))
	return nil
}

func (l *Loop) printBanner() {
	l.println(l.styles.Header.Render(fmt.Sprintf("Ready to search index '%s'.", l.searcher.Index())))
	l.println("Type 'esci' or 'exit' to quit.")
	l.println(l.styles.Prompt.Render(`Syntax: nome <terms>  |  contenuto <terms>  |  contenuto "exact phrase"`))
	l.println(strings.Repeat("-", 40))
}

func (l *Loop) printError(err error) {
	l.println(l.styles.Error.Render("Error: " + fserrors.FormatInline(err)))

	var e *fserrors.Error
	if errors.As(err, &e) && e.Suggestion != "" {
		l.println(l.styles.Dim.Render("Hint: " + e.Suggestion))
	}
}

func (l *Loop) println(a ...any) {
	_, _ = fmt.Fprintln(l.out, a...)
}
