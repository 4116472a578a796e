package output

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Leonardo4312/filesearch/internal/store"
	"github.com/Leonardo4312/filesearch/internal/ui"
)

// PreviewLength is the number of characters of content shown per hit.
const PreviewLength = 150

// Placeholder replaces a missing file name or path.
const Placeholder = "N/A"

const separatorWidth = 30

// Formatter renders search responses as text reports.
type Formatter struct {
	styles ui.Styles
}

// NewFormatter creates a Formatter. Styles are applied to single-line
// fragments only.
func NewFormatter(styles ui.Styles) *Formatter {
	return &Formatter{styles: styles}
}

// FormatResults renders resp without colors.
func FormatResults(resp store.SearchResponse) string {
	return NewFormatter(ui.NoColorStyles()).Format(resp)
}

// Format renders resp. Hits keep the response order and are numbered from 1.
func (f *Formatter) Format(resp store.SearchResponse) string {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("-", separatorWidth))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Found %d results:\n", resp.Total)

	if resp.Total == 0 || len(resp.Hits) == 0 {
		sb.WriteString("No documents match the query.\n")
		return sb.String()
	}

	for i, hit := range resp.Hits {
		name, ok := hit.StringField(store.FieldFileName)
		if !ok {
			name = Placeholder
		}
		path, ok := hit.StringField(store.FieldFilePath)
		if !ok {
			path = Placeholder
		}

		score := f.styles.Score.Render(fmt.Sprintf("%.2f", hit.Score))
		fmt.Fprintf(&sb, "\n%d. File: %s (Score: %s)\n", i+1, f.styles.Header.Render(name), score)
		fmt.Fprintf(&sb, "   Path: %s\n", path)

		if content, ok := hit.Source[store.FieldContent].(string); ok {
			fmt.Fprintf(&sb, "   Preview: %s\n", Preview(content))
		}
	}
	return sb.String()
}

// Preview collapses newlines to spaces, trims the result and truncates it to
// PreviewLength characters followed by "...".
func Preview(content string) string {
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(content)
	flat = strings.TrimSpace(flat)

	if utf8.RuneCountInString(flat) <= PreviewLength {
		return flat
	}
	runes := []rune(flat)
	return string(runes[:PreviewLength]) + "..."
}

// DescribeQuery renders the line announcing a search, e.g.
// "MATCH search on 'content' for: 'mondo'".
func DescribeQuery(q store.Query) string {
	var label string
	switch q.Kind {
	case store.QueryMatch:
		label = "MATCH"
	case store.QueryPhrase:
		label = "PHRASE"
	case store.QueryTerm:
		label = "TERM"
	default:
		label = strings.ToUpper(string(q.Kind))
	}
	return fmt.Sprintf("%s search on '%s' for: '%s'", label, q.Field, q.Text)
}
