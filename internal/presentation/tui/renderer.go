package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/spectate/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour,
// wrapped at width columns.
func NewRenderer(width int) (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// Report builds a markdown report listing records, one table per batch.
func Report(title string, records []domain.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if len(records) == 0 {
		b.WriteString("_No batches delivered._\n")
		return b.String()
	}

	for _, rec := range records {
		fmt.Fprintf(&b, "## Batch %d: %s\n\n", rec.Seq, rec.Model)
		keys := columns(rec.Batch)
		if len(keys) == 0 {
			b.WriteString("_Empty batch._\n\n")
			continue
		}
		b.WriteString("| # | " + strings.Join(keys, " | ") + " |\n")
		b.WriteString("|---|" + strings.Repeat("---|", len(keys)) + "\n")
		for i, e := range rec.Batch.All() {
			cells := make([]string, len(keys))
			for j, k := range keys {
				if v, ok := e.Get(k); ok {
					cells[j] = escape(fmt.Sprintf("%v", v))
				}
			}
			fmt.Fprintf(&b, "| %d | %s |\n", i+1, strings.Join(cells, " | "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// columns returns the keys used by the events of batch, in first-seen order.
func columns(batch domain.Batch) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, e := range batch.All() {
		for _, k := range e.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
