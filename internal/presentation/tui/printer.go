package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/spectate"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Printer is a view writing each batch to a terminal, coloured when the
// output supports it.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	out   *termenv.Output
	label func(spectate.Observable) string
	count int
}

// PrinterOption configures a Printer.
type PrinterOption func(*Printer)

// WithProfile forces a colour profile, e.g. termenv.Ascii in tests.
func WithProfile(p termenv.Profile) PrinterOption {
	return func(pr *Printer) {
		pr.out = termenv.NewOutput(pr.w, termenv.WithProfile(p))
	}
}

// WithLabel sets how the origin of a batch is named.
func WithLabel(fn func(spectate.Observable) string) PrinterOption {
	return func(pr *Printer) {
		pr.label = fn
	}
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer, opts ...PrinterOption) *Printer {
	p := &Printer{
		w:   w,
		out: termenv.NewOutput(w),
		label: func(o spectate.Observable) string {
			return strings.TrimPrefix(fmt.Sprintf("%T", o), "*")
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// View prints batch.
func (p *Printer) View(origin spectate.Observable, batch domain.Batch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	header := p.out.String(fmt.Sprintf("#%d %s", p.count, p.label(origin))).Bold().Foreground(p.out.Color("#a78bfa"))
	size := p.out.String(fmt.Sprintf("(%d %s)", batch.Len(), plural(batch.Len(), "event"))).Faint()
	if _, err := fmt.Fprintf(p.w, "%s %s\n", header, size); err != nil {
		return err
	}

	for _, e := range batch.All() {
		var b strings.Builder
		b.WriteString("  ")
		for i, f := range e.Fields() {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(p.out.String(f.Key).Foreground(p.out.Color("#818cf8")).String())
			b.WriteByte('=')
			fmt.Fprintf(&b, "%v", f.Value)
		}
		if _, err := fmt.Fprintln(p.w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of batches printed.
func (p *Printer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Width returns the width of the terminal behind w, or fallback when w is
// not a terminal.
func Width(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
