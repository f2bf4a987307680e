package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the spectate ASCII art banner to w.
func PrintBanner(w io.Writer) {
	o := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"                      _        _       ", "#818cf8"},
		{"  ___ _ __   ___  ___| |_ __ _| |_ ___ ", "#a78bfa"},
		{" / __| '_ \\ / _ \\/ __| __/ _` | __/ _ \\", "#c084fc"},
		{" \\__ \\ |_) |  __/ (__| || (_| | ||  __/", "#e879f9"},
		{" |___/ .__/ \\___|\\___|\\__\\__,_|\\__\\___|", "#f472b6"},
		{"     |_|                               ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, o.String(l.text).Foreground(o.Color(l.color)))
	}
	fmt.Fprintln(w)
}
