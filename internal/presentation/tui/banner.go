package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"                      _      ", "#818cf8"},
	{"  _ __ ___  ___ __ _| | ___ ", "#a78bfa"},
	{" | '__/ _ \\/ __/ _` | |/ __|", "#c084fc"},
	{" | | |  __/ (_| (_| | | (__ ", "#e879f9"},
	{" |_|  \\___|\\___\\__,_|_|\\___|", "#f472b6"},
}

// PrintBanner writes the recalc banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  "+version).Faint())
	}
	fmt.Fprintln(w)
}
