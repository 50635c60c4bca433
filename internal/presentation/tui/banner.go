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
	{` _           _   _           _ _     _`, "#38bdf8"},
	{`| |__   ___ | |_| |__  _   _(_) | __| | ___ _ __`, "#22d3ee"},
	{`| '_ \ / _ \| __| '_ \| | | | | |/ _` + "`" + ` |/ _ \ '__|`, "#2dd4bf"},
	{`| |_) | (_) | |_| |_) | |_| | | | (_| |  __/ |`, "#34d399"},
	{`|_.__/ \___/ \__|_.__/ \__,_|_|_|\__,_|\___|_|`, "#4ade80"},
}

// PrintBanner writes the botbuilder banner and version to w, colored for
// the terminal's profile.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}

// Dim renders s faint, for hints such as "(no rule handled that)".
func Dim(w io.Writer, s string) string {
	return termenv.NewOutput(w).String(s).Faint().String()
}
