package report

import (
	"fmt"
	"io"
)

var banner = [...]struct{ text, color string }{
	{" _     _                       _ ", "#34d399"},
	{"| |__ | |__  ___  ___  ___  __| |", "#2dd4bf"},
	{"| '_ \\| '_ \\/ __|/ _ \\/ _ \\/ _` |", "#22d3ee"},
	{"| |_) | |_) \\__ \\  __/  __/ (_| |", "#38bdf8"},
	{"|_.__/|_.__/|___/\\___|\\___|\\__,_|", "#60a5fa"},
}

// PrintBanner writes the bbseed banner and version.
func PrintBanner(w io.Writer, version string) {
	p := Profile(w)
	fmt.Fprintln(w)
	for _, l := range banner {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)).String())
	}
	fmt.Fprintf(w, "version %s\n\n", version)
}
