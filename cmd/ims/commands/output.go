package commands

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// colorProfile picks Ascii unless w is an interactive terminal outside CI.
func colorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	ci := os.Getenv("CI")
	if ci == "true" || ci == "1" {
		return termenv.Ascii
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}
