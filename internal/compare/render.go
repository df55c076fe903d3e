package compare

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// diffScheme defines the colors used when rendering a diff to a terminal.
// Red: lines present only in the fixture (expected but missing).
// Green: lines present only in the actual output (unexpected).
type diffScheme struct {
	deleted *color.Color
	added   *color.Color
}

func newDiffScheme() *diffScheme {
	return &diffScheme{
		deleted: color.New(color.FgRed),
		added:   color.New(color.FgGreen),
	}
}

// RenderDiff writes the diff to w, colorizing added and deleted lines when w
// is a terminal. Non-terminal writers receive the diff verbatim so it can be
// captured in CI logs and compared textually.
func RenderDiff(w io.Writer, diff string) {
	if diff == "" {
		return
	}

	if !writerIsTerminal(w) {
		io.WriteString(w, diff+"\n")
		return
	}

	scheme := newDiffScheme()
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "- "):
			scheme.deleted.Fprintln(w, line)
		case strings.HasPrefix(line, "+ "):
			scheme.added.Fprintln(w, line)
		default:
			io.WriteString(w, line+"\n")
		}
	}
}

// writerIsTerminal reports whether w is a TTY that supports colors.
func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
