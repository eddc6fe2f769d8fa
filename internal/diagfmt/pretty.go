package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"linecheck/internal/diag"
	"linecheck/internal/source"
)

type palette struct {
	err, warn, info, code, gutter, caret, note func(a ...any) string
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		code:   mk(color.Bold),
		gutter: mk(color.FgBlue),
		caret:  mk(color.FgGreen, color.Bold),
		note:   mk(color.FgCyan),
	}
}

func (p palette) severity(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return p.err(s.String())
	case diag.SevWarning:
		return p.warn(s.String())
	default:
		return p.info(s.String())
	}
}

// Pretty renders diagnostics for a terminal:
//
//	<path>:<line>:<col>: ERROR MAT3001: message
//	   |
//	 3 | CHECK: foo
//	   |        ^~~
//	   = note: scanning from here (<output>:2:1)
//
// followed by the diagnostic context block when ShowContext is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, d, fs, opts, p)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) {
	f := fs.Get(d.Primary.File)
	if f == nil {
		fmt.Fprintf(w, "%s %s: %s\n", p.severity(d.Severity), p.code(d.Code.ID()), d.Message)
		return
	}
	start, end := fs.Resolve(d.Primary)
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
		formatPath(f, fs, opts.PathMode), start.Line, start.Col,
		p.severity(d.Severity), p.code(d.Code.ID()), d.Message)

	first := start.Line
	last := start.Line
	if opts.Context > 0 {
		ctx := uint32(opts.Context)
		if first > ctx {
			first -= ctx
		} else {
			first = 1
		}
		last += ctx
		if n := uint32(f.LineCount()); last > n {
			last = n
		}
	}
	if last < start.Line {
		last = start.Line
	}

	gw := len(fmt.Sprint(last))
	pad := strings.Repeat(" ", gw)
	fmt.Fprintf(w, "%s %s\n", pad, p.gutter("|"))
	for ln := first; ln <= last; ln++ {
		text := clip(f.GetLine(ln), opts.Width)
		fmt.Fprintf(w, "%s %s %s\n", p.gutter(fmt.Sprintf("%*d", gw, ln)), p.gutter("|"), text)
		if ln == start.Line {
			fmt.Fprintf(w, "%s %s %s\n", pad, p.gutter("|"), p.caret(underline(f.GetLine(ln), start, end)))
		}
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			loc := ""
			if nf := fs.Get(n.Span.File); nf != nil {
				ns, _ := fs.Resolve(n.Span)
				loc = fmt.Sprintf(" (%s:%d:%d)", formatPath(nf, fs, opts.PathMode), ns.Line, ns.Col)
			}
			fmt.Fprintf(w, "%s %s %s: %s%s\n", pad, p.gutter("="), p.note("note"), n.Msg, loc)
		}
	}
	if opts.ShowContext && d.Context != "" {
		fmt.Fprintln(w)
		for _, line := range strings.Split(strings.TrimRight(d.Context, "\n"), "\n") {
			fmt.Fprintf(w, "%s %s\n", pad, line)
		}
	}
}

// underline builds the "^~~" marker under the primary span. Columns are
// measured in display cells so that wide runes line up.
func underline(line string, start, end source.LineCol) string {
	startCol := int(start.Col) - 1
	if startCol > len(line) {
		startCol = len(line)
	}
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		endCol := min(int(end.Col)-1, len(line))
		width = max(runewidth.StringWidth(line[startCol:endCol]), 1)
	}
	lead := runewidth.StringWidth(expandTabs(line[:startCol]))
	return strings.Repeat(" ", lead) + "^" + strings.Repeat("~", width-1)
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", " ")
}

func clip(s string, width uint8) string {
	s = expandTabs(s)
	if width == 0 || runewidth.StringWidth(s) <= int(width) {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, int(width), "")
	}
	return runewidth.Truncate(s, int(width), "...")
}

// Short renders one diagnostic per line in the stable golden form.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) {
	out := diag.FormatShortDiagnostics(bag.Items(), fs, includeNotes)
	if out == "" {
		return
	}
	fmt.Fprintln(w, out)
}
