package verify

import (
	"fmt"

	"fortio.org/safecast"

	"linecheck/internal/diag"
	"linecheck/internal/source"
)

// Diagnostic maps a failed result onto a diagnostic whose primary span is
// the failing directive in annotation and whose notes point into output.
// It returns nil for a successful result.
func (r Result) Diagnostic(fs *source.FileSet, annID, outID source.FileID) *diag.Diagnostic {
	f := r.Failure
	if r.OK() || f == nil {
		return nil
	}
	ann, out := fs.Get(annID), fs.Get(outID)

	primary := source.Span{File: annID}
	if ann != nil && f.AnnotationLine > 0 {
		primary = lineSpanFrom(ann, f.AnnotationLine, f.AnnotationCol)
	}

	d := diag.NewError(f.Code, primary, f.Message)
	if out != nil {
		switch {
		case r.Kind == ForbiddenPatternFound && f.Line > 0:
			d.WithNote(lineSpanFrom(out, f.Line, f.Col), "forbidden text found here")
		case r.Kind == TrailingOutput && f.Line > 0:
			d.WithNote(out.LineSpan(toU32(f.Line)), "output continues past the last match")
		case r.Kind == PatternNotFound || r.Kind == UndefinedVariable:
			if f.Line > 0 {
				d.WithNote(lineSpanFrom(out, f.Line, f.Col), "scanning from here")
			} else {
				d.WithNote(endOf(out), "output ends here")
			}
		}
		if f.LastMatch > 0 && r.Kind != TrailingOutput {
			d.WithNote(out.LineSpan(toU32(f.LastMatch)), "previous match here")
		}
		if f.FoundAt > 0 {
			d.WithNote(out.LineSpan(toU32(f.FoundAt)), "pattern occurs here")
		}
		if f.Hint > 0 && f.Hint != f.FoundAt {
			d.WithNote(out.LineSpan(toU32(f.Hint)), "possible intended match here")
		}
	}
	if f.Variable != "" && r.Kind != ParseError {
		d.WithNote(primary, fmt.Sprintf("variable %q", f.Variable))
	}
	if f.Context != "" {
		d.WithContext(f.Context)
	}
	return d
}

// lineSpanFrom covers line from column col (1-based) to its end.
func lineSpanFrom(f *source.File, line, col int) source.Span {
	sp := f.LineSpan(toU32(line))
	if col > 1 {
		start := sp.Start + toU32(col-1)
		if start > sp.End {
			start = sp.End
		}
		sp.Start = start
	}
	return sp
}

func endOf(f *source.File) source.Span {
	n := toU32(len(f.Content))
	return source.Span{File: f.ID, Start: n, End: n}
}

func toU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("position overflow: %w", err))
	}
	return v
}
