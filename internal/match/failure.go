package match

import "fmt"

// Reason says why a run stopped.
type Reason uint8

const (
	ReasonNotFound Reason = iota + 1
	ReasonNotOnNextLine
	ReasonNotOnSameLine
	ReasonLabelNotFound
	ReasonForbidden
	ReasonTrailingOutput
	ReasonUndefined
)

func (r Reason) String() string {
	switch r {
	case ReasonNotFound:
		return "pattern not found"
	case ReasonNotOnNextLine:
		return "pattern not on next line"
	case ReasonNotOnSameLine:
		return "pattern not on same line"
	case ReasonLabelNotFound:
		return "label not found"
	case ReasonForbidden:
		return "forbidden pattern found"
	case ReasonTrailingOutput:
		return "trailing output"
	case ReasonUndefined:
		return "undefined variable"
	default:
		return "unknown"
	}
}

// Failure is the first unsatisfied directive of a run.
// Lines and columns are 1-based; 0 means not applicable.
type Failure struct {
	Reason    Reason
	Directive int // index into the directive slice, -1 for implicit NOT or trailing output

	Line       int    // output line the failure points at
	Col        int    // column on the normalized line
	OutputLine string // text of Line as given, before normalization

	LastMatch  int // output line of the previous match
	SearchFrom int // first searched output line
	SearchTo   int // last searched output line

	FoundAt  int    // NEXT/SAME: line where the pattern occurs instead
	Hint     int    // line of a likely intended match
	HintText string // text of Hint
	Variable string // ReasonUndefined

	Message string
	Context string
}

func (f *Failure) Error() string {
	if f.Line > 0 {
		return fmt.Sprintf("output:%d:%d: %s", f.Line, f.Col, f.Message)
	}
	return f.Message
}
