package verify

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"linecheck/internal/diag"
	"linecheck/internal/match"
	"linecheck/internal/observ"
)

// FailureKind classifies the outcome of a run.
type FailureKind uint8

const (
	// NoFailure is the kind of a successful result.
	NoFailure FailureKind = iota
	ParseError
	CompileError
	UndefinedVariable
	PatternNotFound
	ForbiddenPatternFound
	NoDirectivesFound
	TrailingOutput
	// Interrupted means the context ended the run early.
	Interrupted
)

// ExitInternal is the exit status for errors outside the engine (I/O,
// manifest, cache).
const ExitInternal = 10

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return "Success"
	case ParseError:
		return "ParseError"
	case CompileError:
		return "CompileError"
	case UndefinedVariable:
		return "UndefinedVariable"
	case PatternNotFound:
		return "PatternNotFound"
	case ForbiddenPatternFound:
		return "ForbiddenPatternFound"
	case NoDirectivesFound:
		return "NoDirectivesFound"
	case TrailingOutput:
		return "TrailingOutput"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown"
	}
}

// ExitCode maps the kind to a distinct process exit status.
func (k FailureKind) ExitCode() int {
	switch k {
	case NoFailure:
		return 0
	case PatternNotFound:
		return 1
	case ForbiddenPatternFound:
		return 2
	case TrailingOutput:
		return 3
	case NoDirectivesFound:
		return 4
	case ParseError:
		return 5
	case CompileError:
		return 6
	case UndefinedVariable:
		return 7
	default:
		return ExitInternal
	}
}

// Failure is the first fatal condition of a run.
type Failure struct {
	Kind    FailureKind
	Code    diag.Code
	Message string
	// Context is a multi-line excerpt of the relevant output.
	Context string

	// Line is the most relevant line: the annotation line for parse and
	// compile errors, the output line for match failures.
	Line int
	Col  int

	AnnotationLine int // line of the failing directive, 0 when none
	AnnotationCol  int
	Directive      string // spelled directive with its pattern, e.g. "CHECK-NEXT: foo"

	OutputLine string // text of the output line
	LastMatch  int
	FoundAt    int
	Hint       int
	HintText   string
	Variable   string

	Reason match.Reason // zero unless the engine reported the failure
}

// Result is the verdict of one run.
type Result struct {
	Kind      FailureKind
	Satisfied int
	Bindings  map[string]string
	Matches   []match.Located
	Failure   *Failure

	// Timings is informational and ignored by Equal.
	Timings observ.Report
}

// OK reports success.
func (r Result) OK() bool { return r.Kind == NoFailure }

// ExitCode is r.Kind.ExitCode().
func (r Result) ExitCode() int { return r.Kind.ExitCode() }

// plainResult has no Equal method, so cmp compares it field by field.
type plainResult Result

// Equal compares verdicts, ignoring timings.
func (r Result) Equal(other Result) bool {
	return cmp.Equal(plainResult(r), plainResult(other),
		cmpopts.IgnoreFields(plainResult{}, "Timings"), cmpopts.EquateEmpty())
}
