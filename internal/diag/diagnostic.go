package diag

import (
	"linecheck/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// Diagnostic is one finding of a verification run. Primary points into the
// annotation source; notes usually point into the checked output.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	// Context is a verbatim multi-line excerpt rendered after the notes.
	Context string
}
