package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"linecheck/internal/diag"
	"linecheck/internal/source"
)

// CheckDiagnosticInvariants runs a minimal set of span invariants on a
// verification diagnostic:
// 1) every span refers to a file of fs and lies within its content
// 2) the primary span points into a text without the FileOutput flag
// 3) the message is not empty
func CheckDiagnosticInvariants(d *diag.Diagnostic, fs *source.FileSet) error {
	if d == nil || fs == nil {
		return fmt.Errorf("nil diagnostic or file set")
	}
	if d.Message == "" {
		return fmt.Errorf("%s: empty message", d.Code.ID())
	}

	f, err := checkSpan(fs, d.Primary)
	if err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	if f.Flags&source.FileOutput != 0 {
		return fmt.Errorf("primary span points into output %q", f.Path)
	}

	for i, n := range d.Notes {
		if _, err := checkSpan(fs, n.Span); err != nil {
			return fmt.Errorf("note %d (%q): %w", i, n.Msg, err)
		}
	}
	return nil
}

func checkSpan(fs *source.FileSet, sp source.Span) (*source.File, error) {
	f := fs.Get(sp.File)
	if f == nil {
		return nil, fmt.Errorf("unknown file id %d", sp.File)
	}
	if sp.End < sp.Start {
		return nil, fmt.Errorf("inverted span %v", sp)
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		return nil, fmt.Errorf("len content overflow: %w", err)
	}
	if sp.End > lenContent {
		return nil, fmt.Errorf("span end beyond content: %d > %d", sp.End, lenContent)
	}
	return f, nil
}
