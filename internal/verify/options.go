package verify

import (
	"fmt"
	"strings"

	"linecheck/internal/directive"
	"linecheck/internal/pattern"
)

// Options configures a verification run. The zero value is usable:
// it means the CHECK prefix, case-sensitive matching and collapsed
// whitespace.
type Options struct {
	Prefixes        []string
	CommentPrefixes []string

	// IgnoreCase turns off case-sensitive matching.
	IgnoreCase bool
	Whitespace pattern.Whitespace
	// RequireFullConsumption makes non-blank output after the furthest
	// match a failure.
	RequireFullConsumption bool
	// DAGWindow bounds how many lines a DAG group may span; 0 means up to
	// the next label.
	DAGWindow int
	// RegexMode treats literal pattern text as regular expressions.
	RegexMode bool
	// NormalizeUnicode compares NFC forms.
	NormalizeUnicode bool
	// ImplicitNot patterns must not appear between any two matches.
	ImplicitNot []string
}

// DefaultOptions returns the defaults spelled out.
func DefaultOptions() Options {
	d := directive.DefaultOptions()
	return Options{
		Prefixes:        d.Prefixes,
		CommentPrefixes: d.CommentPrefixes,
		Whitespace:      pattern.WhitespaceCollapse,
	}
}

// CaseSensitive reports whether matching respects case.
func (o Options) CaseSensitive() bool { return !o.IgnoreCase }

func (o Options) directiveOptions() directive.Options {
	return directive.Options{
		Prefixes:        o.Prefixes,
		CommentPrefixes: o.CommentPrefixes,
		DAGWindow:       o.DAGWindow,
	}
}

func (o Options) patternOptions() pattern.Options {
	return pattern.Options{
		RegexMode:        o.RegexMode,
		IgnoreCase:       o.IgnoreCase,
		NormalizeUnicode: o.NormalizeUnicode,
	}
}

// Validate rejects option sets no run could use.
func (o Options) Validate() error {
	dopts := o.directiveOptions()
	if len(dopts.Prefixes) == 0 {
		dopts.Prefixes = directive.DefaultOptions().Prefixes
	}
	if dopts.CommentPrefixes == nil {
		dopts.CommentPrefixes = directive.DefaultOptions().CommentPrefixes
	}
	if err := dopts.Validate(); err != nil {
		return err
	}
	if o.Whitespace != pattern.WhitespaceCollapse && o.Whitespace != pattern.WhitespaceExact {
		return fmt.Errorf("unknown whitespace policy %d", o.Whitespace)
	}
	for _, p := range o.ImplicitNot {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("implicit-check-not pattern must not be empty")
		}
	}
	return nil
}
