package directive

import (
	"fmt"
	"regexp"
)

// Directive is one expectation line found in an annotation source.
type Directive struct {
	Kind       Kind
	Prefix     string // prefix that introduced the directive, e.g. "CHECK"
	Label      string // spelled directive, e.g. "CHECK-NEXT"
	Pattern    string // raw pattern text, single leading space trimmed
	Line       uint32 // 1-based line in the annotation source
	Col        uint32 // 1-based column of the prefix
	PatternCol uint32 // 1-based column where Pattern starts
	Window     int    // DAG only: max lines a group may span, 0 = up to the next anchor
}

func (d Directive) String() string {
	return fmt.Sprintf("%s: %s", d.Label, d.Pattern)
}

// Options configures directive recognition.
type Options struct {
	Prefixes        []string
	CommentPrefixes []string
	DAGWindow       int
}

// DefaultOptions returns the CHECK prefix with the COM and RUN comment prefixes.
func DefaultOptions() Options {
	return Options{
		Prefixes:        []string{"CHECK"},
		CommentPrefixes: []string{"COM", "RUN"},
	}
}

var prefixRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Validate rejects empty, malformed or duplicate prefixes.
func (o Options) Validate() error {
	if len(o.Prefixes) == 0 {
		return fmt.Errorf("at least one check prefix is required")
	}
	if o.DAGWindow < 0 {
		return fmt.Errorf("dag window must not be negative, got %d", o.DAGWindow)
	}
	seen := make(map[string]string, len(o.Prefixes)+len(o.CommentPrefixes))
	check := func(p, role string) error {
		if !prefixRe.MatchString(p) {
			return fmt.Errorf("invalid %s prefix %q: must start with a letter and contain only letters, digits, '_' or '-'", role, p)
		}
		if prev, dup := seen[p]; dup {
			return fmt.Errorf("%s prefix %q is already used as a %s prefix", role, p, prev)
		}
		seen[p] = role
		return nil
	}
	for _, p := range o.Prefixes {
		if err := check(p, "check"); err != nil {
			return err
		}
	}
	for _, p := range o.CommentPrefixes {
		if err := check(p, "comment"); err != nil {
			return err
		}
	}
	return nil
}

func (o Options) withDefaults() Options {
	if len(o.Prefixes) == 0 {
		o.Prefixes = []string{"CHECK"}
	}
	if o.CommentPrefixes == nil {
		o.CommentPrefixes = []string{"COM", "RUN"}
	}
	return o
}
