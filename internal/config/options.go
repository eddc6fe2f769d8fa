package config

import (
	"fmt"

	"linecheck/internal/pattern"
	"linecheck/internal/verify"
)

func defaultOptions() verify.Options {
	return verify.DefaultOptions()
}

// Apply layers the keys present in c over base.
func (c Check) Apply(base verify.Options) (verify.Options, error) {
	opts := base
	if len(c.Prefixes) > 0 {
		opts.Prefixes = append([]string(nil), c.Prefixes...)
	}
	if c.CommentPrefixes != nil {
		opts.CommentPrefixes = append([]string(nil), c.CommentPrefixes...)
	}
	if c.Whitespace != "" {
		ws, ok := pattern.ParseWhitespace(c.Whitespace)
		if !ok {
			return base, fmt.Errorf("unknown whitespace policy %q (want collapse or exact)", c.Whitespace)
		}
		opts.Whitespace = ws
	}
	if c.CaseSensitive != nil {
		opts.IgnoreCase = !*c.CaseSensitive
	}
	if c.FullOutput != nil {
		opts.RequireFullConsumption = *c.FullOutput
	}
	if c.DAGWindow != nil {
		opts.DAGWindow = *c.DAGWindow
	}
	if c.Regex != nil {
		opts.RegexMode = *c.Regex
	}
	if c.NFC != nil {
		opts.NormalizeUnicode = *c.NFC
	}
	if c.ImplicitNot != nil {
		opts.ImplicitNot = append([]string(nil), c.ImplicitNot...)
	}
	if err := opts.Validate(); err != nil {
		return base, err
	}
	return opts, nil
}

// Options returns the verification options for f: the defaults, then
// [check], then the fixture's own prefixes.
func (m *Manifest) Options(f Fixture) (verify.Options, error) {
	opts, err := m.Check.Apply(defaultOptions())
	if err != nil {
		return verify.Options{}, fmt.Errorf("%s: [check]: %w", m.Path, err)
	}
	if len(f.Prefixes) > 0 {
		opts.Prefixes = append([]string(nil), f.Prefixes...)
		if err := opts.Validate(); err != nil {
			return verify.Options{}, fmt.Errorf("%s: fixture %q: %w", m.Path, f.Name, err)
		}
	}
	return opts, nil
}
