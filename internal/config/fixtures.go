package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const defaultOutputSuffix = ".out"

// ResolveFixtures returns the explicit fixtures followed by the discovered
// ones, with absolute paths and a name on every entry. A discovered file
// that is already an explicit annotation is skipped.
func (m *Manifest) ResolveFixtures() ([]Fixture, error) {
	out := make([]Fixture, 0, len(m.Fixtures))
	names := make(map[string]struct{}, len(m.Fixtures))
	claimed := make(map[string]struct{}, len(m.Fixtures))

	add := func(f Fixture) error {
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("%s: duplicate fixture name %q", m.Path, f.Name)
		}
		names[f.Name] = struct{}{}
		claimed[f.Annotation] = struct{}{}
		out = append(out, f)
		return nil
	}

	for _, f := range m.Fixtures {
		f.Annotation = m.abs(f.Annotation)
		f.Output = m.abs(f.Output)
		if f.Name == "" {
			f.Name = m.rel(f.Annotation)
		}
		if err := add(f); err != nil {
			return nil, err
		}
	}

	if m.Discover == nil {
		return out, nil
	}
	matches, err := filepath.Glob(m.abs(m.Discover.Annotations))
	if err != nil {
		return nil, fmt.Errorf("%s: [discover].annotations: %w", m.Path, err)
	}
	sort.Strings(matches)
	suffix := m.Discover.OutputSuffix
	if suffix == "" {
		suffix = defaultOutputSuffix
	}
	for _, ann := range matches {
		if strings.HasSuffix(ann, suffix) {
			continue
		}
		if _, ok := claimed[ann]; ok {
			continue
		}
		f := Fixture{
			Name:       m.rel(ann),
			Annotation: ann,
			Output:     ann + suffix,
		}
		if err := add(f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Manifest) abs(p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Root, p)
}

func (m *Manifest) rel(p string) string {
	if r, err := filepath.Rel(m.Root, p); err == nil {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(p)
}
