package suite

import (
	"fmt"
	"path"
	"sync"

	"linecheck/internal/config"
	"linecheck/internal/verify"
)

// Entry is one registered fixture together with its effective options.
type Entry struct {
	Fixture config.Fixture
	Options verify.Options
}

// Registry collects the fixtures of a suite in registration order.
type Registry struct {
	mu      sync.Mutex
	entries []Entry
	byName  map[string]int // name -> index into entries
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make([]Entry, 0),
		byName:  make(map[string]int),
	}
}

// FromManifest resolves every fixture of m and registers it with the
// options the manifest gives it.
func FromManifest(m *config.Manifest) (*Registry, error) {
	fixtures, err := m.ResolveFixtures()
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, f := range fixtures {
		opts, err := m.Options(f)
		if err != nil {
			return nil, err
		}
		if err := r.Add(Entry{Fixture: f, Options: opts}); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Path, err)
		}
	}
	return r, nil
}

// Add registers e. Names must be unique.
func (r *Registry) Add(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[e.Fixture.Name]; dup {
		return fmt.Errorf("fixture %q registered twice", e.Fixture.Name)
	}
	r.byName[e.Fixture.Name] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// All returns all registered entries.
func (r *Registry) All() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Lookup returns the entry named name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byName[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Filter returns the entries whose name equals or glob-matches any of
// patterns. If patterns is empty, returns all entries.
func (r *Registry) Filter(patterns []string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(patterns) == 0 {
		return append([]Entry(nil), r.entries...), nil
	}
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("bad filter %q: %w", p, err)
		}
	}

	var result []Entry
	for _, e := range r.entries {
		for _, p := range patterns {
			if ok, _ := path.Match(p, e.Fixture.Name); ok || p == e.Fixture.Name {
				result = append(result, e)
				break
			}
		}
	}
	return result, nil
}

// Len returns the total number of entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
