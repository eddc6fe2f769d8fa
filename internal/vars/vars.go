// Package vars holds the capture variables bound during one verification run.
package vars

import (
	"fmt"
	"sort"
)

// Binding is one captured value. It never changes after creation;
// redefining a name adds a new binding that shadows the old one.
type Binding struct {
	Name      string
	Value     string
	Directive int // index of the defining directive
}

// UndefinedError reports a lookup of a name with no binding.
type UndefinedError struct {
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// Env is a run-scoped variable environment. It is not safe for concurrent
// use; every run owns its own Env.
type Env struct {
	current map[string]int // name -> index into history
	history []Binding
}

// New returns an empty environment.
func New() *Env {
	return &Env{current: make(map[string]int)}
}

// Define binds name to value, shadowing any earlier binding.
func (e *Env) Define(name, value string, directive int) {
	e.current[name] = len(e.history)
	e.history = append(e.history, Binding{Name: name, Value: value, Directive: directive})
}

// Resolve returns the latest value bound to name.
func (e *Env) Resolve(name string) (string, error) {
	b, ok := e.Lookup(name)
	if !ok {
		return "", &UndefinedError{Name: name}
	}
	return b.Value, nil
}

// Lookup returns the latest binding for name.
func (e *Env) Lookup(name string) (Binding, bool) {
	idx, ok := e.current[name]
	if !ok {
		return Binding{}, false
	}
	return e.history[idx], true
}

// Snapshot returns the visible value of every bound name.
func (e *Env) Snapshot() map[string]string {
	out := make(map[string]string, len(e.current))
	for name, idx := range e.current {
		out[name] = e.history[idx].Value
	}
	return out
}

// History returns every binding in definition order, shadowed ones included.
func (e *Env) History() []Binding {
	return append([]Binding(nil), e.history...)
}

// Names returns the visible names sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.current))
	for name := range e.current {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of visible names.
func (e *Env) Len() int { return len(e.current) }
