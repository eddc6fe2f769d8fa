// Package match walks the output once and checks it against compiled
// directives.
package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"linecheck/internal/directive"
	"linecheck/internal/pattern"
	"linecheck/internal/trace"
	"linecheck/internal/vars"
)

// Located is where a directive matched. Line is 1-based; Start and End are
// byte offsets into the normalized line.
type Located struct {
	Directive int
	Line      int
	Start     int
	End       int
}

// Outcome describes a successful run.
type Outcome struct {
	Satisfied int
	Matches   []Located // one per satisfied directive, in directive order
	Env       *vars.Env
}

// Bindings returns the visible variable values after the run.
func (o Outcome) Bindings() map[string]string {
	if o.Env == nil {
		return map[string]string{}
	}
	return o.Env.Snapshot()
}

type hit struct {
	line, start, end int
	caps             []pattern.Capture
}

type pos struct{ line, col int }

func (p pos) before(q pos) bool {
	return p.line < q.line || p.line == q.line && p.col < q.col
}

type state struct {
	ctx    context.Context
	tr     trace.Tracer
	parent uint64

	ds    []directive.Directive
	ps    []*pattern.Pattern
	raw   []string
	lines []string
	opts  Options
	env   *vars.Env

	next      int // first line an ordinary search may use
	hasLast   bool
	last      hit
	spanStart pos // end of the previous anchor match
	pending   []int
	fence     int // lines at or beyond the next label are off limits
	furthest  int

	matches   []Located
	satisfied int
}

// Run checks output against the directives. patterns[i] must be the
// compiled form of directives[i]. The first unsatisfied directive is
// returned as a *Failure; context cancellation is returned as is.
func Run(ctx context.Context, directives []directive.Directive, patterns []*pattern.Pattern, output []string, opts Options) (Outcome, error) {
	if len(directives) != len(patterns) {
		return Outcome{}, fmt.Errorf("match: %d directives but %d patterns", len(directives), len(patterns))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s := &state{
		ctx:      ctx,
		tr:       trace.FromContext(ctx),
		ds:       directives,
		ps:       patterns,
		raw:      output,
		lines:    make([]string, len(output)),
		opts:     opts,
		env:      vars.New(),
		furthest: -1,
	}
	for i, l := range output {
		s.lines[i] = opts.normalize(l)
	}

	span := trace.Begin(s.tr, trace.ScopePhase, "match", trace.CurrentSpan(ctx))
	s.parent = span.ID()
	err := s.run()
	detail := "ok"
	if err != nil {
		detail = err.Error()
	}
	span.WithExtra("satisfied", strconv.Itoa(s.satisfied)).
		WithExtra("lines", strconv.Itoa(len(output))).
		End(detail)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Satisfied: s.satisfied, Matches: s.matches, Env: s.env}, nil
}

func (s *state) run() error {
	if err := s.setFence(0, -1); err != nil {
		return err
	}
	for i := 0; i < len(s.ds); {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		switch s.ds[i].Kind {
		case directive.KindNot:
			s.pending = append(s.pending, i)
			i++
		case directive.KindDAG:
			j := i
			for j < len(s.ds) && s.ds[j].Kind == directive.KindDAG {
				j++
			}
			if err := s.dagGroup(i, j); err != nil {
				return err
			}
			i = j
		default:
			if err := s.anchor(i); err != nil {
				return err
			}
			if s.ds[i].Kind == directive.KindLabel {
				if err := s.setFence(s.next, i); err != nil {
					return err
				}
			}
			i++
		}
	}
	if err := s.checkNots(pos{line: len(s.lines)}); err != nil {
		return err
	}
	if s.opts.RequireFullConsumption {
		return s.checkTrailing()
	}
	return nil
}

// setFence locates the first LABEL after directive idx, starting at line from.
func (s *state) setFence(from, idx int) error {
	s.fence = len(s.lines)
	j := idx + 1
	for j < len(s.ds) && s.ds[j].Kind != directive.KindLabel {
		j++
	}
	if j >= len(s.ds) {
		return nil
	}
	m, err := s.ps[j].Regexp(s.env, s.opts.Whitespace)
	if err != nil {
		// the label needs a variable bound inside the block; no fence
		return nil
	}
	h, ok := s.search(m, from, len(s.lines))
	if !ok {
		return s.notFound(j, m, from, len(s.lines), ReasonLabelNotFound)
	}
	s.fence = h.line
	return nil
}

func (s *state) anchor(i int) error {
	d := s.ds[i]
	m, err := s.matcher(i, s.ps[i], d.Label)
	if err != nil {
		return err
	}

	var h hit
	var ok bool
	switch d.Kind {
	case directive.KindLabel:
		if h, ok = s.search(m, s.next, len(s.lines)); !ok {
			return s.notFound(i, m, s.next, len(s.lines), ReasonLabelNotFound)
		}
	case directive.KindNext:
		target := s.last.line + 1
		if target < s.fence {
			h, ok = s.findOn(m, target, 0)
		}
		if !ok {
			return s.notOnNextLine(i, m, target)
		}
	case directive.KindSame:
		if h, ok = s.findOn(m, s.last.line, s.last.end); !ok {
			return s.notOnSameLine(i, m)
		}
	default:
		if h, ok = s.search(m, s.next, s.fence); !ok {
			return s.notFound(i, m, s.next, s.fence, ReasonNotFound)
		}
	}

	if err := s.checkNots(pos{h.line, h.start}); err != nil {
		return err
	}
	s.bind(i, h)
	s.record(i, h)
	s.advance(h)
	return nil
}

func (s *state) dagGroup(from, to int) error {
	start := s.next
	limit := s.fence
	if w := s.ds[from].Window; w > 0 && start+w < limit {
		limit = start + w
	}

	hits := make([]hit, 0, to-from)
	for k := from; k < to; k++ {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		m, err := s.matcher(k, s.ps[k], s.ds[k].Label)
		if err != nil {
			return err
		}
		h, ok := s.searchDisjoint(m, start, limit, hits)
		if !ok {
			return s.notFound(k, m, start, limit, ReasonNotFound)
		}
		// later DAG directives of the group may reference this capture
		s.bind(k, h)
		hits = append(hits, h)
	}

	earliest, furthest := hits[0], hits[0]
	for _, h := range hits[1:] {
		if (pos{h.line, h.start}).before(pos{earliest.line, earliest.start}) {
			earliest = h
		}
		if (pos{furthest.line, furthest.end}).before(pos{h.line, h.end}) {
			furthest = h
		}
	}
	if err := s.checkNots(pos{earliest.line, earliest.start}); err != nil {
		return err
	}
	for k := from; k < to; k++ {
		s.record(k, hits[k-from])
	}
	s.advance(furthest)
	return nil
}

func (s *state) bind(i int, h hit) {
	for _, c := range h.caps {
		s.env.Define(c.Name, c.Value, i)
	}
}

func (s *state) record(i int, h hit) {
	s.matches = append(s.matches, Located{Directive: i, Line: h.line + 1, Start: h.start, End: h.end})
	s.satisfied++
	if s.tr.Enabled() {
		d := s.ds[i]
		trace.Point(s.tr, trace.ScopeDirective, d.Label, "matched line "+strconv.Itoa(h.line+1), s.parent,
			map[string]string{"pattern": d.Pattern, "directive_line": strconv.Itoa(int(d.Line))})
	}
}

func (s *state) advance(h hit) {
	s.hasLast = true
	s.last = h
	s.spanStart = pos{h.line, h.end}
	s.next = h.line + 1
	if h.line > s.furthest {
		s.furthest = h.line
	}
}

func (s *state) matcher(idx int, p *pattern.Pattern, label string) (*pattern.Matcher, error) {
	m, err := p.Regexp(s.env, s.opts.Whitespace)
	if err == nil {
		return m, nil
	}
	var uerr *vars.UndefinedError
	if errors.As(err, &uerr) {
		return nil, &Failure{
			Reason:    ReasonUndefined,
			Directive: idx,
			Variable:  uerr.Name,
			Message:   fmt.Sprintf("%s: undefined variable %q", label, uerr.Name),
		}
	}
	return nil, err
}

func (s *state) findOn(m *pattern.Matcher, line, col int) (hit, bool) {
	if line < 0 || line >= len(s.lines) {
		return hit{}, false
	}
	mm, ok := m.Find(s.lines[line], col)
	if !ok {
		return hit{}, false
	}
	return hit{line: line, start: mm.Start, end: mm.End, caps: mm.Captures}, true
}

func (s *state) search(m *pattern.Matcher, from, limit int) (hit, bool) {
	for l := from; l < limit && l < len(s.lines); l++ {
		if h, ok := s.findOn(m, l, 0); ok {
			return h, true
		}
	}
	return hit{}, false
}

// searchDisjoint is search that skips matches overlapping taken.
func (s *state) searchDisjoint(m *pattern.Matcher, from, limit int, taken []hit) (hit, bool) {
	for l := from; l < limit && l < len(s.lines); l++ {
		line := s.lines[l]
		for col := 0; col <= len(line); {
			h, ok := s.findOn(m, l, col)
			if !ok {
				break
			}
			if !overlaps(taken, h) {
				return h, true
			}
			_, size := utf8.DecodeRuneInString(line[h.start:])
			col = h.start + max(size, 1)
		}
	}
	return hit{}, false
}

func overlaps(taken []hit, h hit) bool {
	for _, t := range taken {
		if t.line != h.line {
			continue
		}
		if h.start < t.end && t.start < h.end || h.start == t.start {
			return true
		}
	}
	return false
}

func (s *state) checkTrailing() error {
	for l := s.furthest + 1; l < len(s.raw); l++ {
		if strings.TrimSpace(s.raw[l]) == "" {
			continue
		}
		return &Failure{
			Reason:     ReasonTrailingOutput,
			Directive:  -1,
			Line:       l + 1,
			Col:        1,
			OutputLine: s.raw[l],
			LastMatch:  s.furthest + 1,
			SearchFrom: l + 1,
			SearchTo:   len(s.raw),
			Message:    "unexpected output after the last matched line",
			Context:    s.context(l, len(s.raw)),
		}
	}
	return nil
}
