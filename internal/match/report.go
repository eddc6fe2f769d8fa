package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"linecheck/internal/pattern"
)

const implicitLabel = "implicit-check-not"

// checkNots verifies the pending NOT directives and the implicit NOT
// patterns over the span from the previous anchor match up to end.
func (s *state) checkNots(end pos) error {
	pending := s.pending
	s.pending = nil
	start := s.spanStart
	if !start.before(end) {
		return nil
	}
	for _, idx := range pending {
		if err := s.checkNot(idx, s.ps[idx], s.ds[idx].Label, start, end); err != nil {
			return err
		}
	}
	for _, p := range s.opts.ImplicitNot {
		if err := s.checkNot(-1, p, implicitLabel, start, end); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) checkNot(idx int, p *pattern.Pattern, label string, start, end pos) error {
	m, err := s.matcher(idx, p, label)
	if err != nil {
		return err
	}
	for l := start.line; l <= end.line && l < len(s.lines); l++ {
		line := s.lines[l]
		lo, hi := 0, len(line)
		if l == start.line {
			lo = min(start.col, len(line))
		}
		if l == end.line {
			hi = min(end.col, len(line))
		}
		if lo > hi {
			continue
		}
		mm, ok := m.FindIn(line, lo, hi)
		if !ok {
			continue
		}
		f := &Failure{
			Reason:     ReasonForbidden,
			Directive:  idx,
			Line:       l + 1,
			Col:        mm.Start + 1,
			OutputLine: s.raw[l],
			SearchFrom: start.line + 1,
			SearchTo:   min(end.line+1, len(s.lines)),
			Message:    fmt.Sprintf("%s: excluded string found in input: %q", label, p.String()),
			Context:    s.context(l, l+1),
		}
		if s.hasLast {
			f.LastMatch = s.last.line + 1
		}
		return f
	}
	return nil
}

func (s *state) baseFailure(reason Reason, idx int, from, limit int) *Failure {
	limit = min(limit, len(s.lines))
	f := &Failure{Reason: reason, Directive: idx}
	if s.hasLast {
		f.LastMatch = s.last.line + 1
	}
	if from < limit {
		f.SearchFrom = from + 1
		f.SearchTo = limit
	}
	if from < len(s.lines) {
		f.Line = from + 1
		f.Col = 1
		f.OutputLine = s.raw[from]
	}
	return f
}

func (s *state) notFound(idx int, m *pattern.Matcher, from, limit int, reason Reason) *Failure {
	d := s.ds[idx]
	f := s.baseFailure(reason, idx, from, limit)
	switch {
	case reason == ReasonLabelNotFound:
		f.Message = fmt.Sprintf("%s: label not found in input: %q", d.Label, d.Pattern)
	case from >= len(s.lines):
		f.Message = fmt.Sprintf("%s: expected string not found, output ended: %q", d.Label, d.Pattern)
	default:
		f.Message = fmt.Sprintf("%s: expected string not found in input: %q", d.Label, d.Pattern)
	}
	if limit < len(s.lines) && reason != ReasonLabelNotFound {
		if h, ok := s.search(m, limit, len(s.lines)); ok {
			f.FoundAt = h.line + 1
			f.Message += fmt.Sprintf(" (it occurs on line %d, past the end of the search region)", h.line+1)
		}
	}
	s.addHint(f, idx, from, limit)
	f.Context = s.context(from, limit)
	return f
}

func (s *state) notOnNextLine(idx int, m *pattern.Matcher, target int) *Failure {
	d := s.ds[idx]
	f := s.baseFailure(ReasonNotFound, idx, target, target+1)
	f.Message = fmt.Sprintf("%s: expected string not found on the line after the previous match: %q", d.Label, d.Pattern)
	if target >= len(s.lines) {
		f.Message = fmt.Sprintf("%s: no line after the previous match on line %d: %q", d.Label, s.last.line+1, d.Pattern)
	}
	if _, ok := s.findOn(m, s.last.line, s.last.end); ok {
		f.Reason = ReasonNotOnNextLine
		f.FoundAt = s.last.line + 1
		f.Message = fmt.Sprintf("%s: %q is on the same line as the previous match", d.Label, d.Pattern)
	} else if h, ok := s.search(m, target+1, s.fence); ok {
		f.Reason = ReasonNotOnNextLine
		f.FoundAt = h.line + 1
		f.Message = fmt.Sprintf("%s: %q is not on the line after the previous match (found on line %d)", d.Label, d.Pattern, h.line+1)
	}
	f.Context = s.context(s.last.line, min(target+1, len(s.lines)))
	return f
}

func (s *state) notOnSameLine(idx int, m *pattern.Matcher) *Failure {
	d := s.ds[idx]
	l := s.last.line
	f := s.baseFailure(ReasonNotFound, idx, l, l+1)
	f.Col = s.last.end + 1
	f.Message = fmt.Sprintf("%s: expected string not found after column %d of line %d: %q", d.Label, s.last.end+1, l+1, d.Pattern)
	if h, ok := s.search(m, l+1, s.fence); ok {
		f.Reason = ReasonNotOnSameLine
		f.FoundAt = h.line + 1
		f.Message = fmt.Sprintf("%s: %q is not on the same line as the previous match (found on line %d)", d.Label, d.Pattern, h.line+1)
	}
	f.Context = s.context(l, l+1)
	return f
}

// addHint looks for a line that nearly matches the literal text of the
// pattern: first a fuzzy subsequence match, then the smallest edit distance.
func (s *state) addHint(f *Failure, idx, from, limit int) {
	if s.opts.NoHints || from >= limit {
		return
	}
	target := strings.TrimSpace(s.opts.Whitespace.Normalize(s.ps[idx].LiteralText()))
	if target == "" {
		return
	}
	cands := make([]string, 0, limit-from)
	for l := from; l < limit; l++ {
		cands = append(cands, strings.TrimSpace(s.lines[l]))
	}

	ranks := fuzzy.RankFindFold(target, cands)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		s.setHint(f, from+ranks[0].OriginalIndex)
		return
	}

	best, bestDist := -1, len(target)/3+1
	for i, c := range cands {
		if c == "" {
			continue
		}
		if d := fuzzy.LevenshteinDistance(strings.ToLower(target), strings.ToLower(c)); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		s.setHint(f, from+best)
	}
}

func (s *state) setHint(f *Failure, line int) {
	f.Hint = line + 1
	f.HintText = s.raw[line]
}

// context renders the previous match and the output lines [from, to).
func (s *state) context(from, to int) string {
	var sb strings.Builder
	if s.hasLast && s.last.line < from {
		fmt.Fprintf(&sb, "last match on line %d:\n", s.last.line+1)
		writeLine(&sb, s.last.line+1, s.raw[s.last.line])
	}
	to = min(to, len(s.raw))
	switch {
	case from >= to && from >= len(s.raw):
		sb.WriteString("<end of output>\n")
	case from < to:
		if to-from == 1 {
			fmt.Fprintf(&sb, "output line %d:\n", from+1)
		} else {
			fmt.Fprintf(&sb, "searched lines %d-%d:\n", from+1, to)
		}
		for l := from; l < to; l++ {
			writeLine(&sb, l+1, s.raw[l])
		}
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, n int, text string) {
	fmt.Fprintf(sb, "%6d | %s\n", n, text)
}
