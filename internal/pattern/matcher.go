package pattern

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Resolver supplies the current value of a variable.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Capture is the text a definition captured.
type Capture struct {
	Name  string
	Value string
}

// Match is one successful match on a line, in byte offsets.
type Match struct {
	Start    int
	End      int
	Captures []Capture
}

type group struct {
	name string // variable name
	sub  string // submatch name
}

// piece is one assembled unit of a pattern. Local references are kept
// unresolved until a candidate capture for their definition exists.
type piece struct {
	kind SegmentKind // SegRegex for ready source, SegDefine or SegRef
	src  string      // regex source, or the definition expression
	name string
	sub  string // submatch name of the definition
}

// Matcher is an assembled pattern ready to run against output lines.
type Matcher struct {
	re      *regexp.Regexp
	flags   string
	defines []group
	pieces  []piece // set when the pattern refers to its own definitions

	mu      sync.Mutex
	windows map[windowKey]*windowRE
	staged  map[string]*Matcher
}

type windowKey struct {
	left, right, anchored bool
}

type windowRE struct {
	re    *regexp.Regexp
	whole int
	defs  []int
}

const wholeGroup = "lc_m"

// Regexp assembles the pattern against env. References to earlier
// directives are substituted with the quoted current value. A reference
// to a name defined earlier in the same pattern is substituted with the
// text the definition captured, trying each candidate definition match
// in turn.
func (p *Pattern) Regexp(env Resolver, ws Whitespace) (*Matcher, error) {
	pieces, local, err := p.assemble(env, ws)
	if err != nil {
		return nil, err
	}
	flags := ""
	if p.opts.IgnoreCase {
		flags = "(?i)"
	}
	src := flags + render(pieces, nil)

	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.cache[src]; ok {
		return m, nil
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, &Error{
			Kind: ErrBadRegex,
			Line: p.Directive.Line,
			Col:  p.Directive.PatternCol,
			Msg:  fmt.Sprintf("cannot assemble pattern %q: %v", p.Directive.Pattern, err),
		}
	}
	m := newMatcher(re, flags, pieces)
	if local {
		m.pieces = pieces
	}
	if p.cache == nil {
		p.cache = make(map[string]*Matcher)
	}
	p.cache[src] = m
	return m, nil
}

func newMatcher(re *regexp.Regexp, flags string, pieces []piece) *Matcher {
	m := &Matcher{re: re, flags: flags}
	for _, pc := range pieces {
		if pc.kind == SegDefine {
			m.defines = append(m.defines, group{name: pc.name, sub: pc.sub})
		}
	}
	return m
}

func (p *Pattern) assemble(env Resolver, ws Whitespace) ([]piece, bool, error) {
	var pieces []piece
	local := make(map[string]piece)
	hasLocal := false
	last := len(p.Segments) - 1
	for i, s := range p.Segments {
		switch s.Kind {
		case SegLiteral:
			text := s.Text
			if ws == WhitespaceCollapse {
				text = ws.Normalize(text)
				if i == 0 {
					text = strings.TrimLeft(text, " ")
				}
				if i == last {
					text = strings.TrimRight(text, " ")
				}
			}
			if p.opts.RegexMode {
				pieces = append(pieces, piece{kind: SegRegex, src: "(?:" + text + ")"})
			} else {
				pieces = append(pieces, piece{kind: SegRegex, src: regexp.QuoteMeta(text)})
			}
		case SegRegex:
			pieces = append(pieces, piece{kind: SegRegex, src: "(?:" + s.Text + ")"})
		case SegDefine:
			d := piece{kind: SegDefine, src: s.Text, name: s.Name, sub: "lc_d" + strconv.Itoa(i)}
			pieces = append(pieces, d)
			local[s.Name] = d
		case SegRef:
			if d, ok := local[s.Name]; ok {
				pieces = append(pieces, piece{kind: SegRef, src: d.src, name: s.Name, sub: d.sub})
				hasLocal = true
				continue
			}
			v, err := env.Resolve(s.Name)
			if err != nil {
				return nil, false, err
			}
			pieces = append(pieces, piece{kind: SegRegex, src: regexp.QuoteMeta(ws.Normalize(v))})
		}
	}
	return pieces, hasLocal, nil
}

// render writes pieces as one expression. Definitions and local
// references whose submatch is in vals become the literal captured text;
// the rest keep their expression.
func render(pieces []piece, vals map[string]string) string {
	var sb strings.Builder
	for _, pc := range pieces {
		switch pc.kind {
		case SegDefine:
			expr := pc.src
			if v, ok := vals[pc.sub]; ok {
				expr = regexp.QuoteMeta(v)
			}
			sb.WriteString("(?P<" + pc.sub + ">" + expr + ")")
		case SegRef:
			if v, ok := vals[pc.sub]; ok {
				sb.WriteString(regexp.QuoteMeta(v))
			} else {
				sb.WriteString("(?:" + pc.src + ")")
			}
		default:
			sb.WriteString(pc.src)
		}
	}
	return sb.String()
}

// Find returns the leftmost match in line starting at or after byte
// offset from.
func (m *Matcher) Find(line string, from int) (Match, bool) {
	return m.FindIn(line, from, len(line))
}

// FindIn returns the leftmost match lying inside line[lo:hi]. The text
// outside the window still decides anchors and word boundaries, so ^
// never matches at lo > 0.
func (m *Matcher) FindIn(line string, lo, hi int) (Match, bool) {
	hi = min(hi, len(line))
	if lo < 0 || lo > hi {
		return Match{}, false
	}
	if m.pieces == nil {
		return m.window(line, lo, hi, false)
	}
	return m.stage(line, lo, hi, false, nil)
}

// MatchString reports whether the matcher matches anywhere in line.
func (m *Matcher) MatchString(line string) bool {
	_, ok := m.Find(line, 0)
	return ok
}

// String returns the assembled expression.
func (m *Matcher) String() string { return m.re.String() }

// stage resolves the first local reference not yet in vals: every match
// of the pattern before it is a candidate, and the candidate's captures
// are substituted into the rest, which must match at the same start.
func (m *Matcher) stage(line string, lo, hi int, anchored bool, vals map[string]string) (Match, bool) {
	k := -1
	for i, pc := range m.pieces {
		if _, done := vals[pc.sub]; pc.kind == SegRef && !done {
			k = i
			break
		}
	}
	if k < 0 {
		full, ok := m.derive(m.pieces, vals)
		if !ok {
			return Match{}, false
		}
		return full.window(line, lo, hi, anchored)
	}
	prefix, ok := m.derive(m.pieces[:k], vals)
	if !ok {
		return Match{}, false
	}
	for start := lo; start <= hi; {
		cand, ok := prefix.window(line, start, hi, anchored)
		if !ok {
			return Match{}, false
		}
		next := make(map[string]string, len(vals)+len(cand.Captures))
		for sub, v := range vals {
			next[sub] = v
		}
		for i, d := range prefix.defines {
			next[d.sub] = cand.Captures[i].Value
		}
		if got, ok := m.stage(line, cand.Start, hi, true, next); ok {
			return got, true
		}
		if anchored || cand.Start >= hi {
			return Match{}, false
		}
		_, size := utf8.DecodeRuneInString(line[cand.Start:])
		start = cand.Start + max(size, 1)
	}
	return Match{}, false
}

// derive compiles pieces with vals substituted.
func (m *Matcher) derive(pieces []piece, vals map[string]string) (*Matcher, bool) {
	src := m.flags + render(pieces, vals)
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.staged[src]; ok {
		return d, true
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, false
	}
	d := newMatcher(re, m.flags, pieces)
	if m.staged == nil {
		m.staged = make(map[string]*Matcher)
	}
	m.staged[src] = d
	return d, true
}

// window runs the expression over line[lo:hi] with one rune of context
// on each side that is cut off.
func (m *Matcher) window(line string, lo, hi int, anchored bool) (Match, bool) {
	left, right := 0, 0
	if lo > 0 {
		_, left = utf8.DecodeLastRuneInString(line[:lo])
	}
	if hi < len(line) {
		_, right = utf8.DecodeRuneInString(line[hi:])
	}
	w := m.windowRE(windowKey{left: left > 0, right: right > 0, anchored: anchored})
	base := lo - left
	loc := w.re.FindStringSubmatchIndex(line[base : hi+right])
	if loc == nil {
		return Match{}, false
	}
	out := Match{Start: base + loc[2*w.whole], End: base + loc[2*w.whole+1]}
	if anchored && out.Start != lo {
		return Match{}, false
	}
	for i, d := range m.defines {
		val := ""
		if idx := w.defs[i]; idx >= 0 && loc[2*idx] >= 0 {
			val = line[base+loc[2*idx] : base+loc[2*idx+1]]
		}
		out.Captures = append(out.Captures, Capture{Name: d.name, Value: val})
	}
	return out, true
}

func (m *Matcher) windowRE(key windowKey) *windowRE {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[key]; ok {
		return w
	}
	var sb strings.Builder
	if key.anchored {
		sb.WriteString(`\A`)
	}
	if key.left {
		sb.WriteString(`(?s:.)`)
	}
	sb.WriteString("(?P<" + wholeGroup + ">" + m.re.String() + ")")
	if key.right {
		sb.WriteString(`(?s:.)`)
	}
	// The source already compiled on its own, so wrapping it cannot fail.
	re := regexp.MustCompile(sb.String())
	w := &windowRE{re: re, whole: re.SubexpIndex(wholeGroup)}
	for _, d := range m.defines {
		w.defs = append(w.defs, re.SubexpIndex(d.sub))
	}
	if m.windows == nil {
		m.windows = make(map[windowKey]*windowRE)
	}
	m.windows[key] = w
	return w
}
