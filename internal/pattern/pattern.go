package pattern

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"linecheck/internal/directive"
)

// SegmentKind tags a Segment.
type SegmentKind uint8

const (
	SegLiteral SegmentKind = iota + 1
	SegRegex
	SegDefine
	SegRef
)

func (k SegmentKind) String() string {
	switch k {
	case SegLiteral:
		return "literal"
	case SegRegex:
		return "regex"
	case SegDefine:
		return "define"
	case SegRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Segment is one piece of a compiled pattern.
type Segment struct {
	Kind SegmentKind
	Text string // literal text (SegLiteral) or expression (SegRegex, SegDefine)
	Name string // variable name (SegDefine, SegRef)
	Col  uint32 // 1-based column in the annotation source
}

// Options controls compilation.
type Options struct {
	// RegexMode treats literal text as a regular expression as well.
	RegexMode bool
	// IgnoreCase prefixes assembled expressions with (?i).
	IgnoreCase bool
	// NormalizeUnicode converts literal text to NFC.
	NormalizeUnicode bool
}

// Pattern is the compiled form of one directive.
type Pattern struct {
	Directive directive.Directive
	Segments  []Segment
	opts      Options

	mu    sync.Mutex
	cache map[string]*Matcher
}

// Compile tokenizes the directive pattern and validates every regular
// expression it contains.
func Compile(d directive.Directive, opts Options) (*Pattern, error) {
	p := &Pattern{Directive: d, opts: opts}
	sc := scanner{src: d.Pattern, d: d}
	segs, err := sc.scan()
	if err != nil {
		return nil, err
	}
	for i := range segs {
		s := &segs[i]
		switch s.Kind {
		case SegLiteral:
			if opts.NormalizeUnicode {
				s.Text = norm.NFC.String(s.Text)
			}
			if opts.RegexMode {
				if err := validateRegex(s.Text); err != nil {
					return nil, sc.errorAt(ErrBadRegex, s.Col, "", fmt.Sprintf("invalid regular expression %q: %v", s.Text, err))
				}
			}
		case SegRegex, SegDefine:
			if err := validateRegex(s.Text); err != nil {
				return nil, sc.errorAt(ErrBadRegex, s.Col, s.Name, fmt.Sprintf("invalid regular expression %q: %v", s.Text, err))
			}
			if s.Kind == SegDefine && d.Kind == directive.KindNot {
				return nil, sc.errorAt(ErrDefineInNot, s.Col, s.Name,
					fmt.Sprintf("variable %q cannot be defined in a %s directive", s.Name, d.Label))
			}
		}
	}
	p.Segments = mergeLiterals(segs)
	return p, nil
}

// String returns the raw pattern text.
func (p *Pattern) String() string { return p.Directive.Pattern }

// Refs returns the names this pattern references, in order.
func (p *Pattern) Refs() []string {
	var out []string
	for _, s := range p.Segments {
		if s.Kind == SegRef {
			out = append(out, s.Name)
		}
	}
	return out
}

// LiteralText joins the literal segments; used for near-miss hints.
func (p *Pattern) LiteralText() string {
	var sb strings.Builder
	for _, s := range p.Segments {
		if s.Kind == SegLiteral {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

func validateRegex(expr string) error {
	_, err := syntax.Parse(expr, syntax.Perl)
	return err
}

func mergeLiterals(segs []Segment) []Segment {
	out := segs[:0]
	for _, s := range segs {
		if s.Kind == SegLiteral && len(out) > 0 && out[len(out)-1].Kind == SegLiteral {
			out[len(out)-1].Text += s.Text
			continue
		}
		if s.Kind == SegLiteral && s.Text == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isIdent(s string) bool { return identRe.MatchString(s) }

type scanner struct {
	src string
	d   directive.Directive
}

func (sc *scanner) col(off int) uint32 {
	return sc.d.PatternCol + uint32(off) //nolint:gosec // pattern offsets are bounded by the line length
}

func (sc *scanner) errorAt(kind ErrorKind, col uint32, name, msg string) *Error {
	return &Error{Kind: kind, Line: sc.d.Line, Col: col, Name: name, Msg: msg}
}

func (sc *scanner) scan() ([]Segment, error) {
	var segs []Segment
	src := sc.src
	pos := 0
	litStart := 0
	flush := func(end int) {
		if end > litStart {
			segs = append(segs, Segment{Kind: SegLiteral, Text: src[litStart:end], Col: sc.col(litStart)})
		}
	}
	for pos < len(src) {
		switch {
		case strings.HasPrefix(src[pos:], "[["):
			end, ok := closeToken(src, pos+2, '[', ']')
			if !ok {
				return nil, sc.errorAt(ErrUnterminated, sc.col(pos), "", "unterminated variable token, missing ']]'")
			}
			flush(pos)
			seg, err := sc.variable(src[pos+2:end], pos)
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			pos = end + 2
			litStart = pos
		case strings.HasPrefix(src[pos:], "{{"):
			end, ok := closeToken(src, pos+2, '{', '}')
			if !ok {
				return nil, sc.errorAt(ErrUnterminated, sc.col(pos), "", "unterminated regex token, missing '}}'")
			}
			flush(pos)
			body := src[pos+2 : end]
			switch {
			case body == "":
				return nil, sc.errorAt(ErrBadToken, sc.col(pos), "", "empty regex token '{{}}'")
			case isIdent(body):
				segs = append(segs, Segment{Kind: SegRef, Name: body, Col: sc.col(pos)})
			default:
				segs = append(segs, Segment{Kind: SegRegex, Text: body, Col: sc.col(pos)})
			}
			pos = end + 2
			litStart = pos
		default:
			pos++
		}
	}
	flush(len(src))
	return segs, nil
}

// closeToken finds the closing pair of the token body starting at from.
// Nested open/close bytes are counted so "[[X:[a-z]]]" closes at the end;
// backslash escapes the following byte.
func closeToken(src string, from int, open, closer byte) (int, bool) {
	depth := 0
	for i := from; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case open:
			depth++
		case closer:
			if depth == 0 {
				if i+1 < len(src) && src[i+1] == closer {
					return i, true
				}
				continue
			}
			depth--
		}
	}
	return 0, false
}

func (sc *scanner) variable(body string, at int) (Segment, error) {
	col := sc.col(at)
	if strings.HasPrefix(body, "@") {
		text, err := sc.lineExpr(body[1:], col)
		if err != nil {
			return Segment{}, err
		}
		return Segment{Kind: SegLiteral, Text: text, Col: col}, nil
	}
	if name, expr, ok := strings.Cut(body, ":"); ok {
		if !isIdent(name) {
			return Segment{}, sc.errorAt(ErrBadToken, col, name, fmt.Sprintf("invalid variable name %q", name))
		}
		return Segment{Kind: SegDefine, Name: name, Text: expr, Col: col}, nil
	}
	if !isIdent(body) {
		return Segment{}, sc.errorAt(ErrBadToken, col, body, fmt.Sprintf("invalid variable reference %q", body))
	}
	return Segment{Kind: SegRef, Name: body, Col: col}, nil
}

// lineExpr folds "LINE", "LINE+N" and "LINE-N" to the directive line.
func (sc *scanner) lineExpr(expr string, col uint32) (string, error) {
	bad := func() error {
		return sc.errorAt(ErrBadLineExpr, col, "", fmt.Sprintf("invalid pseudo variable '@%s', expected @LINE, @LINE+N or @LINE-N", expr))
	}
	rest, ok := strings.CutPrefix(strings.TrimSpace(expr), "LINE")
	if !ok {
		return "", bad()
	}
	rest = strings.TrimSpace(rest)
	line := int64(sc.d.Line)
	if rest == "" {
		return strconv.FormatInt(line, 10), nil
	}
	sign := rest[0]
	if sign != '+' && sign != '-' {
		return "", bad()
	}
	n, err := strconv.ParseUint(strings.TrimSpace(rest[1:]), 10, 31)
	if err != nil {
		return "", bad()
	}
	if sign == '+' {
		line += int64(n)
	} else {
		line -= int64(n)
	}
	return strconv.FormatInt(line, 10), nil
}
