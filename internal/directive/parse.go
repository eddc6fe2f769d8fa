package directive

import (
	"bytes"
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// Parse scans src for directives and returns them in source order.
// Lines without a directive are ignored. The first malformed directive
// aborts parsing with an *Error.
func Parse(src []byte, opts Options) ([]Directive, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, &Error{Kind: ErrBadOptions, Msg: err.Error()}
	}
	p := newParser(opts)

	var out []Directive
	lineNo := 0
	for len(src) > 0 {
		lineNo++
		var line []byte
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line, src = src[:i], src[i+1:]
		} else {
			line, src = src, nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})

		d, ok, err := p.scanLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if d.Kind == KindNext || d.Kind == KindSame {
			if !p.havePosition {
				return nil, &Error{
					Kind: ErrNoPreviousMatch,
					Line: d.Line,
					Col:  d.Col,
					Msg:  fmt.Sprintf("found '%s' without previous '%s: line", d.Label, d.Prefix),
				}
			}
		}
		if d.Kind.advancesPosition() {
			p.havePosition = true
		}
		out = append(out, d)
	}
	return out, nil
}

type candidate struct {
	text    string
	comment bool
}

type parser struct {
	opts         Options
	candidates   []candidate // longest first
	firstBytes   [256]bool
	havePosition bool
}

func newParser(opts Options) *parser {
	p := &parser{opts: opts}
	for _, pr := range opts.Prefixes {
		p.candidates = append(p.candidates, candidate{text: pr})
	}
	for _, pr := range opts.CommentPrefixes {
		p.candidates = append(p.candidates, candidate{text: pr, comment: true})
	}
	sort.SliceStable(p.candidates, func(i, j int) bool {
		return len(p.candidates[i].text) > len(p.candidates[j].text)
	})
	for _, c := range p.candidates {
		p.firstBytes[c.text[0]] = true
	}
	return p
}

// scanLine looks for the first prefix occurrence on the line that forms a
// directive or a comment marker.
func (p *parser) scanLine(line []byte, lineNo int) (Directive, bool, error) {
	for i := 0; i < len(line); i++ {
		if !p.firstBytes[line[i]] {
			continue
		}
		if i > 0 && isWordByte(line[i-1]) {
			continue
		}
		for _, c := range p.candidates {
			if !bytes.HasPrefix(line[i:], []byte(c.text)) {
				continue
			}
			rest := line[i+len(c.text):]
			if c.comment {
				if len(rest) > 0 && rest[0] == ':' {
					return Directive{}, false, nil
				}
				continue
			}
			d, ok, err := p.directiveAt(line, i, c.text, rest, lineNo)
			if err != nil || ok {
				return d, ok, err
			}
		}
	}
	return Directive{}, false, nil
}

func (p *parser) directiveAt(line []byte, at int, prefix string, rest []byte, lineNo int) (Directive, bool, error) {
	kind := KindMatch
	spelledLen := len(prefix)
	switch {
	case len(rest) > 0 && rest[0] == ':':
	case len(rest) > 0 && rest[0] == '-':
		n := 1
		for n < len(rest) && isSuffixByte(rest[n]) {
			n++
		}
		suffix := string(rest[1:n])
		colon := n < len(rest) && rest[n] == ':'
		k, known := kindFromSuffix(suffix)
		switch {
		case known && colon:
			kind = k
			spelledLen += n
			rest = rest[n:]
		case known:
			return Directive{}, false, p.errorAt(ErrMissingColon, lineNo, at,
				fmt.Sprintf("'%s-%s' must be followed by ':'", prefix, suffix))
		case colon && suffix != "":
			return Directive{}, false, p.errorAt(ErrUnknownSuffix, lineNo, at,
				fmt.Sprintf("unsupported directive '%s-%s'", prefix, suffix))
		default:
			return Directive{}, false, nil
		}
	default:
		return Directive{}, false, nil
	}

	// rest starts with ':'
	patStart := at + spelledLen + 1
	pat := line[patStart:]
	if len(pat) > 0 && pat[0] == ' ' {
		pat = pat[1:]
		patStart++
	}
	if len(bytes.TrimSpace(pat)) == 0 {
		return Directive{}, false, p.errorAt(ErrEmptyPattern, lineNo, at,
			fmt.Sprintf("found empty pattern in '%s:'", kind.Spell(prefix)))
	}

	d := Directive{
		Kind:       kind,
		Prefix:     prefix,
		Label:      kind.Spell(prefix),
		Pattern:    string(pat),
		Line:       toU32(lineNo),
		Col:        toU32(at + 1),
		PatternCol: toU32(patStart + 1),
	}
	if kind == KindDAG {
		d.Window = p.opts.DAGWindow
	}
	return d, true, nil
}

func (p *parser) errorAt(kind ErrorKind, lineNo, at int, msg string) *Error {
	return &Error{Kind: kind, Line: toU32(lineNo), Col: toU32(at + 1), Msg: msg}
}

func isWordByte(b byte) bool {
	return b == '_' || b == '-' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isSuffixByte(b byte) bool {
	return ('A' <= b && b <= 'Z') || ('a' <= b && b <= 'z') || ('0' <= b && b <= '9')
}

func toU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("position overflow: %w", err))
	}
	return v
}
