package pattern

import "strings"

// Whitespace selects how horizontal whitespace is compared.
type Whitespace uint8

const (
	// WhitespaceCollapse turns runs of spaces and tabs into one space.
	WhitespaceCollapse Whitespace = iota
	// WhitespaceExact compares whitespace byte for byte.
	WhitespaceExact
)

func (w Whitespace) String() string {
	if w == WhitespaceExact {
		return "exact"
	}
	return "collapse"
}

// ParseWhitespace accepts "collapse" or "exact".
func ParseWhitespace(s string) (Whitespace, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "collapse":
		return WhitespaceCollapse, true
	case "exact", "strict":
		return WhitespaceExact, true
	default:
		return WhitespaceCollapse, false
	}
}

// Normalize applies the policy to one line of text.
func (w Whitespace) Normalize(s string) string {
	if w == WhitespaceExact || strings.IndexByte(s, '\t') < 0 && !strings.Contains(s, "  ") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	inRun := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' {
			if !inRun {
				sb.WriteByte(' ')
			}
			inRun = true
			continue
		}
		inRun = false
		sb.WriteByte(c)
	}
	return sb.String()
}
