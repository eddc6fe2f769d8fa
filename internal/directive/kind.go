package directive

// Kind is the closed set of directive kinds.
type Kind uint8

const (
	// KindMatch finds the pattern anywhere at or after the cursor.
	KindMatch Kind = iota + 1
	// KindNext requires the pattern on the line right after the previous match.
	KindNext
	// KindNot forbids the pattern between the surrounding anchors.
	KindNot
	// KindSame requires the pattern on the previous match's line.
	KindSame
	// KindDAG matches in any order with its neighbouring DAG directives.
	KindDAG
	// KindLabel is a match that splits the output into independent blocks.
	KindLabel
)

var suffixes = [...]string{
	KindMatch: "",
	KindNext:  "NEXT",
	KindNot:   "NOT",
	KindSame:  "SAME",
	KindDAG:   "DAG",
	KindLabel: "LABEL",
}

// Suffix returns the spelled suffix without the leading dash ("" for KindMatch).
func (k Kind) Suffix() string {
	if k < KindMatch || k > KindLabel {
		return "?"
	}
	return suffixes[k]
}

// Spell returns the directive as written with the given prefix, e.g. "CHECK-NEXT".
func (k Kind) Spell(prefix string) string {
	if k == KindMatch {
		return prefix
	}
	return prefix + "-" + k.Suffix()
}

func (k Kind) String() string {
	return k.Spell("CHECK")
}

// IsAnchor reports whether the kind fixes a position in the output.
// Only NOT directives are not anchors.
func (k Kind) IsAnchor() bool {
	return k != KindNot
}

// advancesPosition reports whether a directive of this kind leaves a
// previous match that NEXT and SAME can refer to.
func (k Kind) advancesPosition() bool {
	switch k {
	case KindMatch, KindNext, KindSame, KindDAG, KindLabel:
		return true
	default:
		return false
	}
}

func kindFromSuffix(s string) (Kind, bool) {
	for k := KindNext; k <= KindLabel; k++ {
		if suffixes[k] == s {
			return k, true
		}
	}
	return 0, false
}
