package match

import (
	"golang.org/x/text/unicode/norm"

	"linecheck/internal/pattern"
)

// Options configures one run of the engine.
type Options struct {
	Whitespace pattern.Whitespace
	// NormalizeUnicode converts every output line to NFC before matching.
	NormalizeUnicode bool
	// RequireFullConsumption rejects non-blank output after the furthest match.
	RequireFullConsumption bool
	// ImplicitNot patterns are checked over every span between anchors.
	ImplicitNot []*pattern.Pattern
	// NoHints disables the near-miss search on PatternNotFound.
	NoHints bool
}

func (o Options) normalize(line string) string {
	if o.NormalizeUnicode {
		line = norm.NFC.String(line)
	}
	return o.Whitespace.Normalize(line)
}
