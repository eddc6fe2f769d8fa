package pattern

import "fmt"

// CheckReferences walks the patterns in directive order and rejects any
// reference to a name that no earlier directive (or earlier segment of the
// same pattern) defines.
func CheckReferences(patterns []*Pattern) error {
	declared := make(map[string]struct{})
	for _, p := range patterns {
		if p == nil {
			continue
		}
		for _, s := range p.Segments {
			switch s.Kind {
			case SegDefine:
				declared[s.Name] = struct{}{}
			case SegRef:
				if _, ok := declared[s.Name]; !ok {
					return &Error{
						Kind: ErrUndefined,
						Line: p.Directive.Line,
						Col:  s.Col,
						Name: s.Name,
						Msg:  fmt.Sprintf("use of undefined variable %q in %s", s.Name, p.Directive.Label),
					}
				}
			}
		}
	}
	return nil
}
