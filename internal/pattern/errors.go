package pattern

import "fmt"

// ErrorKind classifies compile-time pattern errors.
type ErrorKind uint8

const (
	ErrUnterminated ErrorKind = iota + 1 // "[[" or "{{" without its closer
	ErrBadToken                          // malformed variable token
	ErrBadRegex                          // RE2 rejected the expression
	ErrDefineInNot                       // [[X:re]] inside a NOT directive
	ErrBadLineExpr                       // [[@FOO]], [[@LINE*2]]
	ErrUndefined                         // reference with no earlier definition
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnterminated:
		return "unterminated token"
	case ErrBadToken:
		return "malformed variable token"
	case ErrBadRegex:
		return "invalid regular expression"
	case ErrDefineInNot:
		return "definition in negative directive"
	case ErrBadLineExpr:
		return "invalid @LINE expression"
	case ErrUndefined:
		return "undefined variable"
	default:
		return "pattern error"
	}
}

// Error is a pattern compile error positioned in the annotation source.
type Error struct {
	Kind ErrorKind
	Line uint32
	Col  uint32
	Name string // variable name for ErrUndefined and ErrDefineInNot
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}
