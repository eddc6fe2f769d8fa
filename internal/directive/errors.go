package directive

import "fmt"

// ErrorKind classifies malformed directive syntax.
type ErrorKind uint8

const (
	// ErrUnknownSuffix: "CHECK-NXT:".
	ErrUnknownSuffix ErrorKind = iota + 1
	// ErrMissingColon: "CHECK-NEXT foo".
	ErrMissingColon
	// ErrEmptyPattern: "CHECK:" with nothing after it.
	ErrEmptyPattern
	// ErrNoPreviousMatch: NEXT or SAME before any anchor.
	ErrNoPreviousMatch
	ErrBadOptions
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownSuffix:
		return "unknown directive suffix"
	case ErrMissingColon:
		return "missing ':' after directive"
	case ErrEmptyPattern:
		return "empty pattern"
	case ErrNoPreviousMatch:
		return "no previous match"
	case ErrBadOptions:
		return "bad options"
	default:
		return "parse error"
	}
}

// Error is a hard parse error. It aborts the run before matching.
type Error struct {
	Kind ErrorKind
	Line uint32 // 1-based, 0 for option errors
	Col  uint32 // 1-based
	Msg  string
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}
