package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Directive syntax
	DirInfo            Code = 1000
	DirUnknownKind     Code = 1001
	DirMissingColon    Code = 1002
	DirEmptyPattern    Code = 1003
	DirNoPreviousMatch Code = 1004
	DirNoDirectives    Code = 1005

	// Pattern compilation
	PatInfo         Code = 2000
	PatUnterminated Code = 2001
	PatBadRegex     Code = 2002
	PatDefInNot     Code = 2003
	PatUndefinedVar Code = 2004
	PatBadName      Code = 2005
	PatBadLineExpr  Code = 2006

	// Matching
	MatInfo           Code = 3000
	MatNotFound       Code = 3001
	MatForbidden      Code = 3002
	MatNotOnNextLine  Code = 3003
	MatNotOnSameLine  Code = 3004
	MatTrailingOutput Code = 3005
	MatUndefinedVar   Code = 3006
	MatLabelNotFound  Code = 3007

	// Configuration
	CfgInfo          Code = 4000
	CfgInvalidOption Code = 4001
	CfgBadManifest   Code = 4002

	// I/O
	IOInfo          Code = 5000
	IOLoadFileError Code = 5001

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:        "Unknown error",
		DirInfo:            "Directive information",
		DirUnknownKind:     "Unknown directive kind",
		DirMissingColon:    "Directive is missing ':'",
		DirEmptyPattern:    "Directive has an empty pattern",
		DirNoPreviousMatch: "Directive needs a previous match",
		DirNoDirectives:    "No directives found",
		PatInfo:            "Pattern information",
		PatUnterminated:    "Unterminated pattern token",
		PatBadRegex:        "Invalid regular expression",
		PatDefInNot:        "Variable defined in a NOT directive",
		PatUndefinedVar:    "Reference to undefined variable",
		PatBadName:         "Invalid variable name",
		PatBadLineExpr:     "Invalid @LINE expression",
		MatInfo:            "Match information",
		MatNotFound:        "Expected pattern not found",
		MatForbidden:       "Forbidden pattern found",
		MatNotOnNextLine:   "Pattern is not on the next line",
		MatNotOnSameLine:   "Pattern is not on the same line",
		MatTrailingOutput:  "Unconsumed trailing output",
		MatUndefinedVar:    "Variable undefined at match time",
		MatLabelNotFound:   "Label not found",
		CfgInfo:            "Configuration information",
		CfgInvalidOption:   "Invalid option",
		CfgBadManifest:     "Invalid manifest",
		IOInfo:             "I/O information",
		IOLoadFileError:    "I/O load file error",
		ObsInfo:            "Observability information",
		ObsTimings:         "Phase timings",
	}
)

// ID returns the stable short identifier, e.g. "MAT3001".
func (c Code) ID() string {
	if c == UnknownCode {
		return "E0000"
	}
	ic := int(c)
	switch ic / 1000 {
	case 1:
		return fmt.Sprintf("DIR%04d", ic)
	case 2:
		return fmt.Sprintf("PAT%04d", ic)
	case 3:
		return fmt.Sprintf("MAT%04d", ic)
	case 4:
		return fmt.Sprintf("CFG%04d", ic)
	case 5:
		return fmt.Sprintf("IO%04d", ic)
	case 6:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	if desc, ok := codeDescription[c]; ok {
		return desc
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
