package verify

import (
	"context"
	"errors"

	"linecheck/internal/diag"
	"linecheck/internal/directive"
	"linecheck/internal/match"
	"linecheck/internal/pattern"
	"linecheck/internal/vars"
)

var directiveCodes = map[directive.ErrorKind]diag.Code{
	directive.ErrUnknownSuffix:   diag.DirUnknownKind,
	directive.ErrMissingColon:    diag.DirMissingColon,
	directive.ErrEmptyPattern:    diag.DirEmptyPattern,
	directive.ErrNoPreviousMatch: diag.DirNoPreviousMatch,
	directive.ErrBadOptions:      diag.CfgInvalidOption,
}

var patternCodes = map[pattern.ErrorKind]diag.Code{
	pattern.ErrUnterminated: diag.PatUnterminated,
	pattern.ErrBadToken:     diag.PatBadName,
	pattern.ErrBadRegex:     diag.PatBadRegex,
	pattern.ErrDefineInNot:  diag.PatDefInNot,
	pattern.ErrBadLineExpr:  diag.PatBadLineExpr,
	pattern.ErrUndefined:    diag.PatUndefinedVar,
}

var reasonCodes = map[match.Reason]diag.Code{
	match.ReasonNotFound:       diag.MatNotFound,
	match.ReasonNotOnNextLine:  diag.MatNotOnNextLine,
	match.ReasonNotOnSameLine:  diag.MatNotOnSameLine,
	match.ReasonLabelNotFound:  diag.MatLabelNotFound,
	match.ReasonForbidden:      diag.MatForbidden,
	match.ReasonTrailingOutput: diag.MatTrailingOutput,
	match.ReasonUndefined:      diag.MatUndefinedVar,
}

func fromDirectiveError(err error) *Failure {
	var derr *directive.Error
	if !errors.As(err, &derr) {
		return &Failure{Kind: ParseError, Code: diag.DirUnknownKind, Message: err.Error()}
	}
	return &Failure{
		Kind:           ParseError,
		Code:           directiveCodes[derr.Kind],
		Message:        derr.Msg,
		Line:           int(derr.Line),
		Col:            int(derr.Col),
		AnnotationLine: int(derr.Line),
		AnnotationCol:  int(derr.Col),
	}
}

func fromPatternError(err error, d *directive.Directive) *Failure {
	f := &Failure{Kind: ParseError, Code: diag.PatBadRegex, Message: err.Error()}
	var perr *pattern.Error
	var uerr *vars.UndefinedError
	switch {
	case errors.As(err, &perr):
		f.Code = patternCodes[perr.Kind]
		f.Message = perr.Msg
		f.Line, f.Col = int(perr.Line), int(perr.Col)
		f.AnnotationLine, f.AnnotationCol = f.Line, f.Col
		if perr.Kind == pattern.ErrUndefined {
			f.Kind = CompileError
			f.Variable = perr.Name
		}
	case errors.As(err, &uerr):
		f.Kind = UndefinedVariable
		f.Code = diag.MatUndefinedVar
		f.Variable = uerr.Name
	}
	if d != nil {
		f.Directive = d.String()
		if f.AnnotationLine == 0 {
			f.AnnotationLine, f.AnnotationCol = int(d.Line), int(d.Col)
		}
	}
	return f
}

func fromMatchError(err error, ds []directive.Directive) *Failure {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: Interrupted, Code: diag.UnknownCode, Message: "verification interrupted: " + err.Error()}
	}
	var mf *match.Failure
	if !errors.As(err, &mf) {
		return fromPatternError(err, nil)
	}
	f := &Failure{
		Code:       reasonCodes[mf.Reason],
		Message:    mf.Message,
		Context:    mf.Context,
		Line:       mf.Line,
		Col:        mf.Col,
		OutputLine: mf.OutputLine,
		LastMatch:  mf.LastMatch,
		FoundAt:    mf.FoundAt,
		Hint:       mf.Hint,
		HintText:   mf.HintText,
		Variable:   mf.Variable,
		Reason:     mf.Reason,
	}
	switch mf.Reason {
	case match.ReasonForbidden:
		f.Kind = ForbiddenPatternFound
	case match.ReasonTrailingOutput:
		f.Kind = TrailingOutput
	case match.ReasonUndefined:
		f.Kind = UndefinedVariable
	default:
		f.Kind = PatternNotFound
	}
	if mf.Directive >= 0 && mf.Directive < len(ds) {
		d := ds[mf.Directive]
		f.Directive = d.String()
		f.AnnotationLine = int(d.Line)
		f.AnnotationCol = int(d.Col)
	}
	return f
}
