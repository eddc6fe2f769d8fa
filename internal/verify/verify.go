// Package verify is the entry point of a verification run: parse the
// annotation, compile its patterns, run the engine and classify the result.
package verify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"linecheck/internal/diag"
	"linecheck/internal/directive"
	"linecheck/internal/match"
	"linecheck/internal/observ"
	"linecheck/internal/pattern"
	"linecheck/internal/source"
	"linecheck/internal/trace"
)

// Verify checks output against the directives found in annotation.
func Verify(annotation, output string, opts Options) Result {
	return VerifyContext(context.Background(), annotation, output, opts)
}

// VerifyContext is Verify with a context carrying the tracer.
func VerifyContext(ctx context.Context, annotation, output string, opts Options) Result {
	fs := source.NewFileSet()
	annID, outID := AddTexts(fs, annotation, output)
	return VerifyFiles(ctx, fs, annID, outID, opts)
}

// AddTexts registers in-memory annotation and output texts with fs.
func AddTexts(fs *source.FileSet, annotation, output string) (annID, outID source.FileID) {
	annID, _ = fs.LoadReader("<annotation>", strings.NewReader(annotation), 0)
	outID, _ = fs.LoadReader("<output>", strings.NewReader(output), source.FileOutput)
	return annID, outID
}

// VerifyFiles runs the check on two files already held by fs.
func VerifyFiles(ctx context.Context, fs *source.FileSet, annID, outID source.FileID, opts Options) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	ann, out := fs.Get(annID), fs.Get(outID)
	if ann == nil || out == nil {
		return failed(&Failure{Kind: ParseError, Code: diag.IOLoadFileError, Message: "verify: unknown file id"})
	}

	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeRun, "verify", trace.CurrentSpan(ctx))
	span.WithExtra("annotation", ann.Path).WithExtra("output", out.Path)
	ctx = trace.WithSpan(ctx, span)

	timer := observ.NewTimer()
	res := run(ctx, timer, ann, out, opts)
	res.Timings = timer.Report()

	span.WithExtra("kind", res.Kind.String()).
		WithExtra("satisfied", strconv.Itoa(res.Satisfied)).
		End(resultDetail(res))
	return res
}

func run(ctx context.Context, timer *observ.Timer, ann, out *source.File, opts Options) Result {
	if err := opts.Validate(); err != nil {
		return failed(&Failure{Kind: ParseError, Code: diag.CfgInvalidOption, Message: "invalid options: " + err.Error()})
	}
	tr := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx)

	idx := timer.Begin("parse")
	ps := trace.Begin(tr, trace.ScopePhase, "parse", parent)
	ds, err := directive.Parse(ann.Content, opts.directiveOptions())
	ps.WithExtra("directives", strconv.Itoa(len(ds))).End("")
	timer.End(idx, strconv.Itoa(len(ds))+" directives")
	if err != nil {
		return failed(fromDirectiveError(err))
	}
	if len(ds) == 0 {
		return failed(&Failure{
			Kind:    NoDirectivesFound,
			Code:    diag.DirNoDirectives,
			Message: fmt.Sprintf("no %s directives found in annotation", strings.Join(prefixesOf(opts), ", ")),
		})
	}

	idx = timer.Begin("compile")
	cs := trace.Begin(tr, trace.ScopePhase, "compile", parent)
	patterns, implicit, f := compileAll(ds, opts)
	cs.End("")
	timer.End(idx, "")
	if f != nil {
		return failed(f)
	}

	idx = timer.Begin("match")
	outcome, err := match.Run(ctx, ds, patterns, out.Lines(), match.Options{
		Whitespace:             opts.Whitespace,
		NormalizeUnicode:       opts.NormalizeUnicode,
		RequireFullConsumption: opts.RequireFullConsumption,
		ImplicitNot:            implicit,
	})
	timer.End(idx, "")
	if err != nil {
		return failed(fromMatchError(err, ds))
	}
	return Result{
		Kind:      NoFailure,
		Satisfied: outcome.Satisfied,
		Bindings:  outcome.Bindings(),
		Matches:   outcome.Matches,
	}
}

func compileAll(ds []directive.Directive, opts Options) ([]*pattern.Pattern, []*pattern.Pattern, *Failure) {
	popts := opts.patternOptions()
	patterns := make([]*pattern.Pattern, len(ds))
	for i, d := range ds {
		p, err := pattern.Compile(d, popts)
		if err != nil {
			return nil, nil, fromPatternError(err, &ds[i])
		}
		patterns[i] = p
	}
	if err := pattern.CheckReferences(patterns); err != nil {
		var perr *pattern.Error
		var at *directive.Directive
		if errors.As(err, &perr) {
			for i := range ds {
				if ds[i].Line == perr.Line {
					at = &ds[i]
					break
				}
			}
		}
		return nil, nil, fromPatternError(err, at)
	}

	implicit := make([]*pattern.Pattern, 0, len(opts.ImplicitNot))
	for _, text := range opts.ImplicitNot {
		d := directive.Directive{Kind: directive.KindNot, Label: "implicit-check-not", Pattern: text}
		p, err := pattern.Compile(d, popts)
		if err != nil {
			f := fromPatternError(err, nil)
			f.Message = "--implicit-check-not " + strconv.Quote(text) + ": " + f.Message
			return nil, nil, f
		}
		if refs := p.Refs(); len(refs) > 0 {
			return nil, nil, &Failure{
				Kind:     CompileError,
				Code:     diag.PatUndefinedVar,
				Variable: refs[0],
				Message:  fmt.Sprintf("--implicit-check-not %q: cannot reference variable %q", text, refs[0]),
			}
		}
		implicit = append(implicit, p)
	}
	return patterns, implicit, nil
}

func failed(f *Failure) Result {
	return Result{Kind: f.Kind, Failure: f}
}

func prefixesOf(opts Options) []string {
	if len(opts.Prefixes) == 0 {
		return directive.DefaultOptions().Prefixes
	}
	return opts.Prefixes
}

func resultDetail(r Result) string {
	if r.Failure == nil {
		return "ok"
	}
	return r.Failure.Message
}
