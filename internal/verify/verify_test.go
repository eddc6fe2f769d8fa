package verify

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"linecheck/internal/diag"
	"linecheck/internal/pattern"
	"linecheck/internal/source"
)

func TestVerifyKinds(t *testing.T) {
	tests := []struct {
		name       string
		annotation string
		output     string
		opts       Options
		want       FailureKind
	}{
		{"no directives", "just prose\n", "anything\n", Options{}, NoDirectivesFound},
		{"empty annotation", "", "", Options{}, NoDirectivesFound},
		{"ordered", "CHECK: a\nCHECK: c\n", "a\nb\nc\n", Options{}, NoFailure},
		{"adjacent", "CHECK: a\nCHECK-NEXT: b\n", "a\nb\n", Options{}, NoFailure},
		{"next skips", "CHECK: a\nCHECK-NEXT: c\n", "a\nb\nc\n", Options{}, PatternNotFound},
		{"not in span", "CHECK: a\nCHECK-NOT: x\nCHECK: c\n", "a\nb x b\nc\n", Options{}, ForbiddenPatternFound},
		{"parse error", "CHECK-NXT: a\n", "a\n", Options{}, ParseError},
		{"bad regex", "CHECK: {{[}}\n", "a\n", Options{}, ParseError},
		{"undefined ref", "CHECK: [[X]]\nCHECK: [[X:a]]\n", "a\na\n", Options{}, CompileError},
		{"trailing allowed", "CHECK: a\n", "a\nb\n", Options{}, NoFailure},
		{"trailing rejected", "CHECK: a\n", "a\nb\n", Options{RequireFullConsumption: true}, TrailingOutput},
		{"bad prefix", "CHECK: a\n", "a\n", Options{Prefixes: []string{"9X"}}, ParseError},
		{"case sensitive", "CHECK: Hello\n", "hello\n", Options{}, PatternNotFound},
		{"ignore case", "CHECK: Hello\n", "hello\n", Options{IgnoreCase: true}, NoFailure},
		{"regex mode", "CHECK: a.c\n", "abc\n", Options{RegexMode: true}, NoFailure},
		{"literal mode", "CHECK: a.c\n", "abc\n", Options{}, PatternNotFound},
		{"implicit not", "CHECK: done\n", "warning\ndone\n", Options{ImplicitNot: []string{"warning"}}, ForbiddenPatternFound},
		{"implicit ref", "CHECK: a\n", "a\n", Options{ImplicitNot: []string{"[[X]]"}}, CompileError},
		{"custom prefix", "; FOO: a\n; CHECK: nope\n", "a\n", Options{Prefixes: []string{"FOO"}}, NoFailure},
		{"crlf input", "CHECK: a\r\nCHECK-NEXT: b\r\n", "a\r\nb\r\n", Options{}, NoFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Verify(tt.annotation, tt.output, tt.opts)
			if res.Kind != tt.want {
				msg := ""
				if res.Failure != nil {
					msg = res.Failure.Message
				}
				t.Fatalf("Kind = %s, want %s (%s)", res.Kind, tt.want, msg)
			}
			if res.OK() != (res.Failure == nil) {
				t.Errorf("OK() and Failure disagree: %+v", res)
			}
		})
	}
}

func TestVerifyScenarioReturn41(t *testing.T) {
	res := Verify("CHECK: return 41", "  return 41\n", DefaultOptions())
	if !res.OK() || res.Satisfied != 1 {
		t.Fatalf("expected success with 1 satisfied, got %+v", res)
	}
}

func TestVerifyScenarioVariables(t *testing.T) {
	ann := "CHECK: [[VAL:[0-9]+]]\nCHECK: got {{VAL}}"
	res := Verify(ann, "42\ngot 42\n", DefaultOptions())
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res.Failure)
	}
	if diff := cmp.Diff(map[string]string{"VAL": "42"}, res.Bindings); diff != "" {
		t.Errorf("bindings (-want +got):\n%s", diff)
	}

	res = Verify(ann, "42\ngot 43\n", DefaultOptions())
	if res.Kind != PatternNotFound {
		t.Fatalf("Kind = %s, want PatternNotFound", res.Kind)
	}
	if res.Failure.AnnotationLine != 2 || res.Failure.LastMatch != 1 {
		t.Errorf("AnnotationLine/LastMatch = %d/%d, want 2/1", res.Failure.AnnotationLine, res.Failure.LastMatch)
	}
	if !strings.Contains(res.Failure.Context, "got 43") {
		t.Errorf("context should show the unmatched remainder:\n%s", res.Failure.Context)
	}
}

func TestVerifyShadowing(t *testing.T) {
	ann := "CHECK: def [[X:[0-9]+]]\nCHECK: def [[X:[0-9]+]]\nCHECK: use [[X]]\n"
	if res := Verify(ann, "def 41\ndef 42\nuse 42\n", Options{}); !res.OK() {
		t.Fatalf("expected success: %+v", res.Failure)
	}
	if res := Verify(ann, "def 41\ndef 42\nuse 41\n", Options{}); res.Kind != PatternNotFound {
		t.Fatalf("Kind = %s, want PatternNotFound", res.Kind)
	}
}

func TestVerifyIdempotent(t *testing.T) {
	ann := "CHECK-LABEL: fn\nCHECK-DAG: [[A:[a-z]+]]=1\nCHECK-DAG: b=2\nCHECK-NOT: panic\nCHECK: end [[A]]\n"
	out := "fn\nb=2\nz=1\nend z\n"
	first := Verify(ann, out, Options{})
	second := Verify(ann, out, Options{})
	if !first.Equal(second) {
		t.Fatalf("results differ:\n%s", cmp.Diff(plainResult(first), plainResult(second)))
	}
	if !first.OK() {
		t.Fatalf("expected success: %+v", first.Failure)
	}

	bad := Verify(ann, "fn\nb=2\nz=1\npanic\nend z\n", Options{})
	again := Verify(ann, "fn\nb=2\nz=1\npanic\nend z\n", Options{})
	if !bad.Equal(again) || bad.Kind != ForbiddenPatternFound {
		t.Fatalf("failing results not identical or wrong kind: %s", bad.Kind)
	}
}

func TestResultEqualSelf(t *testing.T) {
	for _, out := range []string{"a\nb\n", "a\n"} {
		r := Verify("CHECK: [[X:a]]\nCHECK: b\n", out, Options{})
		if !r.Equal(r) {
			t.Errorf("%q: result not equal to itself: %+v", out, r)
		}
	}
	ok := Verify("CHECK: a\n", "a\n", Options{})
	bad := Verify("CHECK: a\n", "b\n", Options{})
	if ok.Equal(bad) {
		t.Error("success and failure compare equal")
	}
}

func TestVerifyInPatternRefUsesCapturedText(t *testing.T) {
	res := Verify("CHECK: [[X:[0-9]+]] and [[X]]\n", "12 and 123\n", Options{})
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res.Failure)
	}
	if res.Bindings["X"] != "12" {
		t.Errorf("X = %q, want 12", res.Bindings["X"])
	}
}

func TestVerifySameLineStartAnchor(t *testing.T) {
	res := Verify("CHECK: a\nCHECK-SAME: {{^}}b\n", "ab\n", Options{})
	if res.Kind != PatternNotFound {
		t.Fatalf("Kind = %s, want PatternNotFound", res.Kind)
	}
}

func TestVerifyCompileErrorNamesVariable(t *testing.T) {
	res := Verify("CHECK: a\nCHECK: [[MISSING]]\n", "a\n", Options{})
	if res.Kind != CompileError {
		t.Fatalf("Kind = %s, want CompileError", res.Kind)
	}
	if res.Failure.Variable != "MISSING" || res.Failure.AnnotationLine != 2 {
		t.Errorf("Variable/AnnotationLine = %q/%d", res.Failure.Variable, res.Failure.AnnotationLine)
	}
	if res.Failure.Code != diag.PatUndefinedVar {
		t.Errorf("Code = %s, want %s", res.Failure.Code.ID(), diag.PatUndefinedVar.ID())
	}
}

func TestVerifyTimingsRecorded(t *testing.T) {
	res := Verify("CHECK: a\n", "a\n", Options{})
	names := make([]string, 0, len(res.Timings.Phases))
	for _, p := range res.Timings.Phases {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"parse", "compile", "match"}, names); diff != "" {
		t.Errorf("phases (-want +got):\n%s", diff)
	}
}

func TestVerifyInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := VerifyContext(ctx, "CHECK: a\n", "a\n", Options{})
	if res.Kind != Interrupted || res.ExitCode() != ExitInternal {
		t.Fatalf("Kind/ExitCode = %s/%d", res.Kind, res.ExitCode())
	}
}

func TestExitCodes(t *testing.T) {
	want := map[FailureKind]int{
		NoFailure:             0,
		PatternNotFound:       1,
		ForbiddenPatternFound: 2,
		TrailingOutput:        3,
		NoDirectivesFound:     4,
		ParseError:            5,
		CompileError:          6,
		UndefinedVariable:     7,
		Interrupted:           ExitInternal,
	}
	for k, code := range want {
		if got := k.ExitCode(); got != code {
			t.Errorf("%s.ExitCode() = %d, want %d", k, got, code)
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if err := (Options{}).Validate(); err != nil {
		t.Fatalf("zero options invalid: %v", err)
	}
	bad := []Options{
		{Prefixes: []string{"A", "A"}},
		{Prefixes: []string{""}},
		{Whitespace: pattern.Whitespace(9)},
		{ImplicitNot: []string{"  "}},
		{DAGWindow: -2},
	}
	for _, o := range bad {
		if err := o.Validate(); err == nil {
			t.Errorf("expected error for %+v", o)
		}
	}
	if !DefaultOptions().CaseSensitive() {
		t.Error("defaults must be case sensitive")
	}
}

func TestResultDiagnostic(t *testing.T) {
	fs := source.NewFileSet()
	annID, outID := AddTexts(fs, "CHECK: begin\nCHECK-NOT: oops\nCHECK: end\n", "begin\n  oops\nend\n")
	res := VerifyFiles(context.Background(), fs, annID, outID, Options{})
	if res.Kind != ForbiddenPatternFound {
		t.Fatalf("Kind = %s", res.Kind)
	}
	d := res.Diagnostic(fs, annID, outID)
	if d == nil {
		t.Fatal("expected diagnostic")
	}
	if d.Code != diag.MatForbidden || d.Severity != diag.SevError {
		t.Errorf("Code/Severity = %s/%s", d.Code.ID(), d.Severity)
	}
	start, _ := fs.Resolve(d.Primary)
	if start.Line != 2 {
		t.Errorf("primary line = %d, want 2", start.Line)
	}
	if len(d.Notes) == 0 {
		t.Fatal("expected notes into the output")
	}
	note, _ := fs.Resolve(d.Notes[0].Span)
	if d.Notes[0].Span.File != outID || note.Line != 2 {
		t.Errorf("first note at file %d line %d, want output line 2", d.Notes[0].Span.File, note.Line)
	}

	ok := Verify("CHECK: a\n", "a\n", Options{})
	if ok.Diagnostic(fs, annID, outID) != nil {
		t.Error("success must not produce a diagnostic")
	}
}
