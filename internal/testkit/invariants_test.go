package testkit

import (
	"testing"

	"linecheck/internal/diag"
	"linecheck/internal/source"
	"linecheck/internal/verify"
)

func TestFailureDiagnosticsHoldInvariants(t *testing.T) {
	cases := []struct{ ann, out string }{
		{"CHECK: missing\n", "hello\n"},
		{"CHECK: a\nCHECK-NOT: b\nCHECK: c\n", "a\nb\nc\n"},
		{"CHECK: [[V]]\n", "x\n"},
		{"CHECK-SAME: a\n", "a\n"},
		{"no directives\n", ""},
	}
	for _, tc := range cases {
		fs := source.NewFileSet()
		annID, outID := verify.AddTexts(fs, tc.ann, tc.out)
		res := verify.VerifyFiles(t.Context(), fs, annID, outID, verify.DefaultOptions())
		d := res.Diagnostic(fs, annID, outID)
		if d == nil {
			t.Fatalf("%q: expected a failure, got %s", tc.ann, res.Kind)
		}
		if err := CheckDiagnosticInvariants(d, fs); err != nil {
			t.Fatalf("%q: %v", tc.ann, err)
		}
	}
}

func TestCheckDiagnosticInvariantsRejectsBadSpans(t *testing.T) {
	fs := source.NewFileSet()
	annID, outID := verify.AddTexts(fs, "CHECK: x\n", "y\n")

	outside := diag.NewError(diag.MatNotFound, source.Span{File: annID, Start: 0, End: 99}, "boom")
	if err := CheckDiagnosticInvariants(outside, fs); err == nil {
		t.Fatal("span beyond content accepted")
	}
	inOutput := diag.NewError(diag.MatNotFound, source.Span{File: outID}, "boom")
	if err := CheckDiagnosticInvariants(inOutput, fs); err == nil {
		t.Fatal("primary span in output accepted")
	}
}
