package verify

import (
	"encoding/json"
	"strings"
	"testing"

	"linecheck/internal/diag"
	"linecheck/internal/source"
)

func TestTimingDiagnostic(t *testing.T) {
	fs := source.NewFileSet()
	annID, outID := AddTexts(fs, "CHECK: a\n", "a\n")
	res := VerifyFiles(t.Context(), fs, annID, outID, DefaultOptions())

	d := res.TimingDiagnostic(fs, annID)
	if d.Code != diag.ObsTimings || d.Severity != diag.SevInfo {
		t.Fatalf("unexpected diagnostic: %+v", d)
	}
	if !strings.HasPrefix(d.Message, "timings (verify): total ") {
		t.Errorf("message = %q", d.Message)
	}
	if len(d.Notes) != 1 {
		t.Fatalf("expected one note, got %d", len(d.Notes))
	}
	var payload timingPayload
	if err := json.Unmarshal([]byte(d.Notes[0].Msg), &payload); err != nil {
		t.Fatalf("note is not JSON: %v", err)
	}
	if len(payload.Phases) != 3 || payload.Phases[0].Name != "parse" {
		t.Errorf("unexpected phases: %+v", payload.Phases)
	}
	if payload.Path != "<annotation>" {
		t.Errorf("path = %q", payload.Path)
	}
}
