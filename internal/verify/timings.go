package verify

import (
	"encoding/json"
	"fmt"

	"linecheck/internal/diag"
	"linecheck/internal/observ"
	"linecheck/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// TimingDiagnostic turns the timings of r into an informational diagnostic
// anchored at the start of the annotation. The note carries the report as
// JSON for machine consumers.
func (r Result) TimingDiagnostic(fs *source.FileSet, annID source.FileID) *diag.Diagnostic {
	payload := timingPayload{
		Kind:    "verify",
		TotalMS: r.Timings.TotalMS,
		Phases:  r.Timings.Phases,
	}
	if f := fs.Get(annID); f != nil {
		payload.Path = f.Path
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)

	data, err := json.Marshal(payload)
	if err != nil {
		return diag.New(diag.SevInfo, diag.ObsTimings, source.Span{File: annID}, msg)
	}
	return diag.New(diag.SevInfo, diag.ObsTimings, source.Span{File: annID}, msg).
		WithNote(source.Span{File: annID}, string(data))
}
