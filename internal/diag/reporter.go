package diag

import "linecheck/internal/source"

// Reporter — минимальный контракт получения диагностик.
type Reporter interface {
	Report(d *Diagnostic)
}

// BagReporter — адаптер, который пишет в *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d *Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(*Diagnostic) {}

// ReportError builds and emits an error diagnostic in one call.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *Diagnostic {
	d := NewError(code, primary, msg)
	if r != nil {
		r.Report(d)
	}
	return d
}
