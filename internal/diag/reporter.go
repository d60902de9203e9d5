package diag

import "fmt"

// Reporter: минимальный контракт получения диагностик.
type Reporter interface {
	Report(code Code, sev Severity, primary Span, msg string)
}

// Errorf is a shortcut for SevError diagnostics.
func Errorf(r Reporter, code Code, primary Span, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(code, SevError, primary, fmt.Sprintf(format, args...))
}

// Warnf is a shortcut for SevWarning diagnostics.
func Warnf(r Reporter, code Code, primary Span, format string, args ...any) {
	if r == nil {
		return
	}
	r.Report(code, SevWarning, primary, fmt.Sprintf(format, args...))
}

// BagReporter: адаптер, который пишет в *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary Span, msg string) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary})
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, Span, string) {}
