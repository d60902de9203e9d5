package diag

import "fmt"

// Span points at a 1-based line of the input log. Line 0 means "no location".
type Span struct {
	Line uint32
}

func (s Span) String() string {
	if s.Line == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", s.Line)
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Span
}

func (d Diagnostic) String() string {
	if d.Primary.Line == 0 {
		return fmt.Sprintf("%s %s: %s", d.Severity, d.Code.ID(), d.Message)
	}
	return fmt.Sprintf("line %d: %s %s: %s", d.Primary.Line, d.Severity, d.Code.ID(), d.Message)
}
