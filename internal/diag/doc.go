// Package diag defines the diagnostic model used while reading solver logs.
//
// # Purpose
//
//   - Capture findings about the input log (malformed lines, unknown
//     references, blame conflicts) as deterministic data.
//   - Let producers emit diagnostics through a Reporter without coupling to
//     storage or formatting.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error (severity.go).
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - Message – short human text.
//   - Primary – Span pointing at the offending log line (0 when not tied to a line).
//
// Producers call Reporter.Report; BagReporter collects into a Bag, which
// supports limits, sorting and deduplication.
package diag
