// Package diag defines the diagnostic model of the call tree reconstruction.
//
// # Purpose
//
//   - Capture data-level findings (stack repairs, truncated input, frames
//     left open) as plain values instead of errors, so that processing never
//     aborts on malformed traces.
//   - Decouple producers from storage: the stack engine reports through a
//     Reporter; the CLI collects into a Bag and logs.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning, Error (severity.go).
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - Message – short human oriented text.
//   - Line – 1-based trace line the finding is anchored to (0 if none).
//   - Fields – ordered key/value context (frame count, target label, raw
//     cells of the offending row). Loggers render them as structured fields.
//
// Package diag does no formatting or IO of its own.
package diag
