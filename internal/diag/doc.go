// Package diag defines the diagnostic model shared by the directive parser,
// the pattern compiler and the matching engine.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with a stable string
//     form such as MAT3001.
//   - Message – short human text.
//   - Primary – span in the annotation source, normally the directive line.
//   - Notes – secondary spans, normally into the checked output ("scanning
//     from here", "forbidden text found here").
//   - Context – verbatim output excerpt attached by the reporter.
//
// Package diag performs no formatting or IO. Rendering lives in
// internal/diagfmt.
package diag
