// Package logging provides structured, file-based logging for filesearch.
//
// Logs are JSON lines written through log/slog to a size-rotated file
// (~/.filesearch/logs/filesearch.log by default). Terminal output belongs to
// the operator, so stderr mirroring is opt-in (--debug).
package logging
