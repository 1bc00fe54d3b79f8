// Package logging builds the slog loggers used by coven-chat binaries.
//
// The terminal handler is either a compact colorized text format or JSON.
// When a log file is configured, records are fanned out to a JSON handler
// on that file as well, so the interactive session stays quiet while a
// full trace is kept on disk.
package logging
