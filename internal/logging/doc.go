// Package logging wires log/slog with a console handler for interactive use
// and a JSON handler for machine consumption, plus helpers for component
// loggers and context-derived structured fields.
package logging
