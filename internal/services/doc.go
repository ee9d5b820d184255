// Package services provides shared infrastructure for stage implementations:
// an error taxonomy with sentinel markers for failure classification, and
// context annotations (item ID, stage name, correlation ID) that the logging
// package surfaces as structured fields.
package services
