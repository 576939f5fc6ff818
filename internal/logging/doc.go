// Package logging builds the slog loggers used by the daemon and CLI.
//
// Two output formats are supported: a compact console format that promotes
// the component attribute into the line prefix, and plain JSON for
// machine-readable daemon logs. Attribute helper shims keep call sites
// terse and the field names consistent.
package logging
