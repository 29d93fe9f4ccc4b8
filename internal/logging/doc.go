// Package logging wraps log/slog with the handlers and attribute helpers
// used across pixelpress. Two output formats exist: a console handler that
// prefixes messages with the component name, and a JSON handler with
// stable ts/level/msg keys. Context-derived fields (session, job, request)
// are attached through WithContext.
package logging
