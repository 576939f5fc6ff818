// Package services defines shared utilities consumed by the download
// workers and external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform across the HTTP surface and the CLI.
//   - HTTPStatus, which translates markers into API status codes.
//
// Use these helpers when wiring new endpoints or integrations so
// operational behaviour (error handling, observability) stays uniform.
package services
