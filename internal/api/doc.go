// Package api defines the transport payload types shared by the daemon's
// HTTP server and the CLI client, plus converters from store models.
package api
