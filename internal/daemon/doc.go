// Package daemon hosts the podkeep background process: it owns the
// single-instance lock, serves the HTTP API, and coordinates shutdown of
// the download workers and the store.
package daemon
