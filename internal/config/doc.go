// Package config loads, validates, and normalizes podkeep configuration.
//
// Configuration comes from a TOML file (default ~/.config/podkeep/config.toml,
// falling back to ./podkeep.toml) layered over built-in defaults. Paths are
// tilde-expanded and made absolute during load so downstream packages never
// deal with relative locations.
package config
