// Package config loads, normalizes, and validates uplink configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// UPLINK_ACCESS_KEY_ID and UPLINK_SECRET_ACCESS_KEY. The Config type
// centralizes every knob the CLI and the upload queue need, so the state
// directory, object store credentials, and queue persistence backend are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
