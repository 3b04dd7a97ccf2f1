// Package config loads, normalizes, and validates mxf2proxy configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as MXF2PROXY_FFMPEG. The
// Config type centralizes every knob the daemon and CLI need: encoder
// binaries, output format, LUT and watermark enhancements, prompt policies,
// and the HTTP/event/notification integrations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
