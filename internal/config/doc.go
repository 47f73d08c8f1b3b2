// Package config loads and validates application configuration from
// environment variables with the CURATOR_ prefix. Every setting has a
// default, so a bare environment yields a working configuration.
package config
