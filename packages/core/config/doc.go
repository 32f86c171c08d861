// Package config handles configuration loading and management for hitcall.
//
// It provides functionality for:
//   - Loading configuration from hitcall.config.json or .hitcall.yaml files
//   - Default configuration values
//   - Translating a config into http client options
//   - Reloading a config file when it changes on disk
package config
