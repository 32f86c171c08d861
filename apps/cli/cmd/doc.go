// Package cmd implements the hitcall CLI commands using Cobra.
//
// Available commands:
//   - get: Send a GET request and print the envelope data
//   - post: Send a JSON, form or multipart POST request
//   - bench: Fire a batch of calls and summarize latency and outcomes
//   - history: Show calls recorded in the SQLite journal
//   - init: Write a default config file
//   - completion: Generate shell completion scripts
//   - version: Show hitcall version information
//
// Request items follow the httpie conventions (Name:value, key==value,
// key=value, key:=json, key@path). Exit codes are listed in exitcodes.go.
package cmd
