// Package output renders call results for the hitcall CLI.
//
// The console formatter prints decoded data as indented JSON, failures in
// red, and journal history one call per line. The JSON formatter emits
// history for scripts.
package output
