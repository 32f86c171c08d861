// Package env expands {{...}} placeholders in hitcall configuration values
// and CLI arguments.
//
// Placeholders read from the process environment, from a .env file, or from
// a small set of generators such as uuid() and timestamp().
package env
