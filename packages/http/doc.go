// Package http builds and sends the requests of hitcall.
//
// It wraps the standard library's http package with:
//   - Ordered header lists
//   - Request specs for GET and JSON, form and multipart POST bodies
//   - A shared client with configurable timeouts, redirects, pacing and an async pool
//   - A lazily created process default client
//   - Response reading
package http
