package http

import (
	"net/http"
	"strings"
	"time"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	// Status is the status line text, e.g. "404 Not Found". It is never parsed as the body.
	Status   string
	Proto    string
	Headers  http.Header
	Body     []byte
	Duration time.Duration
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Reason returns the reason phrase of the status line.
func (r *Response) Reason() string {
	_, reason, ok := strings.Cut(r.Status, " ")
	if !ok {
		return http.StatusText(r.StatusCode)
	}
	return reason
}

func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "application/json")
}

// IsSuccess reports a 2xx status, the only case in which an envelope's data is used.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
