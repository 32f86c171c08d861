package http

import "time"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry summarizes one dispatched call.
type Entry struct {
	ID     string
	Method string
	URL    string
	// StatusCode is 0 when no response was received.
	StatusCode int
	// Code and Message are what the error callback received; both are zero on success.
	Code      int
	Message   string
	Outcome   Outcome
	Duration  time.Duration
	StartedAt time.Time
}

// Recorder receives call summaries. Record is called from pool goroutines
// and must be safe for concurrent use.
type Recorder interface {
	Record(e Entry)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Entry)

func (f RecorderFunc) Record(e Entry) { f(e) }
