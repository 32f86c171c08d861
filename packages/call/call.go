// Package call dispatches requests asynchronously and delivers the decoded
// envelope payload to a typed callback.
//
// Every call moves through Idle, Sent and then exactly one of Succeeded or
// Failed; the transition into a terminal state invokes exactly one of
// OnSuccess or OnError, once. Callbacks run on the client's pool goroutines,
// not on the caller's, and must guard any state they share.
package call

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/abdul-hamid-achik/hitcall/packages/envelope"
	"github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Error codes delivered to OnError when the server's envelope never came into play.
const (
	// CodeTransport means the exchange failed before a response arrived.
	CodeTransport = -1
	// CodeDecode means a response arrived but its body is not an envelope.
	CodeDecode = -2
	// CodeRequest means the request could not be assembled or was executed twice.
	CodeRequest = -3
)

// RequestIDHeader carries the call ID unless the request already sets it.
const RequestIDHeader = "X-Request-Id"

type Callback[T any] interface {
	OnSuccess(data T)
	OnError(code int, message string)
}

// Funcs adapts a pair of functions to Callback. Nil functions are skipped.
type Funcs[T any] struct {
	Success func(data T)
	Error   func(code int, message string)
}

func (f Funcs[T]) OnSuccess(data T) {
	if f.Success != nil {
		f.Success(data)
	}
}

func (f Funcs[T]) OnError(code int, message string) {
	if f.Error != nil {
		f.Error(code, message)
	}
}

type State int32

const (
	Idle State = iota
	Sent
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sent:
		return "sent"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Call is a single use dispatch of one request whose envelope data decodes into T.
type Call[T any] struct {
	req   *http.Request
	id    string
	state atomic.Int32
}

func New[T any](req *http.Request) *Call[T] {
	return &Call[T]{req: req, id: uuid.NewString()}
}

// ID identifies the call in logs, recorders and the X-Request-Id header.
func (c *Call[T]) ID() string { return c.id }

func (c *Call[T]) State() State { return State(c.state.Load()) }

// Execute is ExecuteContext with a background context.
func (c *Call[T]) Execute(cb Callback[T]) {
	c.ExecuteContext(context.Background(), cb)
}

// ExecuteContext assembles the request, submits it and returns without
// waiting. Assembly failures are delivered before it returns; everything
// else is delivered from the client's pool. Cancelling ctx aborts the
// exchange and is reported as a transport failure.
//
// A Call executes once. Later calls report CodeRequest to their own
// callback and leave the first execution untouched.
func (c *Call[T]) ExecuteContext(ctx context.Context, cb Callback[T]) {
	client := c.req.Client()
	logger := client.Logger().WithFields(log.Fields{
		"id":     c.id,
		"method": c.req.Method(),
		"url":    c.req.URL(),
	})

	if !c.state.CompareAndSwap(int32(Idle), int32(Sent)) {
		logger.Warn("call already executed")
		deliver(logger, func() { cb.OnError(CodeRequest, "call already executed") })
		return
	}

	started := time.Now()
	entry := http.Entry{
		ID:        c.id,
		Method:    c.req.Method(),
		URL:       c.req.URL(),
		StartedAt: started,
	}

	wire, err := c.req.Assemble()
	if err == nil && !wire.Headers.Has(RequestIDHeader) {
		wire.Headers = append(wire.Headers, http.HeaderField{Name: RequestIDHeader, Value: c.id})
	}
	var httpReq *nethttp.Request
	if err == nil {
		httpReq, err = wire.HTTPRequest(ctx)
	}
	if err != nil {
		logger.WithError(err).Debug("assembling request failed")
		c.fail(client, logger, cb, entry, CodeRequest, err.Error())
		return
	}

	logger.Debug("sending request")
	client.Enqueue(ctx, httpReq, func(resp *http.Response, err error) {
		if err != nil {
			entry.Duration = time.Since(started)
			logger.WithError(err).Debug("transport failed")
			c.fail(client, logger, cb, entry, CodeTransport, describe(err))
			return
		}

		entry.StatusCode = resp.StatusCode
		entry.Duration = resp.Duration
		data, err := envelope.Decode[T](resp)
		if err != nil {
			var failure *envelope.Failure
			if errors.As(err, &failure) {
				c.fail(client, logger, cb, entry, failure.Code, failure.Message)
				return
			}
			logger.WithError(err).Debug("decoding envelope failed")
			c.fail(client, logger, cb, entry, CodeDecode, err.Error())
			return
		}

		c.state.Store(int32(Succeeded))
		entry.Outcome = http.OutcomeSuccess
		logger.WithField("status", resp.StatusCode).Debug("call succeeded")
		client.Record(entry)
		deliver(logger, func() { cb.OnSuccess(data) })
	})
}

func (c *Call[T]) fail(client *http.Client, logger *log.Entry, cb Callback[T], entry http.Entry, code int, message string) {
	c.state.Store(int32(Failed))
	entry.Outcome = http.OutcomeFailure
	entry.Code = code
	entry.Message = message
	logger.WithFields(log.Fields{"code": code, "status": entry.StatusCode}).Debug("call failed")
	client.Record(entry)
	deliver(logger, func() { cb.OnError(code, message) })
}

// deliver runs a user callback, recovering a panic so the pool goroutine survives.
func deliver(logger *log.Entry, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			logger.WithField("panic", p).Warn("recovered panic in callback")
		}
	}()
	fn()
}

// describe reduces a transport error to the failure description, dropping
// the request line that net/http prefixes.
func describe(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return errors.Cause(err).Error()
}
