// Package bench fires a batch of calls at one endpoint and summarizes their
// latency and outcomes.
//
// Every call goes through call.Execute, so a bench run exercises exactly the
// dispatch, decoding and callback path an application would.
package bench

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/hitcall/packages/call"
	"github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/pkg/errors"
)

// BuildFunc builds the request for one call. It must pass opts on to the
// request constructor so the call runs on the bench client.
type BuildFunc func(opts ...http.RequestOption) (*http.Request, error)

// Runner owns a client whose entries feed its Metrics.
type Runner struct {
	metrics *Metrics
	client  atomic.Pointer[http.Client]
}

func NewRunner(opts ...http.ClientOption) *Runner {
	r := &Runner{metrics: NewMetrics()}
	r.Reconfigure(opts...)
	return r
}

func (r *Runner) Metrics() *Metrics { return r.metrics }

func (r *Runner) Client() *http.Client { return r.client.Load() }

// Reconfigure replaces the client for calls built from now on. Calls in
// flight finish on the client they were built with.
func (r *Runner) Reconfigure(opts ...http.ClientOption) {
	all := make([]http.ClientOption, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, http.WithRecorder(r.metrics))
	r.client.Store(http.NewClient(all...))
}

// Run executes n calls and waits for every callback. Cancelling ctx stops
// issuing new calls; calls already issued report a transport failure.
// A build error aborts the run before further calls are issued.
func (r *Runner) Run(ctx context.Context, n int, build BuildFunc) (*Summary, error) {
	if n < 1 {
		return nil, errors.New("bench needs at least one request")
	}

	var wg sync.WaitGroup
	done := func() { wg.Done() }
	cb := call.Funcs[json.RawMessage]{
		Success: func(json.RawMessage) { done() },
		Error:   func(int, string) { done() },
	}

	r.metrics.Start()
	var buildErr error
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		req, err := build(http.WithClient(r.Client()))
		if err != nil {
			buildErr = errors.Wrapf(err, "building request %d", i+1)
			break
		}
		wg.Add(1)
		call.New[json.RawMessage](req).ExecuteContext(ctx, cb)
	}
	wg.Wait()
	r.metrics.Stop()

	return r.metrics.GetSummary(), buildErr
}
