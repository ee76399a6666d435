// Package batchtest provides utilities for batch executor testing.
package batchtest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartcontractkit/batchops/batch"
	"github.com/smartcontractkit/batchops/pkg/logger"
	"github.com/smartcontractkit/batchops/value"
)

// NewExecutor creates an Executor for testing with a test logger and the given
// collaborators.
func NewExecutor(t *testing.T, registry *batch.Registry, requester batch.Requester) *batch.Executor {
	t.Helper()

	return batch.NewExecutor(logger.Test(t), batch.WithRegistry(registry), batch.WithRequester(requester))
}

// InFlight counts concurrent calls and remembers the highest count observed.
type InFlight struct {
	current atomic.Int64
	max     atomic.Int64
	calls   atomic.Int64
}

// Enter marks the start of a call. The returned function marks its end.
func (f *InFlight) Enter() (exit func()) {
	f.calls.Add(1)
	n := f.current.Add(1)
	for {
		m := f.max.Load()
		if n <= m || f.max.CompareAndSwap(m, n) {
			break
		}
	}

	return func() { f.current.Add(-1) }
}

// Max returns the highest number of concurrent calls observed.
func (f *InFlight) Max() int { return int(f.max.Load()) }

// Calls returns the total number of calls.
func (f *InFlight) Calls() int { return int(f.calls.Load()) }

// Requester is a batch.Requester that records requests, counts concurrent calls and
// answers through a function.
type Requester struct {
	InFlight

	// Delay is slept inside each call, while it counts as in flight.
	Delay time.Duration
	// Respond builds the response. When nil, the request data is echoed back with an "id"
	// of "<endpoint>#<n>".
	Respond func(req batch.Request) (value.Value, error)

	mu       sync.Mutex
	requests []batch.Request
}

var _ batch.Requester = (*Requester)(nil)

// Request implements batch.Requester.
func (r *Requester) Request(ctx context.Context, req batch.Request) (value.Value, error) {
	exit := r.Enter()
	defer exit()

	r.mu.Lock()
	r.requests = append(r.requests, req)
	n := len(r.requests)
	r.mu.Unlock()

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return value.Value{}, ctx.Err()
		}
	}

	if r.Respond != nil {
		return r.Respond(req)
	}

	fields, _ := req.Data.Object()
	if fields == nil {
		fields = map[string]value.Value{}
	}
	fields["id"] = value.StringOf(req.Endpoint + "#" + value.NumberOf(float64(n)).String())

	return value.ObjectOf(fields), nil
}

// Requests returns the requests received so far, in arrival order.
func (r *Requester) Requests() []batch.Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]batch.Request, len(r.requests))
	copy(out, r.requests)

	return out
}

// Handler wraps h so that its calls are counted in f.
func Handler(f *InFlight, delay time.Duration, h batch.Handler) batch.Handler {
	return func(ctx context.Context, data value.Value) (value.Value, error) {
		exit := f.Enter()
		defer exit()

		if delay > 0 {
			time.Sleep(delay)
		}

		return h(ctx, data)
	}
}

// Data is shorthand for value.MustFromAny.
func Data(v any) value.Value {
	return value.MustFromAny(v)
}
