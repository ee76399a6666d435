package batch

import (
	"encoding/json"
	"sync"

	"github.com/smartcontractkit/batchops/value"
)

// Result is the outcome of a single operation.
type Result struct {
	// Index is the position of the operation in the submitted list.
	Index int
	// Operation is the normalized operation, with ResolvedData set on success.
	Operation ResolvedOperation
	Success   bool
	// Data is the response of the collaborator. It is Null on failure.
	Data value.Value
	// Err is the failure cause. It is nil on success.
	Err error
}

type resultJSON struct {
	Index     int               `json:"index"`
	Operation ResolvedOperation `json:"operation"`
	Success   bool              `json:"success"`
	Data      *value.Value      `json:"data,omitempty"`
	Error     *ResultError      `json:"error,omitempty"`
}

// MarshalJSON implements json.Marshaler. The error is rendered as a ResultError.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{
		Index:     r.Index,
		Operation: r.Operation,
		Success:   r.Success,
	}
	if r.Success {
		data := r.Data
		out.Data = &data
	}
	if r.Err != nil {
		out.Error = &ResultError{Message: r.Err.Error()}
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. A decoded error is a ResultError.
func (r *Result) UnmarshalJSON(b []byte) error {
	var in resultJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*r = Result{
		Index:     in.Index,
		Operation: in.Operation,
		Success:   in.Success,
	}
	if in.Data != nil {
		r.Data = *in.Data
	}
	if in.Error != nil {
		r.Err = *in.Error
	}

	return nil
}

// resultLog accumulates results in completion order.
// It is safe for concurrent use.
type resultLog struct {
	mu       sync.RWMutex
	results  []Result
	firstErr error
}

func newResultLog(capacity int) *resultLog {
	return &resultLog{results: make([]Result, 0, capacity)}
}

// add appends r. The error of the first failed result is kept so that fail-fast batches
// report failures in settlement order.
func (l *resultLog) add(r Result) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.results = append(l.results, r)
	if !r.Success && l.firstErr == nil {
		l.firstErr = r.Err
	}
}

// snapshot returns a copy of the results recorded so far.
func (l *resultLog) snapshot() []Result {
	l.mu.RLock()
	defer l.mu.RUnlock()

	// Create a copy to avoid data races after returning
	results := make([]Result, len(l.results))
	copy(results, l.results)

	return results
}

// firstError returns the error of the first failed result, if any.
func (l *resultLog) firstError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.firstErr
}
