package batch

import (
	"time"

	"github.com/avast/retry-go/v4"
)

// DefaultMaxConcurrency is the size of the permit pool when none is configured.
const DefaultMaxConcurrency = 5

// Options controls a single Execute call. Use the With* functions to set them.
type Options struct {
	// ContinueOnError records failures and keeps executing the rest of the batch.
	// When false, the first failure rejects the whole batch. Defaults to true.
	ContinueOnError bool
	// MaxConcurrency bounds the number of operations dispatching at once. Values <= 0
	// fall back to DefaultMaxConcurrency.
	MaxConcurrency int
	// EnableRollback runs best-effort inverses of succeeded operations when the batch is
	// rejected. It has no effect while ContinueOnError is true.
	EnableRollback bool
	// DetectCycles fails the batch before any dispatch if dependencies form a cycle.
	// Without it a cycle blocks the operations involved until ctx is cancelled.
	DetectCycles bool
	// Retry is the per-operation dispatch retry policy. Disabled by default.
	Retry RetryPolicy
	// OnOperationComplete is called once per operation after its result is recorded.
	// It may be called from several goroutines at once.
	OnOperationComplete func(Result)
	// OnBatchComplete is called with the summary before Execute returns successfully.
	OnBatchComplete func(Summary)
}

// DefaultOptions returns the options used when Execute is called without any.
func DefaultOptions() Options {
	return Options{
		ContinueOnError: true,
		MaxConcurrency:  DefaultMaxConcurrency,
	}
}

// Option configures an Execute call.
type Option func(*Options)

// WithOptions replaces every option with o.
func WithOptions(o Options) Option {
	return func(opts *Options) {
		*opts = o
	}
}

// WithContinueOnError sets whether a failure leaves the rest of the batch running.
func WithContinueOnError(continueOnError bool) Option {
	return func(o *Options) {
		o.ContinueOnError = continueOnError
	}
}

// WithMaxConcurrency sets the size of the permit pool.
func WithMaxConcurrency(n int) Option {
	return func(o *Options) {
		o.MaxConcurrency = n
	}
}

// WithRollback enables best-effort rollback on fail-fast rejection.
func WithRollback(enabled bool) Option {
	return func(o *Options) {
		o.EnableRollback = enabled
	}
}

// WithCycleDetection enables the dependency cycle pre-check.
func WithCycleDetection(enabled bool) Option {
	return func(o *Options) {
		o.DetectCycles = enabled
	}
}

// WithRetry enables retrying each dispatch according to policy.
func WithRetry(policy RetryPolicy) Option {
	return func(o *Options) {
		o.Retry = policy
	}
}

// WithOnOperationComplete sets the per-operation completion callback.
func WithOnOperationComplete(fn func(Result)) Option {
	return func(o *Options) {
		o.OnOperationComplete = fn
	}
}

// WithOnBatchComplete sets the whole-batch completion callback.
func WithOnBatchComplete(fn func(Summary)) Option {
	return func(o *Options) {
		o.OnBatchComplete = fn
	}
}

func newOptions(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}

	return o
}

// RetryPolicy defines how a failed dispatch is retried. Routing errors such as an unknown
// module are never retried. Return NewUnrecoverableError from a handler to stop early.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts. Values <= 1 disable retries.
	MaxAttempts uint
	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

func (p RetryPolicy) enabled() bool {
	return p.MaxAttempts > 1
}

// options returns the 'avast/retry' functional options for the retry policy.
func (p RetryPolicy) options() []retry.Option {
	return []retry.Option{
		retry.Attempts(p.MaxAttempts),
		retry.Delay(p.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	}
}
