package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/smartcontractkit/batchops/pkg/logger"
	"github.com/smartcontractkit/batchops/value"
)

// Executor runs batches of operations against a Registry of module handlers and a
// Requester for verb operations. An Executor holds no per-batch state and can run several
// batches concurrently. Use NewExecutor to create one.
type Executor struct {
	lggr      logger.Logger
	registry  *Registry
	requester Requester
}

// ExecutorOption is a functional option for configuring an Executor.
type ExecutorOption func(*Executor)

// WithRegistry sets the Registry used for "<module>.<method>" operations and rollback.
func WithRegistry(registry *Registry) ExecutorOption {
	return func(e *Executor) {
		e.registry = registry
	}
}

// WithRequester sets the Requester used for verb operations.
func WithRequester(requester Requester) ExecutorOption {
	return func(e *Executor) {
		e.requester = requester
	}
}

// NewExecutor creates and returns a new Executor.
func NewExecutor(lggr logger.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		lggr:     lggr.Named("batch"),
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute runs ops with a new Executor. See Executor.Execute.
func Execute(
	ctx context.Context, lggr logger.Logger, registry *Registry, requester Requester, ops []Operation, opts ...Option,
) (Summary, error) {
	return NewExecutor(lggr, WithRegistry(registry), WithRequester(requester)).Execute(ctx, ops, opts...)
}

// settlement is closed once an operation has succeeded or failed. err is only set when the
// batch fails fast, so that dependents of a failed operation fail in turn.
type settlement struct {
	done chan struct{}
	err  error
}

// run is the state of a single Execute call.
type run struct {
	exec        *Executor
	lggr        logger.Logger
	opts        Options
	ops         []ResolvedOperation
	byID        map[string]int
	settlements []*settlement
	permits     *semaphore.Weighted
	log         *resultLog
}

// Execute runs every operation of ops and returns a summary of their results.
//
// All operations are started at once. Each waits for the settlement of its dependencies,
// then for a permit from a pool of MaxConcurrency permits, resolves the reference tokens in
// its data against the results recorded so far and dispatches.
//
// With ContinueOnError (the default) a failure is recorded and the batch carries on:
// dependents of a failed operation still run, with their references to it left
// unresolved. Execute then always returns a nil error.
//
// Without ContinueOnError the first failure, in settlement order, is returned once every
// operation has settled. Dependents of a failed operation fail without dispatching. If
// EnableRollback is set, succeeded operations are rolled back before returning. The
// returned Summary holds the results recorded until then.
//
// Cancelling ctx fails the operations still waiting for a dependency or a permit.
func (e *Executor) Execute(ctx context.Context, ops []Operation, opts ...Option) (Summary, error) {
	start := time.Now()
	o := newOptions(opts...)
	batchID := uuid.New().String()
	lggr := e.lggr.With("batchID", batchID)

	resolved := Normalize(ops)
	lggr.Infow("Executing batch", "total", len(resolved), "maxConcurrency", o.MaxConcurrency,
		"continueOnError", o.ContinueOnError, "enableRollback", o.EnableRollback)

	if o.DetectCycles {
		if err := checkCycles(resolved); err != nil {
			lggr.Errorw("Batch rejected", "error", err)
			return summarize(batchID, len(resolved), []Result{}, time.Since(start)), err
		}
	}

	r := &run{
		exec:        e,
		lggr:        lggr,
		opts:        o,
		ops:         resolved,
		byID:        indexByID(resolved),
		settlements: make([]*settlement, len(resolved)),
		permits:     semaphore.NewWeighted(int64(o.MaxConcurrency)),
		log:         newResultLog(len(resolved)),
	}
	// Every settlement exists before any operation starts, so dependencies may point
	// forwards as well as backwards.
	for i := range r.settlements {
		r.settlements[i] = &settlement{done: make(chan struct{})}
	}

	var g errgroup.Group
	for i := range resolved {
		i := i
		g.Go(func() error {
			return r.execute(ctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		// errgroup keeps the first error returned by a goroutine, which can be a dependent
		// that woke up before the failed operation returned. The log keeps settlement order.
		if first := r.log.firstError(); first != nil {
			err = first
		}

		summary := summarize(batchID, len(resolved), r.log.snapshot(), time.Since(start))
		if o.EnableRollback {
			summary.Rollback = e.rollback(context.WithoutCancel(ctx), lggr, summary.Results)
			summary.Duration = time.Since(start)
		}
		lggr.Errorw("Batch rejected", "error", err, "successful", summary.Successful,
			"failed", summary.Failed, "durationMs", summary.DurationMs())

		return summary, err
	}

	summary := summarize(batchID, len(resolved), r.log.snapshot(), time.Since(start))
	lggr.Infow("Batch completed", "successful", summary.Successful, "failed", summary.Failed,
		"successRate", summary.SuccessRate, "durationMs", summary.DurationMs())
	if o.OnBatchComplete != nil {
		o.OnBatchComplete(summary)
	}

	return summary, nil
}

// execute runs the operation at index i, records its result and settles it. The returned
// error is non-nil only when the batch fails fast.
func (r *run) execute(ctx context.Context, i int) error {
	op := r.ops[i]
	s := r.settlements[i]
	defer close(s.done)

	result := r.process(ctx, op)
	if !result.Success {
		r.lggr.Warnw("Operation failed", "operation", op.ID, "index", op.Index, "error", result.Err)
	}
	if r.opts.OnOperationComplete != nil {
		r.opts.OnOperationComplete(result)
	}

	if !result.Success && !r.opts.ContinueOnError {
		s.err = result.Err
		return result.Err
	}

	return nil
}

// process waits for the dependencies of op and a permit, then resolves and dispatches it.
// The result is recorded before the permit is released.
func (r *run) process(ctx context.Context, op ResolvedOperation) Result {
	if err := r.awaitDependencies(ctx, op); err != nil {
		return r.record(op, value.Value{}, err)
	}

	if err := r.permits.Acquire(ctx, 1); err != nil {
		return r.record(op, value.Value{}, fmt.Errorf("operation %s: %w", op.ID, err))
	}
	defer r.permits.Release(1)

	completed := r.log.snapshot()
	data := Resolve(op.Data, completed)
	r.lggr.Debugw("Dispatching operation", "operation", op.ID, "index", op.Index, "type", op.Type)

	out, err := r.exec.dispatch(ctx, r.lggr, op, data, completed, r.opts.Retry)
	if err != nil {
		return r.record(op, value.Value{}, err)
	}
	op.ResolvedData = &data

	return r.record(op, out, nil)
}

// awaitDependencies blocks until every dependency of op has settled. All dependencies are
// looked up before waiting on any, so an unknown one fails op immediately.
func (r *run) awaitDependencies(ctx context.Context, op ResolvedOperation) error {
	deps := make([]*settlement, 0, len(op.Dependencies))
	for _, dep := range op.Dependencies {
		j, ok := lookupIndex(r.byID, len(r.ops), dep)
		if !ok {
			return fmt.Errorf("operation %s: %w: %s", op.ID, ErrDependencyNotFound, dep)
		}
		deps = append(deps, r.settlements[j])
	}

	for k, s := range deps {
		select {
		case <-s.done:
		case <-ctx.Done():
			return fmt.Errorf("operation %s waiting for %s: %w", op.ID, op.Dependencies[k], ctx.Err())
		}
		if s.err != nil {
			return fmt.Errorf("operation %s: dependency %s failed: %w", op.ID, op.Dependencies[k], s.err)
		}
	}

	return nil
}

func (r *run) record(op ResolvedOperation, data value.Value, err error) Result {
	result := Result{
		Index:     op.Index,
		Operation: op,
		Success:   err == nil,
		Data:      data,
		Err:       err,
	}
	r.log.add(result)

	return result
}
