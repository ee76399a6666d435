package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/smartcontractkit/batchops/pkg/logger"
)

// RollbackStatus is the outcome of a single rollback attempt.
type RollbackStatus string

const (
	RollbackStatusRolledBack RollbackStatus = "rolled-back"
	RollbackStatusSkipped    RollbackStatus = "skipped"
	RollbackStatusFailed     RollbackStatus = "failed"
)

// RollbackAttempt records what rollback did for one succeeded operation.
type RollbackAttempt struct {
	OperationID string `json:"operationId"`
	Index       int    `json:"index"`
	// Method is the inverse method, "<module>.<method>". Empty when none could be derived.
	Method string         `json:"method,omitempty"`
	Status RollbackStatus `json:"status"`
	Reason string         `json:"reason,omitempty"`
}

// inverseMethod derives the delete* method undoing a create* or add* method.
func inverseMethod(method string) (string, bool) {
	if rest, ok := strings.CutPrefix(method, "create"); ok {
		return "delete" + rest, true
	}
	if rest, ok := strings.CutPrefix(method, "add"); ok {
		return "delete" + rest, true
	}

	return "", false
}

// rollback walks the succeeded results in reverse completion order and invokes the
// inverse of each with the response it produced. It never fails: errors and panics are
// logged and recorded as failed attempts.
func (e *Executor) rollback(ctx context.Context, lggr logger.Logger, results []Result) []RollbackAttempt {
	succeeded := lo.Filter(results, func(r Result, _ int) bool { return r.Success })
	lo.Reverse(succeeded)

	lggr.Infow("Rolling back succeeded operations", "count", len(succeeded))

	attempts := make([]RollbackAttempt, 0, len(succeeded))
	for _, r := range succeeded {
		attempt := RollbackAttempt{OperationID: r.Operation.ID, Index: r.Index}

		module, method, ok := strings.Cut(r.Operation.Type, ".")
		if !ok {
			attempt.Status = RollbackStatusSkipped
			attempt.Reason = "verb operations have no inverse"
			lggr.Debugw("Skipping rollback", "operation", r.Operation.ID, "reason", attempt.Reason)
			attempts = append(attempts, attempt)

			continue
		}

		inverse, ok := inverseMethod(method)
		if !ok {
			attempt.Status = RollbackStatusSkipped
			attempt.Reason = fmt.Sprintf("no inverse for method %s", method)
			lggr.Debugw("Skipping rollback", "operation", r.Operation.ID, "reason", attempt.Reason)
			attempts = append(attempts, attempt)

			continue
		}
		attempt.Method = module + "." + inverse

		h, err := e.registry.Lookup(module, inverse)
		if err != nil {
			attempt.Status = RollbackStatusSkipped
			attempt.Reason = err.Error()
			lggr.Warnw("Skipping rollback, inverse method not registered",
				"operation", r.Operation.ID, "method", attempt.Method)
			attempts = append(attempts, attempt)

			continue
		}

		if err := invokeInverse(ctx, h, r); err != nil {
			attempt.Status = RollbackStatusFailed
			attempt.Reason = err.Error()
			lggr.Warnw("Rollback failed", "operation", r.Operation.ID, "method", attempt.Method, "error", err)
		} else {
			attempt.Status = RollbackStatusRolledBack
			lggr.Infow("Rolled back operation", "operation", r.Operation.ID, "method", attempt.Method)
		}
		attempts = append(attempts, attempt)
	}

	return attempts
}

func invokeInverse(ctx context.Context, h Handler, r Result) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	_, err = h(ctx, r.Data)

	return err
}
