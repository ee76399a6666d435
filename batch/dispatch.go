package batch

import (
	"context"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"

	"github.com/smartcontractkit/batchops/pkg/logger"
	"github.com/smartcontractkit/batchops/value"
)

// Request is a generic remote request built from a verb operation.
type Request struct {
	Method   string      `json:"method"`
	Endpoint string      `json:"endpoint"`
	Data     value.Value `json:"data"`
}

// Requester sends verb operations to the remote service.
type Requester interface {
	Request(ctx context.Context, req Request) (value.Value, error)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, req Request) (value.Value, error)

// Request calls f.
func (f RequesterFunc) Request(ctx context.Context, req Request) (value.Value, error) {
	return f(ctx, req)
}

var verbMethods = map[string]string{
	"create": http.MethodPost,
	"update": http.MethodPut,
	"patch":  http.MethodPatch,
	"delete": http.MethodDelete,
	"get":    http.MethodGet,
	"read":   http.MethodGet,
}

// HTTPMethod maps an operation verb to an HTTP method. Unknown verbs are upper-cased.
func HTTPMethod(verb string) string {
	if m, ok := verbMethods[strings.ToLower(verb)]; ok {
		return m
	}

	return strings.ToUpper(verb)
}

// call is a single dispatch attempt, bound to its collaborator.
type call func(ctx context.Context) (value.Value, error)

// route binds op to the handler or requester that serves it. completed is used to resolve
// reference tokens in the endpoint of verb operations.
func (e *Executor) route(op ResolvedOperation, data value.Value, completed []Result) (call, error) {
	if module, method, ok := strings.Cut(op.Type, "."); ok {
		h, err := e.registry.Lookup(module, method)
		if err != nil {
			return nil, &DispatchError{OperationID: op.ID, Err: err}
		}

		return func(ctx context.Context) (value.Value, error) {
			return h(ctx, data)
		}, nil
	}

	if op.Endpoint == "" {
		return nil, &DispatchError{OperationID: op.ID, Err: ErrMissingEndpoint}
	}
	if e.requester == nil {
		return nil, &DispatchError{OperationID: op.ID, Err: ErrNoRequester}
	}

	req := Request{
		Method:   HTTPMethod(op.Type),
		Endpoint: ResolveString(op.Endpoint, completed),
		Data:     data,
	}

	return func(ctx context.Context) (value.Value, error) {
		return e.requester.Request(ctx, req)
	}, nil
}

// dispatch routes op and invokes its collaborator, retrying according to policy.
// Routing failures are returned as *DispatchError and never retried, collaborator
// failures are returned as *UpstreamError.
func (e *Executor) dispatch(
	ctx context.Context, lggr logger.Logger, op ResolvedOperation, data value.Value, completed []Result, policy RetryPolicy,
) (value.Value, error) {
	fn, err := e.route(op, data, completed)
	if err != nil {
		return value.Value{}, err
	}

	var out value.Value
	if policy.enabled() {
		retryOpts := policy.options()
		retryOpts = append(retryOpts,
			retry.Context(ctx),
			retry.OnRetry(func(attempt uint, err error) {
				lggr.Infow("Operation failed. Retrying...",
					"operation", op.ID, "attempt", attempt, "error", err)
			}),
		)
		out, err = retry.DoWithData(func() (value.Value, error) {
			return fn(ctx)
		}, retryOpts...)
	} else {
		out, err = fn(ctx)
	}
	if err != nil {
		return value.Value{}, &UpstreamError{OperationID: op.ID, Err: err}
	}

	return out, nil
}
