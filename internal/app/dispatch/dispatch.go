// Package dispatch routes typed requests to the single handler registered for their variant.
//
// The dispatcher has no business knowledge. Registration happens once, at startup, through a
// Registry literal; there is no reflection and no middleware chain.
package dispatch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoHandler reports a request whose variant has no registered handler.
	// It indicates a wiring bug, not a business outcome.
	ErrNoHandler = errors.New("dispatch: no handler registered")

	// ErrResultType reports a handler result (or request) whose dynamic type does not match
	// what the caller expected.
	ErrResultType = errors.New("dispatch: unexpected type")
)

// Request is implemented by every request variant. Kind is fixed by the concrete type.
type Request interface {
	Kind() Kind
}

// Handler executes one business operation for one request variant.
type Handler interface {
	Handle(ctx context.Context, req Request) (any, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req Request) (any, error) { return f(ctx, req) }

// Registry maps each request variant to exactly one handler.
type Registry map[Kind]Handler

// Dispatcher is safe for concurrent use; its registry is copied at construction and never mutated.
type Dispatcher struct {
	handlers map[Kind]Handler
}

func New(reg Registry) *Dispatcher {
	handlers := make(map[Kind]Handler, len(reg))
	for k, h := range reg {
		if h == nil {
			continue
		}
		handlers[k] = h
	}
	return &Dispatcher{handlers: handlers}
}

// Handles reports whether a handler is registered for k.
func (d *Dispatcher) Handles(k Kind) bool {
	_, ok := d.handlers[k]
	return ok
}

// Dispatch invokes the handler registered for req's variant.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrNoHandler)
	}
	h, ok := d.handlers[req.Kind()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, req.Kind())
	}
	return h.Handle(ctx, req)
}

// Send dispatches req and asserts the handler's result to T.
func Send[T any](ctx context.Context, d *Dispatcher, req Request) (T, error) {
	var zero T
	res, err := d.Dispatch(ctx, req)
	if err != nil {
		return zero, err
	}
	out, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, req.Kind(), res, zero)
	}
	return out, nil
}

// Typed adapts a strongly typed handler function to Handler.
func Typed[Req Request, Res any](fn func(ctx context.Context, req Req) (Res, error)) Handler {
	return HandlerFunc(func(ctx context.Context, req Request) (any, error) {
		typed, ok := req.(Req)
		if !ok {
			var want Req
			return nil, fmt.Errorf("%w: got request %T, want %T", ErrResultType, req, want)
		}
		return fn(ctx, typed)
	})
}
