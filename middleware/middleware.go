// Package middleware implements the onion-model handler chain wrapped
// around a provider's dispatch step. Each middleware sees the request
// before the call dispatcher does and the result after; because the
// wire response carries no error envelope, a middleware that wants to
// fail a call can only do so by returning a non-nil Result.Err, which the
// provider runtime treats the same way it treats any other dispatch
// failure: close the connection rather than write a response.
package middleware

import "context"

// Request is the framework-level view of an incoming call, available to
// middleware before the call dispatcher has even looked the method up.
type Request struct {
	ServiceName string
	MethodName  string
	Args        []byte
}

// Result is returned by the middleware chain's terminal handler. Err
// being non-nil means the connection this request arrived on should be
// closed; it is never serialized and sent to the caller.
type Result struct {
	Err error
}

// HandlerFunc is one link in the middleware chain.
type HandlerFunc func(ctx context.Context, req *Request) *Result

// Middleware wraps a HandlerFunc with additional behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain composes middlewares into one, applied in the order given: the
// first middleware listed is outermost (runs first on the way in, last on
// the way out).
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
