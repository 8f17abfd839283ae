package middleware

import (
	"context"
	"log"
	"strings"
	"time"
)

// RetryMiddleware is a supplementary, opt-in middleware: the call
// dispatcher and client channel themselves implement no retry policy (a
// failed call is surfaced to the caller, who decides), but a provider or
// a middleware-aware client wrapper may choose to install this to retry
// transient failures itself.
func RetryMiddleware(maxRetries int, baseDelay time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) *Result {
			result := next(ctx, req)
			for i := 0; i < maxRetries; i++ {
				if result.Err == nil {
					return result
				}
				if !isRetryable(result.Err) {
					return result
				}
				log.Printf("retry %d for %s.%s after error: %v", i+1, req.ServiceName, req.MethodName, result.Err)
				time.Sleep(baseDelay * time.Duration(1<<i))
				result = next(ctx, req)
			}
			return result
		}
	}
}

func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused")
}
