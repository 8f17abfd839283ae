package middleware

import (
	"context"
	"log"
	"time"
)

// LoggingMiddleware logs the service/method, the time the rest of the
// chain took, and any error the chain produced.
func LoggingMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) *Result {
			start := time.Now()
			result := next(ctx, req)
			duration := time.Since(start)
			log.Printf("%s.%s duration=%s", req.ServiceName, req.MethodName, duration)
			if result.Err != nil {
				log.Printf("%s.%s error: %v", req.ServiceName, req.MethodName, result.Err)
			}
			return result
		}
	}
}
