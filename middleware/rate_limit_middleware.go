package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ErrRateLimited is the Result.Err a rejected call carries, which the
// provider runtime treats as a close-the-connection failure.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitMiddleware rejects calls once the token bucket of rate r
// (per second) and burst capacity burst is exhausted.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) *Result {
			if !limiter.Allow() {
				return &Result{Err: ErrRateLimited}
			}
			return next(ctx, req)
		}
	}
}
