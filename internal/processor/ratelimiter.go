package processor

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/jonesrussell/url-sentinel/internal/logging"
)

// RateLimiter bounds outbound lookup traffic during bulk extraction so a
// large input file cannot flood the resolver.
type RateLimiter struct {
	limiter *rate.Limiter
	log     logging.Logger
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of the same size.
func NewRateLimiter(rps int, log logging.Logger) *RateLimiter {
	if rps <= 0 {
		rps = 100
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Wait blocks until the limiter allows one operation or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		r.log.Warn("rate limiter wait failed", logging.Error(err))
		return err
	}
	return nil
}
