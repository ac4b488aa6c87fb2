// Package fetcher walks a remote repository directory into a flat file list
// under a bounded concurrency limit.
package fetcher

import "context"

// DefaultConcurrency is the default number of simultaneous in-flight
// provider calls per source. Kept small to stay clear of API rate limits.
const DefaultConcurrency = 10

// Limiter is a counting semaphore bounding concurrent provider calls. One
// Limiter is shared by all listing and content-retrieval calls for a single
// source, so the bound holds regardless of fan-out depth.
type Limiter struct {
	sem chan struct{}
}

// NewLimiter returns a limiter with n slots. n < 1 falls back to
// DefaultConcurrency.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = DefaultConcurrency
	}
	return &Limiter{sem: make(chan struct{}, n)}
}

// Acquire blocks until a slot frees or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire.
func (l *Limiter) Release() {
	<-l.sem
}
