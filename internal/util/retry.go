package util

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times with a fixed delay between tries,
// returning nil on the first success or the last error otherwise. Context
// cancellation aborts the wait.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
