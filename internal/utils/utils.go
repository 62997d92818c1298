package utils

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping a fixed delay between
// attempts. It stops early when fn succeeds or the context is cancelled,
// and returns the last error otherwise.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
