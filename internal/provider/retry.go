package provider

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region constants

const maxRetries = 2 // max 2 retries = 3 total attempts

var retryBackoff = 100 * time.Millisecond

// #endregion

// #region should-retry

// shouldRetry reports whether a call that has failed attempts times with err
// may be tried again, and how long to wait first. Only transient transport
// codes are retried.
func shouldRetry(err error, attempts int) (bool, time.Duration) {
	if attempts > maxRetries {
		return false, 0
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true, retryBackoff << (attempts - 1)
	}
	return false, 0
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// #endregion
