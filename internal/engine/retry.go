package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bamsammich/ferry/internal/transport"
)

const (
	DefaultMaxTries   = 100
	DefaultRetryDelay = 10 * time.Millisecond
)

// RetryPolicy retries destination opens that fail because another process
// holds the file. Any other failure is returned at once.
type RetryPolicy struct {
	// IsLocked classifies retryable failures. nil means transport.IsLocked.
	IsLocked func(error) bool
	// MaxTries counts attempts, including the first.
	MaxTries int
	Delay    time.Duration
}

// DefaultRetryPolicy is 100 attempts 10ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: DefaultMaxTries, Delay: DefaultRetryDelay, IsLocked: transport.IsLocked}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxTries <= 0 {
		p.MaxTries = DefaultMaxTries
	}
	if p.Delay <= 0 {
		p.Delay = time.Nanosecond
	}
	if p.IsLocked == nil {
		p.IsLocked = transport.IsLocked
	}
	return p
}

// OpenForWrite opens path on ep, retrying lock faults at a constant delay.
// When every attempt is locked out it returns a LockTimeout TransferError
// wrapping the last fault.
//
//nolint:ireturn // returns the endpoint's writer
func (p RetryPolicy) OpenForWrite(
	ctx context.Context,
	ep transport.Endpoint,
	path string,
	mode transport.WriteMode,
) (io.WriteCloser, error) {
	p = p.withDefaults()
	backoff := retry.WithMaxRetries(uint64(p.MaxTries-1), retry.NewConstant(p.Delay))

	var (
		w        io.WriteCloser
		attempts int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		var err error
		w, err = ep.OpenWrite(ctx, path, mode)
		if err != nil && p.IsLocked(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return w, nil
	}
	if p.IsLocked(err) {
		return nil, &TransferError{
			Code: LockTimeout,
			Path: path,
			Err:  fmt.Errorf("locked after %d attempts: %w", attempts, err),
		}
	}
	return nil, err
}
