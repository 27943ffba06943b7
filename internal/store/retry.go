package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryOptions bound the save retry policy.
type RetryOptions struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryOptions returns the policy used by the game.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxTries:        5,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// Retrying wraps a Store with the persistence error policy: saves are
// retried with exponential backoff and then reported, and failed loads are
// logged and reported as ErrNotFound so the caller regenerates.
type Retrying struct {
	inner  Store
	opts   RetryOptions
	logger *log.Logger
}

// NewRetrying wraps inner.
func NewRetrying(inner Store, opts RetryOptions, logger *log.Logger) *Retrying {
	if opts.MaxTries == 0 {
		opts.MaxTries = 1
	}
	return &Retrying{inner: inner, opts: opts, logger: logger}
}

// Save retries the inner save with exponential backoff. It gives up after
// MaxTries or once ctx is done.
func (r *Retrying) Save(ctx context.Context, key Key, blob []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialInterval
	b.MaxInterval = r.opts.MaxInterval

	tries := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		err := r.inner.Save(ctx, key, blob)
		if err != nil && ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.opts.MaxTries))
	if err != nil {
		r.logger.Printf("save %s failed after %d tries: %v", key, tries, err)
		return err
	}
	if tries > 1 {
		r.logger.Printf("save %s succeeded after %d tries", key, tries)
	}
	return nil
}

// Load reads once. Read errors other than ErrNotFound are logged and
// reported as ErrNotFound, so the caller regenerates the chunk.
func (r *Retrying) Load(ctx context.Context, key Key) ([]byte, error) {
	blob, err := r.inner.Load(ctx, key)
	if err == nil || errors.Is(err, ErrNotFound) {
		return blob, err
	}
	r.logger.Printf("load %s failed, treating as absent: %v", key, err)
	return nil, ErrNotFound
}

// Scan passes through to the inner store.
func (r *Retrying) Scan(ctx context.Context, level string, layer Layer, fn func(Key, []byte) error) error {
	return r.inner.Scan(ctx, level, layer, fn)
}

// Close closes the inner store.
func (r *Retrying) Close() error {
	return r.inner.Close()
}
