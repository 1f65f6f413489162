package replication

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/alpacahq/recordstore/utils/log"
)

// ErrRetryable is a custom error to retry the logic when returned.
var ErrRetryable = errors.New("retryable replication error")

const defaultMaxRetryInterval = 5 * time.Second

type Retryer struct {
	retryFunc    func(ctx context.Context) error
	interval     time.Duration
	maxInterval  time.Duration
	backoffCoeff int
	logger       *log.Logger
}

func NewRetryer(retryFunc func(ctx context.Context) error, interval time.Duration, backoffCoeff int) *Retryer {
	return &Retryer{
		retryFunc:    retryFunc,
		interval:     interval,
		maxInterval:  defaultMaxRetryInterval,
		backoffCoeff: backoffCoeff,
		logger:       log.Nop(),
	}
}

// WithMaxInterval caps the wait between two attempts.
func (r *Retryer) WithMaxInterval(d time.Duration) *Retryer {
	if d > 0 {
		r.maxInterval = d
	}
	return r
}

func (r *Retryer) WithLogger(l *log.Logger) *Retryer {
	r.logger = l
	return r
}

// Run tries the Retryer until it succeeds, it returns unretriable error, or the context is canceled.
// There is no limit on the number of attempts.
func (r *Retryer) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context canceled")
	}

	operation := func() error {
		err := r.retryFunc(ctx)
		if err == nil || errors.Is(err, ErrRetryable) {
			return err
		}
		// not retryable error, give up.
		r.logger.Warn("caught a non-retryable error: %v", err)
		return backoff.Permanent(err)
	}
	notify := func(err error, next time.Duration) {
		r.logger.Debug("caught a retryable error. It will be retried after %v, err=%v", next, err)
	}

	return backoff.RetryNotify(operation, backoff.WithContext(r.newBackOff(), ctx), notify)
}

func (r *Retryer) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval
	b.MaxInterval = r.maxInterval
	if r.backoffCoeff > 0 {
		b.Multiplier = float64(r.backoffCoeff)
	}
	b.RandomizationFactor = 0
	// retry forever, connectivity is re-established only by trying again
	b.MaxElapsedTime = 0
	return b
}
