package retrier

import (
	"context"
	"fmt"
	"time"

	"github.com/Koyo-os/docusurvey/pkg/logger"
	"go.uber.org/zap"
)

// RetrierOpts controls how often a connection is retried.
type RetrierOpts struct {
	Count    uint // retries after the first attempt
	Interval uint // seconds between attempts
}

// Connect runs connector until it succeeds, at most Count+1 times, sleeping
// Interval seconds between attempts. It gives up early when ctx is done and
// returns the last connector error otherwise.
func Connect[T any](ctx context.Context, name string, opts RetrierOpts, log *logger.Logger, connector func() (T, error)) (T, error) {
	var (
		out T
		err error
	)

	for attempt := uint(0); attempt <= opts.Count; attempt++ {
		if out, err = connector(); err == nil {
			return out, nil
		}

		if log != nil {
			log.Warn("connection attempt failed",
				zap.String("component", name),
				zap.Uint("attempt", attempt+1),
				zap.Uint("max_attempts", opts.Count+1),
				zap.Error(err))
		}

		if attempt == opts.Count {
			break
		}

		select {
		case <-ctx.Done():
			return out, fmt.Errorf("connect %s: %w", name, ctx.Err())
		case <-time.After(time.Duration(opts.Interval) * time.Second):
		}
	}

	return out, fmt.Errorf("connect %s: %w", name, err)
}
