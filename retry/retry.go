package retry

import (
	"context"
	"time"

	"github.com/amirrezaask/randomset/errors"
)

// Do calls f until it succeeds, at most retries+1 times, sleeping backoff
// between attempts. It gives up early when ctx is done.
func Do(ctx context.Context, f func(ctx context.Context) error, retries int, backoff time.Duration) error {
	err := f(ctx)
	for i := 0; err != nil && i < retries; i++ {
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.Join(ctx.Err(), err), "retry cancelled after %d attempts", i+1)
		case <-time.After(backoff):
		}
		err = f(ctx)
	}

	return errors.Wrap(err, "retried for %d times", retries)
}
