package remote

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// WaitReady pings c until it answers or timeout elapses. It runs once at
// process start; requests served afterwards are never retried.
func WaitReady(ctx context.Context, c Client, timeout time.Duration, log zerolog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	attempt := 0
	op := func() error {
		attempt++
		err := c.Ping(ctx)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("remote store not ready")
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return Wrap("ping", "", err)
	}
	return nil
}
