package amqp

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	applog "fintrack/internal/shared/log"
)

const (
	baseBackoff = time.Second
	maxBackoff  = 30 * time.Second
)

// Dialer opens a fresh client. NewClient bound to its arguments is the usual one.
type Dialer func() (*Client, error)

// RunConsumer keeps a consumer attached to the queue across connection
// losses, reconnecting with exponential backoff. It returns nil once ctx
// is cancelled.
func RunConsumer(ctx context.Context, dial Dialer, handler Handler, logger zerolog.Logger) error {
	logger = applog.Component(logger, applog.ComponentAMQP)

	attempt := 0
	for {
		client, err := dial()
		if err == nil {
			attempt = 0
			err = client.ConsumeMaterializeRequests(ctx, handler)
			client.Close()
		}
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("consumer stopped")
		}

		wait := exponentialBackoff(attempt)
		attempt++
		logger.Warn().Err(err).Dur("retry_in", wait).Int("attempt", attempt).Msg("AMQP consumer disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// exponentialBackoff doubles from one second and caps at thirty.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	d := baseBackoff << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
