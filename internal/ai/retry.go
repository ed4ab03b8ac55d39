package ai

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryingGenerator retries transient failures of the wrapped generator with
// exponential backoff. Client errors and cancellation are returned at once.
type RetryingGenerator struct {
	next       Generator
	maxRetries int
	baseDelay  time.Duration
	timer      backoff.Timer
}

func NewRetryingGenerator(next Generator, maxRetries int, baseDelay time.Duration) *RetryingGenerator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &RetryingGenerator{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

func (g *RetryingGenerator) Generate(ctx context.Context, history []ChatTurn) (string, error) {
	var reply string
	attempt := 0
	operation := func() error {
		attempt++
		out, err := g.next.Generate(ctx, history)
		if err != nil {
			if !retryable(ctx, err) {
				return backoff.Permanent(err)
			}
			return err
		}
		reply = out
		return nil
	}
	notify := func(err error, delay time.Duration) {
		slog.WarnContext(ctx, "generation attempt failed, retrying",
			"attempt", attempt, "delay", delay, "error", err)
	}

	if err := backoff.RetryNotifyWithTimer(operation, g.policy(ctx), notify, g.timer); err != nil {
		return "", err
	}
	return reply, nil
}

func (g *RetryingGenerator) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	// The caller's context bounds total time.
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.maxRetries)), ctx)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
