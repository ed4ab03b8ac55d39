package ai

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-chat/internal/config"
)

type scriptedGenerator struct {
	errs  []error
	calls int
}

func (g *scriptedGenerator) Generate(ctx context.Context, history []ChatTurn) (string, error) {
	idx := g.calls
	g.calls++
	if idx < len(g.errs) && g.errs[idx] != nil {
		return "", g.errs[idx]
	}
	return "ok", nil
}

// instantTimer fires immediately and records the requested delays.
type instantTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time { return t.c }

func newTestRetrier(next Generator, maxRetries int) (*RetryingGenerator, *[]time.Duration) {
	timer := &instantTimer{c: make(chan time.Time, 1)}
	g := NewRetryingGenerator(next, maxRetries, 10*time.Millisecond)
	g.timer = timer
	return g, &timer.delays
}

func TestRetryingGeneratorRetriesTransient(t *testing.T) {
	next := &scriptedGenerator{errs: []error{
		&StatusError{StatusCode: 429},
		&StatusError{StatusCode: 503},
	}}
	g, delays := newTestRetrier(next, 2)

	reply, err := g.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 3, next.calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *delays)
}

func TestRetryingGeneratorGivesUp(t *testing.T) {
	transient := &StatusError{StatusCode: 500}
	next := &scriptedGenerator{errs: []error{transient, transient, transient, transient}}
	g, _ := newTestRetrier(next, 2)

	_, err := g.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, next.calls)
}

func TestRetryingGeneratorSkipsPermanent(t *testing.T) {
	cases := []error{
		&StatusError{StatusCode: 400},
		ErrMalformedResponse,
		context.Canceled,
		errors.New("plain failure"),
	}
	for _, cause := range cases {
		next := &scriptedGenerator{errs: []error{cause}}
		g, _ := newTestRetrier(next, 3)

		_, err := g.Generate(context.Background(), nil)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, 1, next.calls)
	}
}

func TestRetryingGeneratorStopsOnCancelledContext(t *testing.T) {
	next := &scriptedGenerator{errs: []error{&StatusError{StatusCode: 502}}}
	g, _ := newTestRetrier(next, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestRetryingGeneratorRetriesNetworkErrors(t *testing.T) {
	next := &scriptedGenerator{errs: []error{&net.OpError{Op: "dial", Err: errors.New("connection refused")}}}
	g, delays := newTestRetrier(next, 1)

	reply, err := g.Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, 2, next.calls)
	assert.Len(t, *delays, 1)
}

func TestRetryingGeneratorNoRetriesConfigured(t *testing.T) {
	transient := &StatusError{StatusCode: 503}
	next := &scriptedGenerator{errs: []error{transient}}
	g, delays := newTestRetrier(next, 0)

	_, err := g.Generate(context.Background(), nil)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 1, next.calls)
	assert.Empty(t, *delays)
}

func TestNewGenerator(t *testing.T) {
	g, err := NewGenerator(config.LLMConfig{Provider: config.LLMProviderGemini, MaxRetries: 1})
	require.NoError(t, err)
	assert.IsType(t, &RetryingGenerator{}, g)

	_, err = NewGenerator(config.LLMConfig{Provider: config.LLMProviderOpenAI})
	require.NoError(t, err)

	_, err = NewGenerator(config.LLMConfig{Provider: "bard"})
	assert.Error(t, err)
}
