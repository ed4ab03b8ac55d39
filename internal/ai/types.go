package ai

import (
	"context"
	"errors"
	"fmt"
)

// Turn roles understood by every generator.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// ErrMalformedResponse marks an upstream reply that could not be decoded
// into a completion. It is never retried.
var ErrMalformedResponse = errors.New("malformed llm response")

// ChatTurn is one entry of the history sent to a model.
type ChatTurn struct {
	Role string
	Text string
}

// Generator produces a single reply for a whole conversation history.
type Generator interface {
	Generate(ctx context.Context, history []ChatTurn) (string, error)
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s response status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
