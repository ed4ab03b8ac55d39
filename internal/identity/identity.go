// Package identity turns bearer credentials into a stable subject.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopherai-chat/internal/config"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

const bearerPrefix = "Bearer "

// Subject is the verified caller. ID is the owner key of every session.
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Subject, error)
}

// ExtractBearer returns the token of an "Authorization: Bearer <token>"
// header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingCredential
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrMissingCredential
	}
	return token, nil
}

func NewVerifier(cfg config.AuthConfig) (Verifier, error) {
	switch cfg.Provider {
	case config.AuthProviderLocal:
		return NewLocalVerifier(cfg.JWTSecret), nil
	case config.AuthProviderFirebase:
		return NewFirebaseVerifier(cfg.FirebaseProjectID, cfg.FirebaseCertsURL, 10*time.Second), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.Provider)
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
}
