package identity

import (
	"context"

	"gopherai-chat/internal/config"
	"gopherai-chat/internal/pkg/jwtutil"
)

// LocalVerifier accepts tokens issued by the built-in auth service.
type LocalVerifier struct {
	secret string
}

func NewLocalVerifier(secret string) *LocalVerifier {
	return &LocalVerifier{secret: secret}
}

func (v *LocalVerifier) Verify(ctx context.Context, token string) (Subject, error) {
	claims, err := jwtutil.ParseToken(v.secret, token)
	if err != nil {
		return Subject{}, invalid(err)
	}
	return Subject{
		ID:       claims.UserID,
		Name:     claims.Username,
		Provider: config.AuthProviderLocal,
	}, nil
}
