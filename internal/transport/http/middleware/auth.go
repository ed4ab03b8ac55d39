package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-chat/internal/identity"
	"gopherai-chat/internal/transport/http/response"
)

const ContextSubjectKey = "subject"

// AuthBearer verifies the bearer token before any handler runs. A missing
// credential is 401, one that fails verification is 403.
func AuthBearer(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := identity.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		subject, err := verifier.Verify(c.Request.Context(), token)
		if err != nil || subject.ID == "" {
			if err != nil && !errors.Is(err, identity.ErrInvalidCredential) {
				slog.WarnContext(c.Request.Context(), "token verification errored", "error", err)
			}
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextSubjectKey, subject)
		c.Next()
	}
}

func SubjectFromContext(c *gin.Context) (identity.Subject, bool) {
	value, exists := c.Get(ContextSubjectKey)
	if !exists {
		return identity.Subject{}, false
	}
	subject, ok := value.(identity.Subject)
	if !ok || subject.ID == "" {
		return identity.Subject{}, false
	}
	return subject, true
}
