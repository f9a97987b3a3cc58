package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hackhub/internal/auth"
	"hackhub/internal/dto"
	"hackhub/internal/service"
)

const accountIDKey = "account_id"

type Authenticator interface {
	Authenticate(token string, role auth.Role) (int64, error)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireRole rejects requests without a valid bearer token for role and
// stores the account id for the handlers.
func RequireRole(a Authenticator, role auth.Role, log *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			dto.ServiceError(c, log, service.ErrUnauthorized, false)
			c.Abort()
			return
		}
		id, err := a.Authenticate(token, role)
		if err != nil {
			var svcErr *service.Error
			if !errors.As(err, &svcErr) {
				svcErr = &service.Error{Kind: service.KindUnauthorized, Code: service.CodeUnauthorized, Message: service.ErrUnauthorized.Message, Err: err}
			}
			dto.ServiceError(c, log, svcErr, false)
			c.Abort()
			return
		}
		c.Set(accountIDKey, id)
		c.Next()
	}
}

// OptionalRole resolves the account when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalRole(a Authenticator, role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearer(c); token != "" {
			if id, err := a.Authenticate(token, role); err == nil {
				c.Set(accountIDKey, id)
			}
		}
		c.Next()
	}
}

// AccountID returns the authenticated account id or 0.
func AccountID(c *gin.Context) int64 {
	return c.GetInt64(accountIDKey)
}
