package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skilldesk/skilldesk-backend/internal/response"
	"github.com/skilldesk/skilldesk-backend/internal/service"
)

const (
	// ContextKeySessionID is the Gin context key for the attempt's session ID.
	ContextKeySessionID = "session_id"
)

// RequireAttemptToken validates the attempt JWT from the Authorization header
// and binds the session ID into the request context. The ?token query param
// is accepted as a fallback for clients that cannot send headers.
func RequireAttemptToken(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		sessionID, err := tokens.ValidateAttemptToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeySessionID, sessionID)
		c.Next()
	}
}

// GetSessionID retrieves the authenticated session ID from the Gin context.
func GetSessionID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(ContextKeySessionID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := val.(uuid.UUID)
	return id, ok
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}
