package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skilldesk/skilldesk-backend/internal/response"
	"golang.org/x/crypto/bcrypt"
)

// RequireProctorKey gates the proctor monitor stream behind a shared access
// key. Only the bcrypt hash of the key is configured on the server; the
// plaintext travels in the X-Proctor-Key header, or in the ?key query param
// for WebSocket upgrade requests.
func RequireProctorKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Proctor-Key")
		if key == "" {
			key = c.Query("key")
		}
		if key == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrProctorKeyRequired)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			response.AbortFail(c, http.StatusForbidden, response.ErrProctorKeyInvalid)
			return
		}

		c.Next()
	}
}
