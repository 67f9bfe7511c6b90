package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore forbids any caching of quiz state responses. A cached question view
// would show a stale countdown or, worse, replay a finished attempt.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
