package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireJSON rejects write requests that carry a body in anything but JSON.
// Bodiless writes such as sign-out pass through.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength == 0 {
				break
			}
			ct := strings.ToLower(c.GetHeader("Content-Type"))
			// allow "application/json; charset=utf-8"
			if !strings.HasPrefix(ct, "application/json") {
				abortWithError(c, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
				return
			}
		}
		c.Next()
	}
}
