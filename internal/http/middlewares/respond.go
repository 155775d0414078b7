package middlewares

import "github.com/gin-gonic/gin"

// RequestIDFrom returns the id set by RequestID, falling back to the header.
func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return c.GetHeader(requestIDHeader)
}

func abortWithError(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"error": message}
	if id := RequestIDFrom(c); id != "" {
		body["requestId"] = id
	}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}
