package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies; n <= 0 disables the cap.
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if n > 0 && ctx.Request.Body != nil {
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, n)
		}
		ctx.Next()
	}
}
