package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorHandler renders a 500 for errors handlers pushed with c.Error and did
// not answer themselves.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			log.ErrorContext(c.Request.Context(), "unhandled request error",
				"err", e.Err,
				"route", c.FullPath(),
				"request_id", RequestIDFrom(c),
			)
		}

		if c.Writer.Written() {
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}
