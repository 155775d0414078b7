package handlers

import (
	"net/http"

	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// RespondError writes {"error": message, "requestId": ...} plus any extra
// top-level fields.
func RespondError(ctx *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"error": message}
	if id := middlewares.RequestIDFrom(ctx); id != "" {
		body["requestId"] = id
	}
	for k, v := range extra {
		body[k] = v
	}
	ctx.JSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	var extra gin.H
	if details != nil {
		extra = gin.H{"details": details}
	}
	RespondError(ctx, http.StatusBadRequest, message, extra)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, message, nil)
}

// RespondInternal hands err to the error middleware, which logs it and
// renders the 500.
func RespondInternal(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
