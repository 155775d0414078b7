package middlewares

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	required := slices.Clone(roles)

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)
		if !ok || role == "" {
			abortWithError(c, http.StatusUnauthorized, "Authentication required", nil)
			return
		}

		if !slices.Contains(required, role) {
			abortWithError(c, http.StatusForbidden, "Insufficient permissions", gin.H{
				"required": required,
				"current":  role,
			})
			return
		}
		c.Next()
	}
}
