package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-api/internal/models"
	appErrors "github.com/noah-isme/training-api/pkg/errors"
	"github.com/noah-isme/training-api/pkg/response"
)

// RequireRoles admits callers whose role is listed. An empty list admits any
// authenticated caller.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if len(allowed) == 0 {
			c.Next()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}

// AnyRole admits every authenticated caller.
func AnyRole() gin.HandlerFunc {
	return RequireRoles()
}
