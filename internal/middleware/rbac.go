package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/class-treasury-api/internal/models"
	appErrors "github.com/noah-isme/class-treasury-api/pkg/errors"
)

// RequireRoles blocks requests whose authenticated role is not in the list.
// Viewers get read-only access; everything that moves money or edits the
// ledger is gated on the treasurer role.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			abort(c, appErrors.ErrUnauthorized)
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			abort(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireTreasurer is shorthand for the common mutation guard.
func RequireTreasurer() gin.HandlerFunc {
	return RequireRoles(models.RoleTreasurer)
}
