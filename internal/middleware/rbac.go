package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
)

// RequireRoles only lets through callers whose token carries one of roles. Must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "").WithDetail("role", claims.Role))
			return
		}
		c.Next()
	}
}

// Admins is the role set allowed to manage classrooms, classes and registrations.
func Admins() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
}

// Schedulers may create and edit lessons and exams.
func Schedulers() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleTeacher)
}
