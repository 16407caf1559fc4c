package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/domain/user"
)

// Capability gates. These run after RequireAuth, so a missing role in
// the context means the chain is wired wrong, not that the caller is
// anonymous.

func (m *AuthMiddleware) RequireModerator() gin.HandlerFunc {
	return requireCapability(user.Role.CanModerate, "Verifier role required")
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return requireCapability(user.Role.CanManageUsers, "Admin role required")
}

func (m *AuthMiddleware) RequireDirectoryManager() gin.HandlerFunc {
	return requireCapability(user.Role.CanManageDirectory, "Faculty or admin role required")
}

func (m *AuthMiddleware) RequireTimetableManager() gin.HandlerFunc {
	return requireCapability(user.Role.CanManageTimetable, "Staff role required")
}

func requireCapability(allowed func(user.Role) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		if !allowed(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": message,
				},
			})
			return
		}

		c.Next()
	}
}
