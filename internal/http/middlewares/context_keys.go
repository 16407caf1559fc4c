package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/zikenn26/CampusHub/internal/domain/user"
)

const (
	CtxRequestID = "ctx.requestID"

	ctxUserKey   = "auth.user"
	ctxUserIDKey = "auth.userID"
	ctxEmailKey  = "auth.email"
	ctxRoleKey   = "auth.role"
)

// Helpers so handlers don't need to know the magic keys.

// SetCurrentUser stamps the resolved account onto the request context.
// The auth middleware calls it after verifying a token; handler tests
// call it directly to simulate a signed-in request.
func SetCurrentUser(c *gin.Context, u user.User) {
	c.Set(ctxUserKey, u)
	c.Set(ctxUserIDKey, u.ID)
	c.Set(ctxEmailKey, u.Email)
	c.Set(ctxRoleKey, u.Role)
}

func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)

	if !ok {
		return user.User{}, false
	}

	u, ok := v.(user.User)

	return u, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxUserIDKey)

	if !ok {
		return "", false
	}

	id, ok := v.(string)

	return id, ok
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(ctxRoleKey)

	if !ok {
		return "", false
	}

	role, ok := v.(user.Role)

	return role, ok
}
