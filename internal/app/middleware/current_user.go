package middleware

import (
	"github.com/gin-gonic/gin"

	"portal/internal/app/entitlement"
	"portal/internal/app/role"
)

const (
	ctxUserID    = "userID"
	ctxUserLogin = "userLogin"
	ctxUserRole  = "userRole"
)

// CurrentActor returns the authenticated staff member set by WithAuthCheck.
func CurrentActor(c *gin.Context) (entitlement.Actor, bool) {
	id, ok := c.Get(ctxUserID)
	if !ok {
		return entitlement.Actor{}, false
	}
	userID, ok := id.(uint)
	if !ok {
		return entitlement.Actor{}, false
	}
	actor := entitlement.Actor{ID: userID, Login: c.GetString(ctxUserLogin)}
	if r, ok := c.Get(ctxUserRole); ok {
		actor.Role, _ = r.(role.Role)
	}
	return actor, true
}
