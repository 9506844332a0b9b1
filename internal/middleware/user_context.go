package middleware

import (
	"accounts-backend/internal/models"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "CurrentUser"

func setCurrentUser(c *gin.Context, u *models.User) {
	c.Set(currentUserKey, u)
}

// CurrentUser returns the account loaded by RequireAuth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}

// CurrentUserID is the audit actor for the request, nil when anonymous.
func CurrentUserID(c *gin.Context) *uint {
	u, ok := CurrentUser(c)
	if !ok {
		return nil
	}
	id := u.ID
	return &id
}
