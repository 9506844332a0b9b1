package middleware

import (
	"errors"
	"log"
	"net/http"

	"accounts-backend/internal/database"
	"accounts-backend/internal/security"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys written at login.
const (
	SessionUserID = "user_id"
	SessionRole   = "role"
)

// RequireAuth accepts a Bearer access token or, for read-only requests, the login
// cookie session. The account is reloaded on every request, so a deactivated user is
// locked out before their token expires.
func RequireAuth(store *database.Store, tokens *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := principalID(c, tokens)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "TOKEN_INVALID"})
			return
		}

		user, err := store.UserByID(c.Request.Context(), userID)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				log.Printf("load current user %d: %v", userID, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "INTERNAL_ERROR"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "TOKEN_INVALID"})
			return
		}
		if !user.Active {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "USER_INACTIVE"})
			return
		}

		setCurrentUser(c, user)
		c.Next()
	}
}

func principalID(c *gin.Context, tokens *security.TokenIssuer) (uint, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		raw, ok := security.BearerToken(header)
		if !ok {
			return 0, false
		}
		p, err := tokens.Parse(raw)
		if err != nil {
			return 0, false
		}
		return p.UserID, true
	}

	if !safeMethod(c.Request.Method) {
		return 0, false
	}
	sess := sessions.Default(c)
	uid, ok := sess.Get(SessionUserID).(uint)
	return uid, ok && uid > 0
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := map[string]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || user.Role == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "TOKEN_INVALID"})
			return
		}
		if _, ok := roleSet[user.Role.Name]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "ACCESS_DENIED"})
			return
		}
		c.Next()
	}
}

// safeMethod reports whether a cookie alone may authenticate the request.
// State-changing calls need the Authorization header.
func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
