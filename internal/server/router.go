package server

import (
	"net/http"

	"accounts-backend/internal/config"
	"accounts-backend/internal/database"
	"accounts-backend/internal/handlers"
	"accounts-backend/internal/middleware"
	"accounts-backend/internal/ratelimit"
	"accounts-backend/internal/security"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionCookie = "accounts_session"

func NewRouter(cfg *config.Config, store *database.Store, tokens *security.TokenIssuer, limiter ratelimit.Limiter) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}

	h := &handlers.Handler{
		Store:               store,
		Tokens:              tokens,
		Limiter:             limiter,
		DefaultRole:         cfg.DefaultRole,
		RefreshTokenTTL:     cfg.RefreshTokenTTL,
		RefreshRotateWithin: cfg.RefreshRotateWithin,
	}

	r := gin.Default()

	cookies := cookie.NewStore([]byte(cfg.SessionSecret))
	cookies.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   !cfg.Debug,
		SameSite: http.SameSiteStrictMode,
	})
	r.Use(sessions.Sessions(sessionCookie, cookies))

	r.GET("/", handlers.Index(r))
	r.GET("/health", handlers.Health)

	// public
	r.POST("/users/register", h.Register)
	login := r.Group("/login")
	login.POST("", h.Login)
	login.POST("/refresh", h.Refresh)
	login.POST("/logout", h.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth(store, tokens))
	auth.GET("/login/me", h.Me)

	admin := auth.Group("/")
	admin.Use(middleware.RequireRole(cfg.AdminRole))

	admin.GET("/roles", h.ListRoles)
	admin.POST("/roles", h.CreateRole)
	admin.DELETE("/roles/:id", h.DeleteRole)

	admin.POST("/personal-data", h.CreatePersonalData)

	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.GET("/users/by-email", h.UserByEmail)
	admin.POST("/users/:id/deactivate", h.DeactivateUser)
	admin.POST("/users/:id/reactivate", h.ReactivateUser)
	admin.DELETE("/users/:id", h.DeleteUser)

	admin.GET("/audit", h.ListAuditLogs)

	return r
}
