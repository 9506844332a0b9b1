package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"accounts-backend/internal/database"
	"accounts-backend/internal/middleware"
	"accounts-backend/internal/models"
	"accounts-backend/internal/security"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type registerForm struct {
	FirstName string `form:"first_name" json:"first_name" binding:"required"`
	LastName  string `form:"last_name" json:"last_name" binding:"required"`
	Email     string `form:"email" json:"email" binding:"required,email"`
	Password  string `form:"password" json:"password" binding:"required,min=6,max=72"`
}

// Register creates an account with the default role.
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}

	hash, err := security.HashPassword(form.Password)
	if err != nil {
		fail(c, err)
		return
	}

	user, err := h.Store.RegisterUser(c.Request.Context(), database.Registration{
		FirstName:    strings.TrimSpace(form.FirstName),
		LastName:     strings.TrimSpace(form.LastName),
		Email:        form.Email,
		PasswordHash: hash,
		RoleName:     h.DefaultRole,
	})
	if err != nil {
		if errors.Is(err, database.ErrUniqueViolation) {
			c.JSON(http.StatusConflict, gin.H{"detail": "USER_ALREADY_EXISTS"})
			return
		}
		fail(c, err)
		return
	}

	h.Store.RecordAudit(c.Request.Context(), &user.ID, models.AuditEntityUser, user.ID,
		models.AuditActionRegister, "registered "+user.Email)

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email, "active": user.Active})
}

type loginForm struct {
	Email      string `form:"email" json:"email" binding:"required"`
	Password   string `form:"password" json:"password" binding:"required"`
	Device     string `form:"device" json:"device" binding:"max=100"`
	AppVersion string `form:"app_version" json:"app_version" binding:"max=20"`
}

type tokenResponse struct {
	AccessToken    string    `json:"access_token"`
	TokenType      string    `json:"token_type"`
	ExpiresAt      time.Time `json:"expires_at"`
	RefreshToken   string    `json:"refresh_token"`
	RefreshExpires time.Time `json:"refresh_expires_at"`
	User           *userView `json:"user,omitempty"`
}

// Login checks credentials and opens a refresh session. The cookie session is set too,
// so browser clients can skip the Authorization header.
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}
	ctx := c.Request.Context()
	email := database.NormalizeEmail(form.Email)

	allowed, err := h.Limiter.Allow(ctx, email+"|"+c.ClientIP())
	if err != nil {
		log.Printf("rate limiter: %v", err)
		allowed = true
	}
	if !allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{"detail": "TOO_MANY_ATTEMPTS"})
		return
	}

	user, err := h.Store.UserByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		fail(c, err)
		return
	}
	// unknown and inactive accounts still pay for a bcrypt comparison
	hash := security.DummyHash()
	if user != nil && user.Active {
		hash = user.Password
	}
	passwordOK := security.CheckPassword(hash, form.Password)
	if user == nil || !user.Active || !passwordOK {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "INVALID_CREDENTIALS"})
		return
	}

	access, accessExp, err := h.Tokens.Issue(principal(user))
	if err != nil {
		fail(c, err)
		return
	}

	now := h.now()
	sess := &models.AppSession{
		UserID:       user.ID,
		RefreshToken: security.NewRefreshToken(),
		ExpiresAt:    now.Add(h.RefreshTokenTTL),
		Device:       form.Device,
		AppVersion:   form.AppVersion,
		IP:           clip(c.ClientIP(), 50),
		LastActivity: now,
	}
	if err := h.Store.CreateSession(ctx, sess); err != nil {
		fail(c, err)
		return
	}

	cookie := sessions.Default(c)
	cookie.Set(middleware.SessionUserID, user.ID)
	cookie.Set(middleware.SessionRole, roleName(user))
	if err := cookie.Save(); err != nil {
		log.Printf("save cookie session for user %d: %v", user.ID, err)
	}

	view := toUserView(user)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:    access,
		TokenType:      "bearer",
		ExpiresAt:      accessExp,
		RefreshToken:   sess.RefreshToken,
		RefreshExpires: sess.ExpiresAt,
		User:           &view,
	})
}

type refreshForm struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token" binding:"required"`
}

// Refresh issues a new access token for a live refresh session. The refresh token
// itself is replaced once less than RefreshRotateWithin of its lifetime remains.
func (h *Handler) Refresh(c *gin.Context) {
	var form refreshForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}
	ctx := c.Request.Context()
	now := h.now()

	sess, err := h.Store.ActiveSession(ctx, form.RefreshToken, now)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "REFRESH_INVALID"})
		return
	case errors.Is(err, database.ErrExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "REFRESH_EXPIRED"})
		return
	case err != nil:
		fail(c, err)
		return
	}
	if sess.User == nil || !sess.User.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "USER_INACTIVE"})
		return
	}

	refresh, refreshExp := sess.RefreshToken, sess.ExpiresAt
	var rotated string
	if sess.ExpiresAt.Sub(now) < h.RefreshRotateWithin {
		rotated = security.NewRefreshToken()
		refresh, refreshExp = rotated, now.Add(h.RefreshTokenTTL)
	}
	if err := h.Store.TouchSession(ctx, sess.ID, form.RefreshToken, now, rotated, refreshExp); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "REFRESH_INVALID"})
			return
		}
		fail(c, err)
		return
	}

	access, accessExp, err := h.Tokens.Issue(principal(sess.User))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:    access,
		TokenType:      "bearer",
		ExpiresAt:      accessExp,
		RefreshToken:   refresh,
		RefreshExpires: refreshExp,
	})
}

// Logout closes the refresh session and clears the cookie session.
func (h *Handler) Logout(c *gin.Context) {
	var form refreshForm
	if err := c.ShouldBind(&form); err != nil {
		invalid(c, err)
		return
	}

	if _, err := h.Store.DisableSession(c.Request.Context(), form.RefreshToken); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "SESSION_NOT_FOUND"})
			return
		}
		fail(c, err)
		return
	}

	cookie := sessions.Default(c)
	cookie.Clear()
	if err := cookie.Save(); err != nil {
		log.Printf("clear cookie session: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"detail": "LOGGED_OUT"})
}

// Me returns the authenticated account.
func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "TOKEN_INVALID"})
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func principal(u *models.User) security.Principal {
	return security.Principal{UserID: u.ID, Email: u.Email, Role: roleName(u)}
}

func roleName(u *models.User) string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
