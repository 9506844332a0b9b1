package handlers

import (
	"time"

	"accounts-backend/internal/database"
	"accounts-backend/internal/ratelimit"
	"accounts-backend/internal/security"
)

// Handler holds what the HTTP endpoints share.
type Handler struct {
	Store   *database.Store
	Tokens  *security.TokenIssuer
	Limiter ratelimit.Limiter

	DefaultRole         string
	RefreshTokenTTL     time.Duration
	RefreshRotateWithin time.Duration

	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
