package database

import (
	"context"
	"fmt"
	"time"

	"accounts-backend/internal/models"
)

// CreateSession records a refresh-token session for a successful login.
func (s *Store) CreateSession(ctx context.Context, sess *models.AppSession) error {
	const op = "database.CreateSession"

	if err := requiredID("app_sessions.user_id", sess.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := required("app_sessions.refresh_token", sess.RefreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	now := time.Now()
	sess.Active = true
	if sess.LastActivity.IsZero() {
		sess.LastActivity = now
	}
	if err := db.Omit("User").Create(sess).Error; err != nil {
		return fmt.Errorf("%s: %w", op, translate(err))
	}
	return nil
}

// ActiveSession returns the live session for a refresh token, with its user,
// role and personal data loaded. Unknown or closed tokens fail with ErrNotFound;
// an expired session is disabled on the way out and fails with ErrExpired.
func (s *Store) ActiveSession(ctx context.Context, refreshToken string, now time.Time) (*models.AppSession, error) {
	const op = "database.ActiveSession"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var sess models.AppSession
	err := db.Preload("User.Role").Preload("User.PersonalData").
		Where("refresh_token = ? AND active = ?", refreshToken, true).
		First(&sess).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	if sess.Expired(now) {
		if err := db.Model(&models.AppSession{}).Where("id = ?", sess.ID).Update("active", false).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", op, translate(err))
		}
		return nil, fmt.Errorf("%s: %w", op, ErrExpired)
	}
	return &sess, nil
}

// TouchSession records activity on the session still holding oldToken and, when
// newToken is set, swaps the refresh token and its expiry. A session already rotated
// by a concurrent refresh fails with ErrNotFound.
func (s *Store) TouchSession(ctx context.Context, id uint, oldToken string, now time.Time, newToken string, newExpiry time.Time) error {
	const op = "database.TouchSession"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	updates := map[string]any{"last_activity": now}
	if newToken != "" {
		updates["refresh_token"] = newToken
		updates["expires_at"] = newExpiry
	}

	res := db.Model(&models.AppSession{}).Where("id = ? AND refresh_token = ? AND active = ?", id, oldToken, true).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// DisableSession closes the active session holding refreshToken and returns it.
func (s *Store) DisableSession(ctx context.Context, refreshToken string) (*models.AppSession, error) {
	const op = "database.DisableSession"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	var sess models.AppSession
	if err := db.Where("refresh_token = ? AND active = ?", refreshToken, true).First(&sess).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(err))
	}

	res := db.Model(&models.AppSession{}).Where("id = ? AND active = ?", sess.ID, true).Update("active", false)
	if res.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	sess.Active = false
	return &sess, nil
}

// DisableUserSessions closes every session of a user, used when the account is deactivated.
func (s *Store) DisableUserSessions(ctx context.Context, userID uint) (int64, error) {
	const op = "database.DisableUserSessions"

	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	res := db.Model(&models.AppSession{}).Where("user_id = ? AND active = ?", userID, true).Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("%s: %w", op, translate(res.Error))
	}
	return res.RowsAffected, nil
}
