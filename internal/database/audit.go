package database

import (
	"context"
	"log"

	"accounts-backend/internal/models"
)

// RecordAudit writes an audit entry. Failures are logged, never returned:
// the audited change has already been committed.
func (s *Store) RecordAudit(ctx context.Context, actorID *uint, entity string, entityID uint, action, details string) {
	db, cancel := s.conn(ctx, queryTimeout)
	defer cancel()

	record := models.AuditLog{
		UserID:   actorID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := db.Omit("User").Create(&record).Error; err != nil {
		log.Printf("failed to write audit log (%s %s #%d): %v", action, entity, entityID, err)
	}
}

// AuditLogs returns the newest entries first.
func (s *Store) AuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	limit, _ = pageBounds(limit, 0)

	db, cancel := s.conn(ctx, listTimeout)
	defer cancel()

	var logs []models.AuditLog
	if err := db.Order("created_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, translate(err)
	}
	return logs, nil
}
