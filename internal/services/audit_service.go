package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/scorecheck/backend/internal/models"
	"gorm.io/gorm"
)

// Actor identifies who performed an admin action.
type Actor struct {
	ID    uuid.UUID
	Email string
	IP    string
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func (s *AuditService) Log(ctx context.Context, actor Actor, action, resourceType string, resourceID uuid.UUID, before, after models.JSONB) error {
	entry := &models.AuditLog{
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Before:       before,
		After:        after,
		IP:           actor.IP,
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// record logs an audit entry and only warns on failure; the audited write has
// already committed.
func (s *AuditService) record(ctx context.Context, actor Actor, action, resourceType string, resourceID uuid.UUID, after models.JSONB) {
	if s == nil {
		return
	}
	if err := s.Log(ctx, actor, action, resourceType, resourceID, nil, after); err != nil {
		slog.Warn("audit log write failed", "action", action, "resource", resourceType, "error", err)
	}
}

type ActivityEntry struct {
	models.AuditLog
	ActorName  string `json:"actor_name"`
	ActorEmail string `json:"actor_email"`
}

// Recent returns the latest audit entries joined with the acting admin.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	var out []ActivityEntry
	err := s.db.WithContext(ctx).Table("audit_logs").
		Select("audit_logs.*, admins.name as actor_name, admins.email as actor_email").
		Joins("LEFT JOIN admins ON audit_logs.actor_id = admins.id").
		Order("audit_logs.timestamp DESC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}
