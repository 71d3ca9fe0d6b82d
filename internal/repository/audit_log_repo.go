package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classworks/gradeflow/internal/models"
)

// AuditLogRepository persists the append-only audit trail of a run.
type AuditLogRepository interface {
	CreateBatch(ctx context.Context, entries []*models.AuditLog) error
	ListByRun(ctx context.Context, runID string) ([]models.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository constructs the audit log repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) CreateBatch(ctx context.Context, entries []*models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(entries).Error
}

func (r *auditLogRepository) ListByRun(ctx context.Context, runID string) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
