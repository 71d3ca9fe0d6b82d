package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classworks/gradeflow/internal/models"
)

// GradeRepository persists grading outcomes.
type GradeRepository interface {
	CreateBatch(ctx context.Context, records []*models.GradeRecord) error
	ListByRun(ctx context.Context, runID string) ([]models.GradeRecord, error)
	ListFlagged(ctx context.Context, runID string) ([]models.GradeRecord, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) CreateBatch(ctx context.Context, records []*models.GradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}

func (r *gradeRepository) ListByRun(ctx context.Context, runID string) ([]models.GradeRecord, error) {
	var records []models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *gradeRepository) ListFlagged(ctx context.Context, runID string) ([]models.GradeRecord, error) {
	var records []models.GradeRecord
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Where("flagged = ?", true).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
