package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crew-schedule-bot/internal/models"
)

type ReconcileRunRepository interface {
	Create(ctx context.Context, run *models.ReconcileRun) error
	Latest(ctx context.Context, enterpriseID uuid.UUID, limit int) ([]models.ReconcileRun, error)
}

type GormReconcileRunRepository struct {
	db *gorm.DB
}

func (r *GormReconcileRunRepository) Create(ctx context.Context, run *models.ReconcileRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *GormReconcileRunRepository) Latest(ctx context.Context, enterpriseID uuid.UUID, limit int) ([]models.ReconcileRun, error) {
	var runs []models.ReconcileRun
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ?", enterpriseID).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
