package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crew-schedule-bot/internal/models"
)

// MasterDataRepository - чтение справочников работников и объектов
type MasterDataRepository interface {
	GetWorker(ctx context.Context, enterpriseID uuid.UUID, workerID uint) (*models.Worker, error)
	GetSite(ctx context.Context, enterpriseID uuid.UUID, siteID uint) (*models.Site, error)
	WorkerIDsBySupervisor(ctx context.Context, enterpriseID uuid.UUID, supervisorID uint) ([]uint, error)
}

type GormMasterDataRepository struct {
	db *gorm.DB
}

func (r *GormMasterDataRepository) GetWorker(ctx context.Context, enterpriseID uuid.UUID, workerID uint) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.WithContext(ctx).Where("enterprise_id = ?", enterpriseID).First(&worker, workerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *GormMasterDataRepository) GetSite(ctx context.Context, enterpriseID uuid.UUID, siteID uint) (*models.Site, error) {
	var site models.Site
	err := r.db.WithContext(ctx).Where("enterprise_id = ?", enterpriseID).First(&site, siteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *GormMasterDataRepository) WorkerIDsBySupervisor(ctx context.Context, enterpriseID uuid.UUID, supervisorID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Worker{}).
		Where("enterprise_id = ? AND supervisor_id = ?", enterpriseID, supervisorID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
