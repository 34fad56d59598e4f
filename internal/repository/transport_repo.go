package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/pkg/weekkey"
)

type TransportRepository interface {
	FindHeader(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string, siteID *uint) (*models.TransportHeader, error)
	LocateOrCreate(ctx context.Context, header *models.TransportHeader) (*models.TransportHeader, bool, error)
	ListDays(ctx context.Context, headerID uint) ([]models.TransportDay, error)
	ReplaceDays(ctx context.Context, header *models.TransportHeader, days []models.TransportDay) error
	ListGhostHeaders(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string) ([]models.TransportHeader, error)
	DeleteDays(ctx context.Context, headerID uint) (int64, error)
	DeleteHeader(ctx context.Context, headerID uint) (int64, error)
}

type GormTransportRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func (r *GormTransportRepository) FindHeader(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string, siteID *uint) (*models.TransportHeader, error) {
	var header models.TransportHeader
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ? AND week_key = ? AND site_key = ?",
			enterpriseID, workerID, weekKey, models.SiteKeyOf(siteID)).
		First(&header).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to find transport header")
		return nil, err
	}
	return &header, nil
}

func (r *GormTransportRepository) LocateOrCreate(ctx context.Context, header *models.TransportHeader) (*models.TransportHeader, bool, error) {
	existing, err := r.FindHeader(ctx, header.EnterpriseID, header.WorkerID, header.WeekKey, header.SiteID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	created := &models.TransportHeader{
		EnterpriseID: header.EnterpriseID,
		WorkerID:     header.WorkerID,
		WeekKey:      header.WeekKey,
		SiteID:       header.SiteID,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(created)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create transport header")
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		r.logger.WithFields(logrus.Fields{
			"id":        created.ID,
			"worker_id": created.WorkerID,
			"week_key":  created.WeekKey,
		}).Info("Transport header created")
		return created, true, nil
	}

	existing, err = r.FindHeader(ctx, header.EnterpriseID, header.WorkerID, header.WeekKey, header.SiteID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, models.ErrConflict
	}
	return existing, false, nil
}

func (r *GormTransportRepository) ListDays(ctx context.Context, headerID uint) ([]models.TransportDay, error) {
	var days []models.TransportDay
	err := r.db.WithContext(ctx).
		Where("transport_header_id = ?", headerID).
		Order("date ASC, period DESC").
		Find(&days).Error
	return days, err
}

func (r *GormTransportRepository) ReplaceDays(ctx context.Context, header *models.TransportHeader, days []models.TransportDay) error {
	if err := models.ValidateTransportDays(header.WeekKey, days); err != nil {
		return err
	}

	rows := make([]models.TransportDay, 0, len(days))
	for _, d := range days {
		d.ID = 0
		d.TransportHeaderID = header.ID
		d.Date = weekkey.Date(d.Date)
		rows = append(rows, d)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transport_header_id = ?", header.ID).Delete(&models.TransportDay{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		r.logger.WithError(err).WithField("transport_header_id", header.ID).Error("Failed to replace transport days")
		return err
	}

	header.Days = rows
	return nil
}

// ListGhostHeaders - транспортные листы работника за неделю без объекта
func (r *GormTransportRepository) ListGhostHeaders(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string) ([]models.TransportHeader, error) {
	var headers []models.TransportHeader
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ? AND week_key = ? AND site_id IS NULL", enterpriseID, workerID, weekKey).
		Order("id ASC").
		Find(&headers).Error
	return headers, err
}

func (r *GormTransportRepository) DeleteDays(ctx context.Context, headerID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("transport_header_id = ?", headerID).Delete(&models.TransportDay{})
	return result.RowsAffected, result.Error
}

func (r *GormTransportRepository) DeleteHeader(ctx context.Context, headerID uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.TransportHeader{}, headerID)
	return result.RowsAffected, result.Error
}
