package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"crew-schedule-bot/internal/models"
)

type LongAbsenceRepository interface {
	Create(ctx context.Context, absence *models.LongAbsence) error
	Update(ctx context.Context, absence *models.LongAbsence) error
	GetByID(ctx context.Context, enterpriseID uuid.UUID, id uint) (*models.LongAbsence, error)
	GetByWorkerID(ctx context.Context, enterpriseID uuid.UUID, workerID uint) ([]models.LongAbsence, error)
	WorkersAbsentBetween(ctx context.Context, enterpriseID uuid.UUID, from, to time.Time) (map[uint]bool, error)
}

type GormLongAbsenceRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func (r *GormLongAbsenceRepository) Create(ctx context.Context, absence *models.LongAbsence) error {
	absence.Normalize()
	if err := r.db.WithContext(ctx).Create(absence).Error; err != nil {
		r.logger.WithError(err).Error("Failed to create long absence")
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"id":        absence.ID,
		"worker_id": absence.WorkerID,
		"type":      absence.Type,
	}).Info("Long absence created")
	return nil
}

func (r *GormLongAbsenceRepository) Update(ctx context.Context, absence *models.LongAbsence) error {
	absence.Normalize()
	result := r.db.WithContext(ctx).Save(absence)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to update long absence")
		return result.Error
	}
	return nil
}

func (r *GormLongAbsenceRepository) GetByID(ctx context.Context, enterpriseID uuid.UUID, id uint) (*models.LongAbsence, error) {
	var absence models.LongAbsence
	err := r.db.WithContext(ctx).Where("enterprise_id = ?", enterpriseID).First(&absence, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &absence, nil
}

func (r *GormLongAbsenceRepository) GetByWorkerID(ctx context.Context, enterpriseID uuid.UUID, workerID uint) ([]models.LongAbsence, error) {
	var absences []models.LongAbsence
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ?", enterpriseID, workerID).
		Order("start_date DESC").
		Find(&absences).Error
	return absences, err
}

// WorkersAbsentBetween - работники с отсутствием, пересекающим [from, to].
// Пересечение считается в Go, чтобы не зависеть от представления дат в конкретной БД.
func (r *GormLongAbsenceRepository) WorkersAbsentBetween(ctx context.Context, enterpriseID uuid.UUID, from, to time.Time) (map[uint]bool, error) {
	var absences []models.LongAbsence
	if err := r.db.WithContext(ctx).Where("enterprise_id = ?", enterpriseID).Find(&absences).Error; err != nil {
		return nil, err
	}

	absent := make(map[uint]bool)
	for i := range absences {
		if absences[i].Overlaps(from, to) {
			absent[absences[i].WorkerID] = true
		}
	}
	return absent, nil
}
