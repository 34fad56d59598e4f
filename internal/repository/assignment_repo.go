package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/pkg/weekkey"
)

type AssignmentRepository interface {
	Upsert(ctx context.Context, assignment *models.Assignment) error
	GetByWorkerDay(ctx context.Context, enterpriseID uuid.UUID, workerID uint, day time.Time) (*models.Assignment, error)
	ListByWorkerWeek(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string) ([]models.Assignment, error)
	DistinctWorkersInWeek(ctx context.Context, enterpriseID uuid.UUID, weekKey string, workerIDs []uint) ([]uint, error)
	WorkersOnSite(ctx context.Context, enterpriseID uuid.UUID, siteID uint, weekKey string) ([]uint, error)
	Delete(ctx context.Context, enterpriseID uuid.UUID, workerID uint, day time.Time) (int64, error)
}

type GormAssignmentRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Upsert по (enterprise, worker, day): повторная запись переназначает объект, а не дублирует строку
func (r *GormAssignmentRepository) Upsert(ctx context.Context, assignment *models.Assignment) error {
	assignment.Day = weekkey.Date(assignment.Day)
	assignment.WeekKey = weekkey.FromDate(assignment.Day).String()

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "enterprise_id"}, {Name: "worker_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"site_id", "vehicle_id", "week_key", "updated_at",
		}),
	}).Create(assignment)
	if result.Error != nil {
		r.logger.WithError(result.Error).WithFields(logrus.Fields{
			"worker_id": assignment.WorkerID,
			"day":       assignment.Day.Format(weekkey.DateLayout),
		}).Error("Failed to upsert assignment")
		return result.Error
	}

	r.logger.WithFields(logrus.Fields{
		"worker_id": assignment.WorkerID,
		"site_id":   assignment.SiteID,
		"day":       assignment.Day.Format(weekkey.DateLayout),
	}).Debug("Assignment upserted")
	return nil
}

func (r *GormAssignmentRepository) GetByWorkerDay(ctx context.Context, enterpriseID uuid.UUID, workerID uint, day time.Time) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ? AND day = ?", enterpriseID, workerID, weekkey.Date(day)).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *GormAssignmentRepository) ListByWorkerWeek(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ? AND week_key = ?", enterpriseID, workerID, weekKey).
		Order("day ASC").
		Find(&assignments).Error
	if err != nil {
		r.logger.WithError(err).Error("Failed to list assignments by worker/week")
		return nil, err
	}
	return assignments, nil
}

// DistinctWorkersInWeek - работники с хотя бы одним назначением в неделе; workerIDs сужает выборку (nil - все)
func (r *GormAssignmentRepository) DistinctWorkersInWeek(ctx context.Context, enterpriseID uuid.UUID, weekKey string, workerIDs []uint) ([]uint, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("enterprise_id = ? AND week_key = ?", enterpriseID, weekKey)
	if workerIDs != nil {
		query = query.Where("worker_id IN ?", nonEmpty(workerIDs))
	}

	var ids []uint
	if err := query.Distinct().Order("worker_id ASC").Pluck("worker_id", &ids).Error; err != nil {
		r.logger.WithError(err).Error("Failed to list active workers")
		return nil, err
	}
	return ids, nil
}

// WorkersOnSite - бригада объекта за неделю
func (r *GormAssignmentRepository) WorkersOnSite(ctx context.Context, enterpriseID uuid.UUID, siteID uint, weekKey string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("enterprise_id = ? AND site_id = ? AND week_key = ?", enterpriseID, siteID, weekKey).
		Distinct().Order("worker_id ASC").
		Pluck("worker_id", &ids).Error
	return ids, err
}

func (r *GormAssignmentRepository) Delete(ctx context.Context, enterpriseID uuid.UUID, workerID uint, day time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ? AND day = ?", enterpriseID, workerID, weekkey.Date(day)).
		Delete(&models.Assignment{})
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to delete assignment")
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// nonEmpty - IN () с пустым списком недопустим, подставляем невозможный id
func nonEmpty(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{0}
	}
	return ids
}
