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

type TimesheetRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Timesheet, error)
	FindHeader(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string, siteID *uint) (*models.Timesheet, error)
	LocateOrCreate(ctx context.Context, header *models.Timesheet) (*models.Timesheet, bool, error)
	ListByWorkerWeek(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string) ([]models.Timesheet, error)
	ListDays(ctx context.Context, timesheetID uint) ([]models.TimesheetDay, error)
	ReplaceDays(ctx context.Context, timesheet *models.Timesheet, days []models.TimesheetDay) error
	ListGhosts(ctx context.Context, enterpriseID uuid.UUID, weekKey string, workerIDs []uint) ([]models.Timesheet, error)
	ListOpenGhostsForWorker(ctx context.Context, enterpriseID uuid.UUID, workerID uint) ([]models.Timesheet, error)
	SetDaysAbsenceType(ctx context.Context, dayIDs []uint, absenceType string) (int64, error)
	AddSignature(ctx context.Context, signature *models.TimesheetSignature) error
	SetStatus(ctx context.Context, timesheetID uint, status string) error
	DeleteDays(ctx context.Context, timesheetID uint) (int64, error)
	DeleteSignatures(ctx context.Context, timesheetID uint) (int64, error)
	DeleteHeader(ctx context.Context, timesheetID uint) (int64, error)
}

type GormTimesheetRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func (r *GormTimesheetRepository) GetByID(ctx context.Context, id uint) (*models.Timesheet, error) {
	var timesheet models.Timesheet
	err := r.db.WithContext(ctx).First(&timesheet, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.WithField("id", id).Debug("Timesheet not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &timesheet, nil
}

// FindHeader - шапка по (worker, week, site); siteID == nil ищет призрачный табель
func (r *GormTimesheetRepository) FindHeader(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string, siteID *uint) (*models.Timesheet, error) {
	var timesheet models.Timesheet
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ? AND week_key = ? AND site_key = ?",
			enterpriseID, workerID, weekKey, models.SiteKeyOf(siteID)).
		First(&timesheet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to find timesheet header")
		return nil, err
	}
	return &timesheet, nil
}

// LocateOrCreate - поиск, затем вставка с ON CONFLICT DO NOTHING и повторный поиск.
// Второй флаг - шапка создана этим вызовом.
func (r *GormTimesheetRepository) LocateOrCreate(ctx context.Context, header *models.Timesheet) (*models.Timesheet, bool, error) {
	existing, err := r.FindHeader(ctx, header.EnterpriseID, header.WorkerID, header.WeekKey, header.SiteID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	created := &models.Timesheet{
		EnterpriseID: header.EnterpriseID,
		WorkerID:     header.WorkerID,
		WeekKey:      header.WeekKey,
		SiteID:       header.SiteID,
		Status:       header.Status,
		TotalHours:   header.TotalHours,
	}
	if created.Status == "" {
		created.Status = models.TimesheetStatusDraft
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(created)
	if result.Error != nil {
		r.logger.WithError(result.Error).Error("Failed to create timesheet header")
		return nil, false, result.Error
	}
	if result.RowsAffected == 1 {
		r.logger.WithFields(logrus.Fields{
			"id":        created.ID,
			"worker_id": created.WorkerID,
			"week_key":  created.WeekKey,
			"ghost":     created.IsGhost(),
		}).Info("Timesheet header created")
		return created, true, nil
	}

	// Параллельный писатель успел раньше
	existing, err = r.FindHeader(ctx, header.EnterpriseID, header.WorkerID, header.WeekKey, header.SiteID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, models.ErrConflict
	}
	return existing, false, nil
}

func (r *GormTimesheetRepository) ListByWorkerWeek(ctx context.Context, enterpriseID uuid.UUID, workerID uint, weekKey string) ([]models.Timesheet, error) {
	var timesheets []models.Timesheet
	err := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND worker_id = ? AND week_key = ?", enterpriseID, workerID, weekKey).
		Order("id ASC").
		Find(&timesheets).Error
	return timesheets, err
}

func (r *GormTimesheetRepository) ListDays(ctx context.Context, timesheetID uint) ([]models.TimesheetDay, error) {
	var days []models.TimesheetDay
	err := r.db.WithContext(ctx).
		Where("timesheet_id = ?", timesheetID).
		Order("date ASC").
		Find(&days).Error
	if err != nil {
		r.logger.WithError(err).WithField("timesheet_id", timesheetID).Error("Failed to list timesheet days")
		return nil, err
	}
	return days, nil
}

// ReplaceDays - удалить все дни табеля и вставить новые одной транзакцией, пересчитать итог часов
func (r *GormTimesheetRepository) ReplaceDays(ctx context.Context, timesheet *models.Timesheet, days []models.TimesheetDay) error {
	if err := models.ValidateDays(timesheet.WeekKey, days); err != nil {
		r.logger.WithFields(logrus.Fields{
			"timesheet_id": timesheet.ID,
			"week_key":     timesheet.WeekKey,
		}).Warn("Invalid timesheet days")
		return err
	}

	rows := make([]models.TimesheetDay, 0, len(days))
	for _, d := range days {
		d.ID = 0
		d.TimesheetID = timesheet.ID
		d.Date = weekkey.Date(d.Date)
		rows = append(rows, d)
	}
	total := models.SumHours(rows)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("timesheet_id = ?", timesheet.ID).Delete(&models.TimesheetDay{}).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Timesheet{}).Where("id = ?", timesheet.ID).UpdateColumn("total_hours", total).Error
	})
	if err != nil {
		r.logger.WithError(err).WithField("timesheet_id", timesheet.ID).Error("Failed to replace timesheet days")
		return err
	}

	timesheet.TotalHours = total
	timesheet.Days = rows
	r.logger.WithFields(logrus.Fields{
		"timesheet_id": timesheet.ID,
		"days":         len(rows),
		"total_hours":  total,
	}).Debug("Timesheet days replaced")
	return nil
}

// ListGhosts - призрачные табели недели; workerIDs сужает выборку (nil - все)
func (r *GormTimesheetRepository) ListGhosts(ctx context.Context, enterpriseID uuid.UUID, weekKey string, workerIDs []uint) ([]models.Timesheet, error) {
	query := r.db.WithContext(ctx).
		Where("enterprise_id = ? AND week_key = ? AND site_id IS NULL", enterpriseID, weekKey)
	if workerIDs != nil {
		query = query.Where("worker_id IN ?", nonEmpty(workerIDs))
	}

	var timesheets []models.Timesheet
	if err := query.Order("worker_id ASC, id ASC").Find(&timesheets).Error; err != nil {
		r.logger.WithError(err).Error("Failed to list ghost timesheets")
		return nil, err
	}
	return timesheets, nil
}

// ListOpenGhostsForWorker - неутвержденные призрачные табели работника с днями
func (r *GormTimesheetRepository) ListOpenGhostsForWorker(ctx context.Context, enterpriseID uuid.UUID, workerID uint) ([]models.Timesheet, error) {
	var timesheets []models.Timesheet
	err := r.db.WithContext(ctx).
		Preload("Days", func(db *gorm.DB) *gorm.DB { return db.Order("date ASC") }).
		Where("enterprise_id = ? AND worker_id = ? AND site_id IS NULL AND status <> ?",
			enterpriseID, workerID, models.TimesheetStatusValidated).
		Order("week_key ASC").
		Find(&timesheets).Error
	return timesheets, err
}

func (r *GormTimesheetRepository) SetDaysAbsenceType(ctx context.Context, dayIDs []uint, absenceType string) (int64, error) {
	if len(dayIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.TimesheetDay{}).
		Where("id IN ?", dayIDs).
		UpdateColumn("absence_type", absenceType)
	return result.RowsAffected, result.Error
}

func (r *GormTimesheetRepository) AddSignature(ctx context.Context, signature *models.TimesheetSignature) error {
	return r.db.WithContext(ctx).Create(signature).Error
}

func (r *GormTimesheetRepository) SetStatus(ctx context.Context, timesheetID uint, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Timesheet{}).
		Where("id = ?", timesheetID).
		UpdateColumn("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *GormTimesheetRepository) DeleteDays(ctx context.Context, timesheetID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("timesheet_id = ?", timesheetID).Delete(&models.TimesheetDay{})
	return result.RowsAffected, result.Error
}

func (r *GormTimesheetRepository) DeleteSignatures(ctx context.Context, timesheetID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("timesheet_id = ?", timesheetID).Delete(&models.TimesheetSignature{})
	return result.RowsAffected, result.Error
}

func (r *GormTimesheetRepository) DeleteHeader(ctx context.Context, timesheetID uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Timesheet{}, timesheetID)
	return result.RowsAffected, result.Error
}
