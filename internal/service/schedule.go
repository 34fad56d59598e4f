package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/repository"
	"crew-schedule-bot/pkg/weekkey"
)

// Роли подписи табеля
const (
	SignerWorker     = "worker"
	SignerSupervisor = "supervisor"
)

// UnassignResult - итог снятия назначения
type UnassignResult struct {
	Deleted int64
	// Reconcile - очистка недели, если у работника не осталось назначений в ней
	Reconcile *ReconcileReport
}

// ScheduleService - обычные действия планирования: назначения и сохранение недели
type ScheduleService struct {
	store      *repository.Store
	locks      *WorkerLocks
	reconciler *ReconcileService
	now        func() time.Time
	logger     *logrus.Logger
}

func NewScheduleService(store *repository.Store, locks *WorkerLocks, reconciler *ReconcileService, now func() time.Time) *ScheduleService {
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		store:      store,
		locks:      locks,
		reconciler: reconciler,
		now:        now,
		logger:     newLogger(),
	}
}

// AssignWeek ставит работника на объект в перечисленные будни недели (повторный вызов перезаписывает объект/машину)
func (s *ScheduleService) AssignWeek(ctx context.Context, enterpriseID uuid.UUID, workerID, siteID uint, vehicleID *uint, week weekkey.Key, days []time.Time) ([]models.Assignment, error) {
	if week.IsZero() {
		return nil, models.Validationf("week is required")
	}
	if len(days) == 0 {
		days = week.Weekdays()
	}

	assignments := make([]models.Assignment, 0, len(days))
	seen := make(map[time.Time]bool, len(days))
	for _, d := range days {
		d = weekkey.Date(d)
		if !week.ContainsWeekday(d) {
			return nil, models.Validationf("day %s is not a weekday of %s", d.Format(weekkey.DateLayout), week)
		}
		if seen[d] {
			continue
		}
		seen[d] = true

		a := models.Assignment{
			EnterpriseID: enterpriseID,
			WorkerID:     workerID,
			SiteID:       siteID,
			VehicleID:    vehicleID,
			Day:          d,
			WeekKey:      week.String(),
		}
		if err := models.ValidateStruct(&a); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	unlock := s.locks.Lock(enterpriseID, workerID)
	defer unlock()

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		for i := range assignments {
			if err := tx.Assignments.Upsert(ctx, &assignments[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"worker_id": workerID,
			"site_id":   siteID,
			"week_key":  week.String(),
		}).Error("Failed to assign worker week")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"site_id":   siteID,
		"week_key":  week.String(),
		"days":      len(assignments),
	}).Info("Worker assigned")
	return assignments, nil
}

// Unassign снимает назначение дня. Если в неделе у работника больше нет назначений,
// его призрачные табели этой недели вычищаются.
func (s *ScheduleService) Unassign(ctx context.Context, enterpriseID uuid.UUID, workerID uint, day time.Time) (*UnassignResult, error) {
	day = weekkey.Date(day)
	week := weekkey.FromDate(day)

	unlock := s.locks.Lock(enterpriseID, workerID)
	deleted, err := s.store.Assignments.Delete(ctx, enterpriseID, workerID, day)
	var remaining []models.Assignment
	if err == nil {
		remaining, err = s.store.Assignments.ListByWorkerWeek(ctx, enterpriseID, workerID, week.String())
	}
	unlock()
	if err != nil {
		return nil, err
	}

	result := &UnassignResult{Deleted: deleted}
	if deleted == 0 || len(remaining) > 0 {
		return result, nil
	}

	report, err := s.reconciler.Reconcile(ctx, enterpriseID, week, Scope{WorkerID: &workerID})
	if err != nil {
		return result, err
	}
	result.Reconcile = report

	s.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"day":       day.Format(weekkey.DateLayout),
		"orphans":   len(report.Orphans),
	}).Info("Worker unassigned")
	return result, nil
}

// SaveTimesheetWeek - находит или создает шапку и целиком заменяет ее дни
func (s *ScheduleService) SaveTimesheetWeek(ctx context.Context, header *models.Timesheet, days []models.TimesheetDay) (*models.Timesheet, error) {
	weekKey, err := weekkey.Normalize(header.WeekKey)
	if err != nil {
		return nil, models.Validationf("timesheet week: %v", err)
	}
	if header.EnterpriseID == uuid.Nil || header.WorkerID == 0 {
		return nil, models.Validationf("enterprise and worker are required")
	}
	header.WeekKey = weekKey
	if err := models.ValidateDays(weekKey, days); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(header.EnterpriseID, header.WorkerID)
	defer unlock()

	var saved *models.Timesheet
	save := func() error {
		return s.store.InTx(ctx, func(tx *repository.Store) error {
			timesheet, _, err := tx.Timesheets.LocateOrCreate(ctx, header)
			if err != nil {
				return err
			}
			if timesheet.IsFinalized() {
				return models.Validationf("timesheet %d is already validated", timesheet.ID)
			}
			if err := tx.Timesheets.ReplaceDays(ctx, timesheet, days); err != nil {
				return err
			}
			saved = timesheet
			return nil
		})
	}

	if err := s.retryConflict("save_timesheet", save); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"worker_id": header.WorkerID,
			"week_key":  weekKey,
		}).Error("Failed to save timesheet week")
		return nil, err
	}
	return saved, nil
}

// SaveTransportWeek - то же для транспортного листа
func (s *ScheduleService) SaveTransportWeek(ctx context.Context, header *models.TransportHeader, days []models.TransportDay) (*models.TransportHeader, error) {
	weekKey, err := weekkey.Normalize(header.WeekKey)
	if err != nil {
		return nil, models.Validationf("transport week: %v", err)
	}
	if header.EnterpriseID == uuid.Nil || header.WorkerID == 0 {
		return nil, models.Validationf("enterprise and worker are required")
	}
	header.WeekKey = weekKey
	if err := models.ValidateTransportDays(weekKey, days); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(header.EnterpriseID, header.WorkerID)
	defer unlock()

	var saved *models.TransportHeader
	save := func() error {
		return s.store.InTx(ctx, func(tx *repository.Store) error {
			transport, _, err := tx.Transports.LocateOrCreate(ctx, header)
			if err != nil {
				return err
			}
			if err := tx.Transports.ReplaceDays(ctx, transport, days); err != nil {
				return err
			}
			saved = transport
			return nil
		})
	}

	if err := s.retryConflict("save_transport", save); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"worker_id": header.WorkerID,
			"week_key":  weekKey,
		}).Error("Failed to save transport week")
		return nil, err
	}
	return saved, nil
}

// SignTimesheet - подпись работника переводит табель в submitted, подпись бригадира - в validated
func (s *ScheduleService) SignTimesheet(ctx context.Context, enterpriseID uuid.UUID, timesheetID, signedBy uint, role string) (*models.Timesheet, error) {
	var status string
	switch role {
	case SignerWorker:
		status = models.TimesheetStatusSubmitted
	case SignerSupervisor:
		status = models.TimesheetStatusValidated
	default:
		return nil, models.Validationf("signer role %q", role)
	}

	timesheet, err := s.store.Timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if timesheet == nil || timesheet.EnterpriseID != enterpriseID {
		return nil, models.ErrNotFound
	}
	if timesheet.IsFinalized() {
		return nil, models.Validationf("timesheet %d is already validated", timesheet.ID)
	}

	unlock := s.locks.Lock(enterpriseID, timesheet.WorkerID)
	defer unlock()

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := tx.Timesheets.AddSignature(ctx, &models.TimesheetSignature{
			TimesheetID: timesheet.ID,
			SignedBy:    signedBy,
			Role:        role,
			SignedAt:    s.now(),
		}); err != nil {
			return err
		}
		return tx.Timesheets.SetStatus(ctx, timesheet.ID, status)
	})
	if err != nil {
		return nil, err
	}

	timesheet.Status = status
	s.logger.WithFields(logrus.Fields{
		"timesheet_id": timesheet.ID,
		"signed_by":    signedBy,
		"status":       status,
	}).Info("Timesheet signed")
	return timesheet, nil
}

// retryConflict - один повтор со свежим чтением, затем ErrConflict
func (s *ScheduleService) retryConflict(op string, fn func() error) error {
	err := fn()
	if !isConflict(err) {
		return err
	}

	err = fn()
	if isConflict(err) {
		recordConflict(op, "surfaced")
		return fmt.Errorf("%w: %w", models.ErrConflict, err)
	}
	recordConflict(op, "retried")
	return err
}
