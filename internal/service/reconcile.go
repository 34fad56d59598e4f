package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/repository"
	"crew-schedule-bot/pkg/weekkey"
)

// Scope сужает очистку до бригадира или одного работника (nil - без ограничения).
type Scope struct {
	SupervisorID *uint
	WorkerID     *uint
}

func (s Scope) String() string {
	switch {
	case s.WorkerID != nil:
		return fmt.Sprintf("worker:%d", *s.WorkerID)
	case s.SupervisorID != nil:
		return fmt.Sprintf("supervisor:%d", *s.SupervisorID)
	default:
		return "all"
	}
}

// ReconcileReport - итог прохода очистки призрачных табелей недели
type ReconcileReport struct {
	WeekKey       string
	PreviousWeek  string
	Scope         string
	ActiveWorkers []uint
	// Deleted - удаленные строки по таблицам
	Deleted map[string]int64
	// Orphans - удаленные призрачные табели
	Orphans []uint
	// Kept - призрачные табели работников с назначением в предыдущей неделе
	Kept []uint
	// Protected - сохранены из-за открытого длительного отсутствия
	Protected []uint
	Failures  []WorkerFailure
}

func (r *ReconcileReport) Err() error {
	return combineFailures(r.Failures)
}

type ReconcileOptions struct {
	// ProtectLongAbsence - не удалять призрак, если у работника есть отсутствие, пересекающее неделю
	ProtectLongAbsence bool
}

type ReconcileService struct {
	store  *repository.Store
	locks  *WorkerLocks
	opts   ReconcileOptions
	logger *logrus.Logger
}

func NewReconcileService(store *repository.Store, locks *WorkerLocks, opts ReconcileOptions) *ReconcileService {
	return &ReconcileService{
		store:  store,
		locks:  locks,
		opts:   opts,
		logger: newLogger(),
	}
}

// Reconcile удаляет призрачные табели недели, у работников которых нет назначений
// в предыдущей неделе. При scope.WorkerID удаляются все призраки этого работника в неделе.
func (s *ReconcileService) Reconcile(ctx context.Context, enterpriseID uuid.UUID, week weekkey.Key, scope Scope) (*ReconcileReport, error) {
	if enterpriseID == uuid.Nil {
		return nil, models.Validationf("enterprise is required")
	}
	if week.IsZero() {
		return nil, models.Validationf("week is required")
	}

	previous := week.Shift(-1)
	report := &ReconcileReport{
		WeekKey:      week.String(),
		PreviousWeek: previous.String(),
		Scope:        scope.String(),
		Deleted: map[string]int64{
			models.TableTimesheetDays:      0,
			models.TableTimesheetSignature: 0,
			models.TableTransportDays:      0,
			models.TableTransportHeaders:   0,
			models.TableTimesheets:         0,
		},
	}

	scopeWorkers, err := s.scopeWorkers(ctx, enterpriseID, scope)
	if err != nil {
		return nil, err
	}

	active, err := s.store.Assignments.DistinctWorkersInWeek(ctx, enterpriseID, previous.String(), scopeWorkers)
	if err != nil {
		return nil, err
	}
	report.ActiveWorkers = active
	activeSet := make(map[uint]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	ghosts, err := s.store.Timesheets.ListGhosts(ctx, enterpriseID, week.String(), scopeWorkers)
	if err != nil {
		return nil, err
	}

	absent := map[uint]bool{}
	if s.opts.ProtectLongAbsence && len(ghosts) > 0 {
		absent, err = s.store.Absences.WorkersAbsentBetween(ctx, enterpriseID, week.Monday(), week.Friday())
		if err != nil {
			return nil, err
		}
	}

	for i := range ghosts {
		ghost := &ghosts[i]

		if scope.WorkerID == nil && activeSet[ghost.WorkerID] {
			report.Kept = append(report.Kept, ghost.ID)
			continue
		}
		if absent[ghost.WorkerID] {
			report.Protected = append(report.Protected, ghost.ID)
			continue
		}

		counts, err := s.deleteOrphan(ctx, ghost)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"timesheet_id": ghost.ID,
				"worker_id":    ghost.WorkerID,
				"week_key":     ghost.WeekKey,
			}).Warn("Failed to delete orphan ghost timesheet")
			report.Failures = append(report.Failures, WorkerFailure{WorkerID: ghost.WorkerID, Op: "reconcile", Err: err})
			continue
		}

		for table, n := range counts {
			report.Deleted[table] += n
		}
		report.Orphans = append(report.Orphans, ghost.ID)
	}

	recordDeletedRows(report.Deleted)
	s.recordRun(ctx, enterpriseID, report)

	s.logger.WithFields(logrus.Fields{
		"week_key":  report.WeekKey,
		"scope":     report.Scope,
		"ghosts":    len(ghosts),
		"orphans":   len(report.Orphans),
		"kept":      len(report.Kept),
		"protected": len(report.Protected),
		"failed":    len(report.Failures),
	}).Info("Ghost timesheet reconciliation finished")
	return report, nil
}

// scopeWorkers - nil означает всех работников предприятия
func (s *ReconcileService) scopeWorkers(ctx context.Context, enterpriseID uuid.UUID, scope Scope) ([]uint, error) {
	switch {
	case scope.WorkerID != nil:
		return []uint{*scope.WorkerID}, nil
	case scope.SupervisorID != nil:
		ids, err := s.store.MasterData.WorkerIDsBySupervisor(ctx, enterpriseID, *scope.SupervisorID)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []uint{}
		}
		return ids, nil
	default:
		return nil, nil
	}
}

// deleteOrphan - каскад в порядке зависимостей одной транзакцией; при ошибке ничего не удаляется
func (s *ReconcileService) deleteOrphan(ctx context.Context, ghost *models.Timesheet) (map[string]int64, error) {
	unlock := s.locks.Lock(ghost.EnterpriseID, ghost.WorkerID)
	defer unlock()

	counts := make(map[string]int64)
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		step := func(table string, fn func() (int64, error)) error {
			n, err := fn()
			if err != nil {
				return &models.CascadeError{WorkerID: ghost.WorkerID, WeekKey: ghost.WeekKey, Table: table, Err: err}
			}
			counts[table] += n
			return nil
		}

		if err := step(models.TableTimesheetDays, func() (int64, error) {
			return tx.Timesheets.DeleteDays(ctx, ghost.ID)
		}); err != nil {
			return err
		}
		if err := step(models.TableTimesheetSignature, func() (int64, error) {
			return tx.Timesheets.DeleteSignatures(ctx, ghost.ID)
		}); err != nil {
			return err
		}

		headers, err := tx.Transports.ListGhostHeaders(ctx, ghost.EnterpriseID, ghost.WorkerID, ghost.WeekKey)
		if err != nil {
			return &models.CascadeError{WorkerID: ghost.WorkerID, WeekKey: ghost.WeekKey, Table: models.TableTransportHeaders, Err: err}
		}
		for _, h := range headers {
			if err := step(models.TableTransportDays, func() (int64, error) {
				return tx.Transports.DeleteDays(ctx, h.ID)
			}); err != nil {
				return err
			}
			if err := step(models.TableTransportHeaders, func() (int64, error) {
				return tx.Transports.DeleteHeader(ctx, h.ID)
			}); err != nil {
				return err
			}
		}

		return step(models.TableTimesheets, func() (int64, error) {
			return tx.Timesheets.DeleteHeader(ctx, ghost.ID)
		})
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// recordRun - журнал прохода; ошибка журнала не отменяет уже выполненную очистку
func (s *ReconcileService) recordRun(ctx context.Context, enterpriseID uuid.UUID, report *ReconcileReport) {
	counts := make(map[string]interface{}, len(report.Deleted))
	for table, n := range report.Deleted {
		counts[table] = n
	}

	run := &models.ReconcileRun{
		EnterpriseID: enterpriseID,
		WeekKey:      report.WeekKey,
		Scope:        report.Scope,
		Orphans:      len(report.Orphans),
		Failures:     len(report.Failures),
		Counts:       counts,
	}
	if err := s.store.ReconcileRun.Create(ctx, run); err != nil {
		s.logger.WithError(err).WithField("week_key", report.WeekKey).Warn("Failed to record reconcile run")
	}
}

// LatestRuns - последние проходы очистки для отображения
func (s *ReconcileService) LatestRuns(ctx context.Context, enterpriseID uuid.UUID, limit int) ([]models.ReconcileRun, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.ReconcileRun.Latest(ctx, enterpriseID, limit)
}
