package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/repository"
	"crew-schedule-bot/pkg/weekkey"
)

type GhostOutcome string

const (
	GhostCreated       GhostOutcome = "created"
	GhostAlreadyExists GhostOutcome = "already_exists"
	GhostNoOverlap     GhostOutcome = "no_overlap"
	GhostTypeUpdated   GhostOutcome = "type_updated"
	GhostUnchanged     GhostOutcome = "unchanged"
)

// GhostResult - итог генерации/обновления призрачного табеля по отсутствию
type GhostResult struct {
	Outcome     GhostOutcome
	WorkerID    uint
	WeekKey     string
	TimesheetID uint
	Days        int
	// UpdatedDays - дни, получившие новый тип отсутствия
	UpdatedDays int64
}

type AbsenceService struct {
	store  *repository.Store
	locks  *WorkerLocks
	now    func() time.Time
	logger *logrus.Logger
}

func NewAbsenceService(store *repository.Store, locks *WorkerLocks, now func() time.Time) *AbsenceService {
	if now == nil {
		now = time.Now
	}
	return &AbsenceService{
		store:  store,
		locks:  locks,
		now:    now,
		logger: newLogger(),
	}
}

// RegisterAbsence сохраняет длительное отсутствие и сразу материализует призрак текущей недели
func (s *AbsenceService) RegisterAbsence(ctx context.Context, absence *models.LongAbsence) (*GhostResult, error) {
	if err := validateAbsence(absence); err != nil {
		return nil, err
	}
	if err := s.store.Absences.Create(ctx, absence); err != nil {
		return nil, err
	}
	return s.OnAbsenceCreated(ctx, absence)
}

// ChangeAbsence применяет изменения к отсутствию и переносит новый тип на уже отмеченные дни
func (s *AbsenceService) ChangeAbsence(ctx context.Context, enterpriseID uuid.UUID, id uint, change func(*models.LongAbsence)) (*GhostResult, error) {
	absence, err := s.store.Absences.GetByID(ctx, enterpriseID, id)
	if err != nil {
		return nil, err
	}
	if absence == nil {
		return nil, models.ErrNotFound
	}

	previous := *absence
	change(absence)
	absence.ID = previous.ID
	absence.EnterpriseID = previous.EnterpriseID
	absence.WorkerID = previous.WorkerID

	if err := validateAbsence(absence); err != nil {
		return nil, err
	}
	if err := s.store.Absences.Update(ctx, absence); err != nil {
		return nil, err
	}
	return s.OnAbsenceUpdated(ctx, &previous, absence)
}

// OnAbsenceCreated создает призрачный табель текущей недели с нулевыми днями отсутствия,
// если отсутствие пересекает будни текущей недели и призрака еще нет.
func (s *AbsenceService) OnAbsenceCreated(ctx context.Context, absence *models.LongAbsence) (*GhostResult, error) {
	absence.Normalize()
	week := weekkey.FromDate(s.now())
	monday, friday := week.Monday(), week.Friday()

	result := &GhostResult{WorkerID: absence.WorkerID, WeekKey: week.String()}

	if !absence.Overlaps(monday, friday) {
		result.Outcome = GhostNoOverlap
		recordGhost(result.Outcome)
		s.logger.WithFields(logrus.Fields{
			"absence_id": absence.ID,
			"worker_id":  absence.WorkerID,
			"week_key":   result.WeekKey,
		}).Debug("Absence does not overlap current week")
		return result, nil
	}

	from := monday
	if absence.StartDate.After(from) {
		from = absence.StartDate
	}
	to := friday
	if absence.EndDate != nil && absence.EndDate.Before(to) {
		to = *absence.EndDate
	}

	unlock := s.locks.Lock(absence.EnterpriseID, absence.WorkerID)
	defer unlock()

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		existing, err := tx.Timesheets.FindHeader(ctx, absence.EnterpriseID, absence.WorkerID, week.String(), nil)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Outcome = GhostAlreadyExists
			result.TimesheetID = existing.ID
			return nil
		}

		header, created, err := tx.Timesheets.LocateOrCreate(ctx, &models.Timesheet{
			EnterpriseID: absence.EnterpriseID,
			WorkerID:     absence.WorkerID,
			WeekKey:      week.String(),
			Status:       models.TimesheetStatusDraft,
		})
		if err != nil {
			return err
		}
		result.TimesheetID = header.ID
		if !created {
			result.Outcome = GhostAlreadyExists
			return nil
		}

		var days []models.TimesheetDay
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if !week.ContainsWeekday(d) {
				continue
			}
			absenceType := absence.Type
			days = append(days, models.TimesheetDay{
				Date:        d,
				HoursNormal: 0,
				AbsenceType: &absenceType,
			})
		}

		if err := tx.Timesheets.ReplaceDays(ctx, header, days); err != nil {
			return err
		}
		result.Outcome = GhostCreated
		result.Days = len(days)
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"absence_id": absence.ID,
			"worker_id":  absence.WorkerID,
			"week_key":   result.WeekKey,
		}).Error("Failed to materialize ghost timesheet")
		return nil, err
	}

	recordGhost(result.Outcome)
	s.logger.WithFields(logrus.Fields{
		"absence_id":   absence.ID,
		"worker_id":    absence.WorkerID,
		"week_key":     result.WeekKey,
		"timesheet_id": result.TimesheetID,
		"outcome":      result.Outcome,
		"days":         result.Days,
	}).Info("Absence ghost timesheet processed")
	return result, nil
}

// OnAbsenceUpdated переносит новый тип отсутствия на дни неутвержденных призрачных табелей
// внутри периода, которые уже были днями отсутствия. Отработанные дни не трогаются.
// Если период после изменения задевает текущую неделю, призрак создается как при создании.
func (s *AbsenceService) OnAbsenceUpdated(ctx context.Context, previous, updated *models.LongAbsence) (*GhostResult, error) {
	updated.Normalize()
	result := &GhostResult{
		Outcome:  GhostUnchanged,
		WorkerID: updated.WorkerID,
		WeekKey:  weekkey.FromDate(s.now()).String(),
	}

	if previous == nil || previous.Type != updated.Type {
		unlock := s.locks.Lock(updated.EnterpriseID, updated.WorkerID)
		err := s.store.InTx(ctx, func(tx *repository.Store) error {
			ghosts, err := tx.Timesheets.ListOpenGhostsForWorker(ctx, updated.EnterpriseID, updated.WorkerID)
			if err != nil {
				return err
			}

			var dayIDs []uint
			for _, ghost := range ghosts {
				for _, d := range ghost.Days {
					if d.IsAbsence() && updated.Covers(d.Date) && *d.AbsenceType != updated.Type {
						dayIDs = append(dayIDs, d.ID)
					}
				}
			}

			n, err := tx.Timesheets.SetDaysAbsenceType(ctx, dayIDs, updated.Type)
			if err != nil {
				return err
			}
			result.UpdatedDays = n
			return nil
		})
		unlock()
		if err != nil {
			s.logger.WithError(err).WithField("absence_id", updated.ID).Error("Failed to propagate absence type")
			return nil, err
		}
		result.Outcome = GhostTypeUpdated
	}

	if previous != nil && !datesChanged(previous, updated) {
		recordGhost(result.Outcome)
		return result, nil
	}

	created, err := s.OnAbsenceCreated(ctx, updated)
	if err != nil {
		return nil, err
	}
	if created.Outcome == GhostCreated {
		created.UpdatedDays = result.UpdatedDays
		return created, nil
	}
	result.TimesheetID = created.TimesheetID
	return result, nil
}

func datesChanged(a, b *models.LongAbsence) bool {
	if !weekkey.Date(a.StartDate).Equal(weekkey.Date(b.StartDate)) {
		return true
	}
	if (a.EndDate == nil) != (b.EndDate == nil) {
		return true
	}
	return a.EndDate != nil && !weekkey.Date(*a.EndDate).Equal(weekkey.Date(*b.EndDate))
}

func validateAbsence(absence *models.LongAbsence) error {
	if err := models.ValidateStruct(absence); err != nil {
		return err
	}
	if absence.EndDate != nil && absence.EndDate.Before(absence.StartDate) {
		return models.Validationf("absence ends before it starts")
	}
	return nil
}

// WorkerAbsences - отсутствия работника, новые сверху
func (s *AbsenceService) WorkerAbsences(ctx context.Context, enterpriseID uuid.UUID, workerID uint) ([]models.LongAbsence, error) {
	return s.store.Absences.GetByWorkerID(ctx, enterpriseID, workerID)
}
