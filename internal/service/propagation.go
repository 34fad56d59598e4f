package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/repository"
	"crew-schedule-bot/pkg/weekkey"
)

// Итог переноса недели одного работника
const (
	OutcomePropagated    = "propagated"
	OutcomeNothingToCopy = "nothing_to_copy"
	OutcomeFailed        = "failed"
)

// PropagationResult - что записано при переносе недели работника
type PropagationResult struct {
	WorkerID         uint
	Source           string
	Dest             string
	Outcome          string
	Assignments      int
	Timesheets       int
	TimesheetDays    int
	TransportHeaders int
	TransportDays    int
	// SitesWithoutTimesheet - объекты с назначениями, но без исходного табеля
	SitesWithoutTimesheet []uint
}

// CrewReport - итог переноса бригады: успешные результаты и ошибки по работникам
type CrewReport struct {
	Source   string
	Dest     string
	Results  []*PropagationResult
	Failures []WorkerFailure
}

// Err - все ошибки работников одной ошибкой (nil если ошибок нет)
func (r *CrewReport) Err() error {
	return combineFailures(r.Failures)
}

type PropagationService struct {
	store   *repository.Store
	locks   *WorkerLocks
	workers int
	logger  *logrus.Logger
}

func NewPropagationService(store *repository.Store, locks *WorkerLocks, workers int) *PropagationService {
	if workers < 1 {
		workers = 1
	}
	return &PropagationService{
		store:   store,
		locks:   locks,
		workers: workers,
		logger:  newLogger(),
	}
}

// sourceSite - снимок исходной недели по одному объекту
type sourceSite struct {
	siteID        uint
	timesheet     *models.Timesheet
	timesheetDays []models.TimesheetDay
	transport     *models.TransportHeader
	transportDays []models.TransportDay
}

// PropagateNextWeek - перенос на следующую неделю
func (s *PropagationService) PropagateNextWeek(ctx context.Context, enterpriseID uuid.UUID, workerID uint, source weekkey.Key) (*PropagationResult, error) {
	return s.Propagate(ctx, enterpriseID, workerID, source, source.Shift(1))
}

// Propagate копирует назначения, табели и транспорт работника из source в dest со сдвигом дат
// на разницу понедельников. Повторный вызов приводит к тому же состоянию.
func (s *PropagationService) Propagate(ctx context.Context, enterpriseID uuid.UUID, workerID uint, source, dest weekkey.Key) (*PropagationResult, error) {
	if enterpriseID == uuid.Nil || workerID == 0 {
		return nil, models.Validationf("enterprise and worker are required")
	}
	if source.IsZero() || dest.IsZero() {
		return nil, models.Validationf("source and destination weeks are required")
	}

	unlock := s.locks.Lock(enterpriseID, workerID)
	defer unlock()

	result, err := s.propagateOnce(ctx, enterpriseID, workerID, source, dest)
	if isConflict(err) {
		s.logger.WithFields(logrus.Fields{
			"worker_id": workerID,
			"source":    source.String(),
			"dest":      dest.String(),
		}).Warn("Write conflict during propagation, retrying with fresh reads")

		result, err = s.propagateOnce(ctx, enterpriseID, workerID, source, dest)
		if isConflict(err) {
			recordConflict("propagate", "surfaced")
			err = fmt.Errorf("%w: %w", models.ErrConflict, err)
		} else {
			recordConflict("propagate", "retried")
		}
	}
	if err != nil {
		recordPropagation(OutcomeFailed)
		s.logger.WithError(err).WithFields(logrus.Fields{
			"worker_id": workerID,
			"source":    source.String(),
			"dest":      dest.String(),
		}).Error("Failed to propagate worker week")
		return nil, err
	}

	recordPropagation(result.Outcome)
	s.logger.WithFields(logrus.Fields{
		"worker_id":      workerID,
		"source":         result.Source,
		"dest":           result.Dest,
		"outcome":        result.Outcome,
		"assignments":    result.Assignments,
		"timesheet_days": result.TimesheetDays,
		"transport_days": result.TransportDays,
	}).Info("Worker week propagated")
	return result, nil
}

func (s *PropagationService) propagateOnce(ctx context.Context, enterpriseID uuid.UUID, workerID uint, source, dest weekkey.Key) (*PropagationResult, error) {
	result := &PropagationResult{
		WorkerID: workerID,
		Source:   source.String(),
		Dest:     dest.String(),
		Outcome:  OutcomeNothingToCopy,
	}
	delta := weekkey.DayDelta(source, dest)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		// Исходная неделя читается один раз до любых записей
		assignments, err := tx.Assignments.ListByWorkerWeek(ctx, enterpriseID, workerID, source.String())
		if err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}

		sites, err := s.readSourceSites(ctx, tx, enterpriseID, workerID, source, assignments)
		if err != nil {
			return err
		}

		for _, a := range assignments {
			shifted := models.Assignment{
				EnterpriseID: enterpriseID,
				WorkerID:     workerID,
				SiteID:       a.SiteID,
				VehicleID:    a.VehicleID,
				Day:          weekkey.ShiftDate(a.Day, delta),
			}
			if err := tx.Assignments.Upsert(ctx, &shifted); err != nil {
				return err
			}
			result.Assignments++
		}

		for _, src := range sites {
			if src.timesheet == nil {
				result.SitesWithoutTimesheet = append(result.SitesWithoutTimesheet, src.siteID)
				continue
			}
			if err := s.copyTimesheet(ctx, tx, src, dest, delta, result); err != nil {
				return err
			}
			if src.transport != nil {
				if err := s.copyTransport(ctx, tx, src, dest, delta, result); err != nil {
					return err
				}
			}
		}

		result.Outcome = OutcomePropagated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// readSourceSites - исходные шапки и дни по каждому объекту назначений, в порядке первого появления
func (s *PropagationService) readSourceSites(ctx context.Context, tx *repository.Store, enterpriseID uuid.UUID, workerID uint, source weekkey.Key, assignments []models.Assignment) ([]*sourceSite, error) {
	var sites []*sourceSite
	seen := make(map[uint]bool)

	for _, a := range assignments {
		if seen[a.SiteID] {
			continue
		}
		seen[a.SiteID] = true

		siteID := a.SiteID
		src := &sourceSite{siteID: siteID}

		timesheet, err := tx.Timesheets.FindHeader(ctx, enterpriseID, workerID, source.String(), &siteID)
		if err != nil {
			return nil, err
		}
		if timesheet != nil {
			src.timesheet = timesheet
			if src.timesheetDays, err = tx.Timesheets.ListDays(ctx, timesheet.ID); err != nil {
				return nil, err
			}

			transport, err := tx.Transports.FindHeader(ctx, enterpriseID, workerID, source.String(), &siteID)
			if err != nil {
				return nil, err
			}
			if transport != nil {
				src.transport = transport
				if src.transportDays, err = tx.Transports.ListDays(ctx, transport.ID); err != nil {
					return nil, err
				}
			}
		}

		sites = append(sites, src)
	}
	return sites, nil
}

func (s *PropagationService) copyTimesheet(ctx context.Context, tx *repository.Store, src *sourceSite, dest weekkey.Key, delta int, result *PropagationResult) error {
	header, _, err := tx.Timesheets.LocateOrCreate(ctx, &models.Timesheet{
		EnterpriseID: src.timesheet.EnterpriseID,
		WorkerID:     src.timesheet.WorkerID,
		WeekKey:      dest.String(),
		SiteID:       src.timesheet.SiteID,
		Status:       models.TimesheetStatusDraft,
	})
	if err != nil {
		return err
	}
	if header.IsFinalized() {
		return models.Validationf("destination timesheet %d for %s is already validated", header.ID, dest)
	}

	site, err := tx.MasterData.GetSite(ctx, src.timesheet.EnterpriseID, src.siteID)
	if err != nil {
		return err
	}

	days := make([]models.TimesheetDay, 0, len(src.timesheetDays))
	for _, d := range src.timesheetDays {
		d.Date = weekkey.ShiftDate(d.Date, delta)
		if site != nil {
			code, city := site.Code, site.City
			d.SiteCodeOfDay = &code
			d.CityOfDay = &city
		}
		days = append(days, d)
	}

	if err := tx.Timesheets.ReplaceDays(ctx, header, days); err != nil {
		return err
	}
	result.Timesheets++
	result.TimesheetDays += len(days)
	return nil
}

func (s *PropagationService) copyTransport(ctx context.Context, tx *repository.Store, src *sourceSite, dest weekkey.Key, delta int, result *PropagationResult) error {
	header, _, err := tx.Transports.LocateOrCreate(ctx, &models.TransportHeader{
		EnterpriseID: src.transport.EnterpriseID,
		WorkerID:     src.transport.WorkerID,
		WeekKey:      dest.String(),
		SiteID:       src.transport.SiteID,
	})
	if err != nil {
		return err
	}

	days := make([]models.TransportDay, 0, len(src.transportDays))
	for _, d := range src.transportDays {
		d.Date = weekkey.ShiftDate(d.Date, delta)
		days = append(days, d)
	}

	if err := tx.Transports.ReplaceDays(ctx, header, days); err != nil {
		return err
	}
	result.TransportHeaders++
	result.TransportDays += len(days)
	return nil
}

// PropagateCrew переносит неделю каждого работника отдельно; ошибка одного не останавливает остальных
func (s *PropagationService) PropagateCrew(ctx context.Context, enterpriseID uuid.UUID, workerIDs []uint, source, dest weekkey.Key) *CrewReport {
	report := &CrewReport{Source: source.String(), Dest: dest.String()}

	results := make([]*PropagationResult, len(workerIDs))
	errs := make([]error, len(workerIDs))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, workerID := range workerIDs {
		i, workerID := i, workerID
		g.Go(func() error {
			results[i], errs[i] = s.Propagate(ctx, enterpriseID, workerID, source, dest)
			return nil
		})
	}
	_ = g.Wait()

	for i, workerID := range workerIDs {
		if errs[i] != nil {
			report.Failures = append(report.Failures, WorkerFailure{WorkerID: workerID, Op: "propagate", Err: errs[i]})
			continue
		}
		report.Results = append(report.Results, results[i])
	}

	s.logger.WithFields(logrus.Fields{
		"source":    report.Source,
		"dest":      report.Dest,
		"workers":   len(workerIDs),
		"succeeded": len(report.Results),
		"failed":    len(report.Failures),
	}).Info("Crew propagation finished")
	return report
}

// PropagateSite - перенос всей бригады объекта (все, кто назначен на объект в исходной неделе)
func (s *PropagationService) PropagateSite(ctx context.Context, enterpriseID uuid.UUID, siteID uint, source, dest weekkey.Key) (*CrewReport, error) {
	workerIDs, err := s.store.Assignments.WorkersOnSite(ctx, enterpriseID, siteID, source.String())
	if err != nil {
		return nil, err
	}
	return s.PropagateCrew(ctx, enterpriseID, workerIDs, source, dest), nil
}

func isConflict(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, models.ErrConflict)
}
