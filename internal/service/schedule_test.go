package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/pkg/weekkey"
)

func newSchedule(t *testing.T) *ScheduleService {
	t.Helper()
	store := setupStore(t)
	locks := NewWorkerLocks()
	return NewScheduleService(store, locks, NewReconcileService(store, locks, ReconcileOptions{}), fixedClock)
}

func TestAssignWeek_UpsertsPerDay(t *testing.T) {
	svc := newSchedule(t)
	ctx := context.Background()
	week := weekkey.MustParse("2025-S10")

	assignments, err := svc.AssignWeek(ctx, testEnterprise, 7, 1, nil, week, nil)
	require.NoError(t, err)
	require.Len(t, assignments, 5)

	// переназначение на другой объект не плодит строки
	_, err = svc.AssignWeek(ctx, testEnterprise, 7, 2, ptr(uint(11)), week, []time.Time{date("2025-03-04"), date("2025-03-04")})
	require.NoError(t, err)

	require.EqualValues(t, 5, countRows(t, svc.store.DB(), &models.Assignment{}, ""))
	a, err := svc.store.Assignments.GetByWorkerDay(ctx, testEnterprise, 7, date("2025-03-04"))
	require.NoError(t, err)
	require.Equal(t, uint(2), a.SiteID)
	require.Equal(t, uint(11), *a.VehicleID)
}

func TestAssignWeek_RejectsDaysOutsideWeek(t *testing.T) {
	svc := newSchedule(t)

	_, err := svc.AssignWeek(context.Background(), testEnterprise, 7, 1, nil, weekkey.MustParse("2025-S10"),
		[]time.Time{date("2025-03-08")})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.AssignWeek(context.Background(), uuid.Nil, 7, 1, nil, weekkey.MustParse("2025-S10"), nil)
	require.ErrorIs(t, err, models.ErrValidation)
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Assignment{}, ""))
}

func TestUnassign_LastDayCleansGhosts(t *testing.T) {
	svc := newSchedule(t)
	ctx := context.Background()
	week := weekkey.MustParse("2025-S11")

	_, err := svc.AssignWeek(ctx, testEnterprise, 7, 1, nil, week, []time.Time{date("2025-03-10"), date("2025-03-11")})
	require.NoError(t, err)
	ghost := seedGhost(t, svc.store, 7, week.String(), models.AbsenceTypeTraining, "2025-03-12")

	first, err := svc.Unassign(ctx, testEnterprise, 7, date("2025-03-10"))
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Deleted)
	require.Nil(t, first.Reconcile)
	require.EqualValues(t, 1, countRows(t, svc.store.DB(), &models.Timesheet{}, "id = ?", ghost.ID))

	last, err := svc.Unassign(ctx, testEnterprise, 7, date("2025-03-11"))
	require.NoError(t, err)
	require.NotNil(t, last.Reconcile)
	require.Equal(t, []uint{ghost.ID}, last.Reconcile.Orphans)
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Timesheet{}, ""))
}

func TestUnassign_MissingAssignment(t *testing.T) {
	svc := newSchedule(t)

	result, err := svc.Unassign(context.Background(), testEnterprise, 7, date("2025-03-10"))
	require.NoError(t, err)
	require.Zero(t, result.Deleted)
	require.Nil(t, result.Reconcile)
}

func TestSaveTimesheetWeek_ReplacesDays(t *testing.T) {
	svc := newSchedule(t)
	ctx := context.Background()
	header := &models.Timesheet{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-w10", SiteID: ptr(uint(1))}

	saved, err := svc.SaveTimesheetWeek(ctx, header, []models.TimesheetDay{
		{Date: date("2025-03-03"), HoursNormal: 8},
		{Date: date("2025-03-04"), HoursNormal: 7, HoursBadWeather: 1},
		{Date: date("2025-03-05"), HoursNormal: 8},
	})
	require.NoError(t, err)
	require.Equal(t, "2025-S10", saved.WeekKey)
	require.InDelta(t, 24.0, saved.TotalHours, 0.001)

	again, err := svc.SaveTimesheetWeek(ctx, header, []models.TimesheetDay{
		{Date: date("2025-03-06"), HoursNormal: 4},
	})
	require.NoError(t, err)
	require.Equal(t, saved.ID, again.ID)

	days, err := svc.store.Timesheets.ListDays(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, "2025-03-06", days[0].Date.Format(weekkey.DateLayout))

	stored, err := svc.store.Timesheets.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	require.InDelta(t, 4.0, stored.TotalHours, 0.001)
}

func TestSaveTimesheetWeek_Validation(t *testing.T) {
	svc := newSchedule(t)
	ctx := context.Background()

	_, err := svc.SaveTimesheetWeek(ctx, &models.Timesheet{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S10"},
		[]models.TimesheetDay{{Date: date("2025-03-10"), HoursNormal: 8}})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.SaveTimesheetWeek(ctx, &models.Timesheet{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S10"},
		[]models.TimesheetDay{{Date: date("2025-03-03"), HoursNormal: 20, HoursBadWeather: 5}})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.SaveTimesheetWeek(ctx, &models.Timesheet{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S99"}, nil)
	require.ErrorIs(t, err, models.ErrValidation)

	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Timesheet{}, ""))
}

func TestSaveTransportWeek(t *testing.T) {
	svc := newSchedule(t)
	ctx := context.Background()
	header := &models.TransportHeader{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S10", SiteID: ptr(uint(1))}

	saved, err := svc.SaveTransportWeek(ctx, header, []models.TransportDay{
		{Date: date("2025-03-03"), Period: models.PeriodMorning, DriverID: ptr(uint(12))},
		{Date: date("2025-03-03"), Period: models.PeriodEvening, DriverID: ptr(uint(12))},
	})
	require.NoError(t, err)
	require.Len(t, saved.Days, 2)

	_, err = svc.SaveTransportWeek(ctx, header, []models.TransportDay{
		{Date: date("2025-03-03"), Period: "NIGHT"},
	})
	require.ErrorIs(t, err, models.ErrValidation)
	require.EqualValues(t, 2, countRows(t, svc.store.DB(), &models.TransportDay{}, ""))
}

func TestSignTimesheet_SupervisorFinalizes(t *testing.T) {
	svc := newSchedule(t)
	ctx := context.Background()
	header := &models.Timesheet{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S10", SiteID: ptr(uint(1))}
	saved, err := svc.SaveTimesheetWeek(ctx, header, []models.TimesheetDay{{Date: date("2025-03-03"), HoursNormal: 8}})
	require.NoError(t, err)

	submitted, err := svc.SignTimesheet(ctx, testEnterprise, saved.ID, 7, SignerWorker)
	require.NoError(t, err)
	require.Equal(t, models.TimesheetStatusSubmitted, submitted.Status)

	validated, err := svc.SignTimesheet(ctx, testEnterprise, saved.ID, 9, SignerSupervisor)
	require.NoError(t, err)
	require.Equal(t, models.TimesheetStatusValidated, validated.Status)
	require.EqualValues(t, 2, countRows(t, svc.store.DB(), &models.TimesheetSignature{}, "timesheet_id = ?", saved.ID))

	// утвержденный табель больше не переписывается
	_, err = svc.SaveTimesheetWeek(ctx, header, nil)
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.SignTimesheet(ctx, testEnterprise, saved.ID, 9, "hr")
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.SignTimesheet(ctx, uuid.New(), saved.ID, 9, SignerSupervisor)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaveTimesheetWeek_ConflictRetry(t *testing.T) {
	days := []models.TimesheetDay{{Date: date("2025-03-03"), HoursNormal: 8}}

	t.Run("retried", func(t *testing.T) {
		svc := newSchedule(t)
		attempts := failTimesheetInserts(t, svc.store, 1)

		saved, err := svc.SaveTimesheetWeek(context.Background(),
			&models.Timesheet{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S10"}, days)
		require.NoError(t, err)
		require.NotZero(t, saved.ID)
		require.Equal(t, 2, *attempts)
		require.EqualValues(t, 1, countRows(t, svc.store.DB(), &models.TimesheetDay{}, "timesheet_id = ?", saved.ID))
	})

	t.Run("surfaced", func(t *testing.T) {
		svc := newSchedule(t)
		attempts := failTimesheetInserts(t, svc.store, 2)

		_, err := svc.SaveTimesheetWeek(context.Background(),
			&models.Timesheet{EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S10"}, days)
		require.ErrorIs(t, err, models.ErrConflict)
		require.Equal(t, 2, *attempts)
		require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Timesheet{}, ""))
	})
}
