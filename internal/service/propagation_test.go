package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/pkg/weekkey"
)

func newPropagation(t *testing.T) (*PropagationService, *ReconcileService) {
	t.Helper()
	store := setupStore(t)
	locks := NewWorkerLocks()
	return NewPropagationService(store, locks, 2), NewReconcileService(store, locks, ReconcileOptions{})
}

func TestPropagate_CopiesWeekShiftedByDelta(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedSite(t, svc.store, 1, "CH-LYON-01", "Lyon")
	seedAssignedWeek(t, svc.store, 7, 1, "2025-S10", true)

	result, err := svc.PropagateNextWeek(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"))
	require.NoError(t, err)
	require.Equal(t, OutcomePropagated, result.Outcome)
	require.Equal(t, "2025-S11", result.Dest)
	require.Equal(t, 5, result.Assignments)
	require.Equal(t, 1, result.Timesheets)
	require.Equal(t, 5, result.TimesheetDays)
	require.Equal(t, 1, result.TransportHeaders)
	require.Equal(t, 5, result.TransportDays)

	assignments, err := svc.store.Assignments.ListByWorkerWeek(ctx, testEnterprise, 7, "2025-S11")
	require.NoError(t, err)
	require.Len(t, assignments, 5)
	require.Equal(t, "2025-03-10", assignments[0].Day.Format(weekkey.DateLayout))
	require.Equal(t, "2025-03-14", assignments[4].Day.Format(weekkey.DateLayout))

	dest, err := svc.store.Timesheets.FindHeader(ctx, testEnterprise, 7, "2025-S11", ptr(uint(1)))
	require.NoError(t, err)
	require.NotNil(t, dest)
	require.Equal(t, models.TimesheetStatusDraft, dest.Status)
	require.InDelta(t, 40.0, dest.TotalHours, 0.001)

	days, err := svc.store.Timesheets.ListDays(ctx, dest.ID)
	require.NoError(t, err)
	require.Len(t, days, 5)
	for i, d := range days {
		require.Equal(t, weekkey.MustParse("2025-S11").Weekdays()[i].Format(weekkey.DateLayout), d.Date.Format(weekkey.DateLayout))
		require.InDelta(t, 8.0, d.HoursNormal, 0.001)
		require.Equal(t, "Z2", d.TravelCode)
		require.True(t, d.MealFlag)
		require.NotNil(t, d.SiteCodeOfDay)
		require.Equal(t, "CH-LYON-01", *d.SiteCodeOfDay)
		require.Equal(t, "Lyon", *d.CityOfDay)
	}

	transport, err := svc.store.Transports.FindHeader(ctx, testEnterprise, 7, "2025-S11", ptr(uint(1)))
	require.NoError(t, err)
	require.NotNil(t, transport)
	tdays, err := svc.store.Transports.ListDays(ctx, transport.ID)
	require.NoError(t, err)
	require.Len(t, tdays, 5)
	require.Equal(t, "2025-03-10", tdays[0].Date.Format(weekkey.DateLayout))
	require.Equal(t, "AB-123-CD", *tdays[0].VehiclePlate)
}

func TestPropagate_IsIdempotent(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedSite(t, svc.store, 1, "CH-01", "Lyon")
	seedAssignedWeek(t, svc.store, 7, 1, "2025-S10", true)

	for i := 0; i < 3; i++ {
		_, err := svc.Propagate(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"), weekkey.MustParse("2025-S11"))
		require.NoError(t, err)
	}

	db := svc.store.DB()
	require.EqualValues(t, 10, countRows(t, db, &models.Assignment{}, ""))
	require.EqualValues(t, 5, countRows(t, db, &models.Assignment{}, "week_key = ?", "2025-S11"))
	require.EqualValues(t, 2, countRows(t, db, &models.Timesheet{}, ""))
	require.EqualValues(t, 10, countRows(t, db, &models.TimesheetDay{}, ""))
	require.EqualValues(t, 2, countRows(t, db, &models.TransportHeader{}, ""))
	require.EqualValues(t, 10, countRows(t, db, &models.TransportDay{}, ""))
}

func TestPropagate_OverwritesEditedDestination(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedAssignedWeek(t, svc.store, 7, 1, "2025-S10", false)

	_, err := svc.PropagateNextWeek(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"))
	require.NoError(t, err)

	dest, err := svc.store.Timesheets.FindHeader(ctx, testEnterprise, 7, "2025-S11", ptr(uint(1)))
	require.NoError(t, err)
	require.NoError(t, svc.store.Timesheets.ReplaceDays(ctx, dest, []models.TimesheetDay{
		{Date: date("2025-03-10"), HoursNormal: 2},
	}))

	_, err = svc.PropagateNextWeek(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"))
	require.NoError(t, err)

	days, err := svc.store.Timesheets.ListDays(ctx, dest.ID)
	require.NoError(t, err)
	require.Len(t, days, 5)
	require.InDelta(t, 8.0, days[0].HoursNormal, 0.001)
}

func TestPropagate_AcrossYearBoundary(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedAssignedWeek(t, svc.store, 3, 2, "2024-S52", false)

	result, err := svc.PropagateNextWeek(ctx, testEnterprise, 3, weekkey.MustParse("2024-S52"))
	require.NoError(t, err)
	require.Equal(t, "2025-S01", result.Dest)

	assignments, err := svc.store.Assignments.ListByWorkerWeek(ctx, testEnterprise, 3, "2025-S01")
	require.NoError(t, err)
	require.Len(t, assignments, 5)
	require.Equal(t, "2024-12-30", assignments[0].Day.Format(weekkey.DateLayout))
	require.Equal(t, "2025-01-03", assignments[4].Day.Format(weekkey.DateLayout))

	dest, err := svc.store.Timesheets.FindHeader(ctx, testEnterprise, 3, "2025-S01", ptr(uint(2)))
	require.NoError(t, err)
	require.NotNil(t, dest)
}

func TestPropagate_NothingToCopy(t *testing.T) {
	svc, _ := newPropagation(t)

	result, err := svc.PropagateNextWeek(context.Background(), testEnterprise, 99, weekkey.MustParse("2025-S10"))
	require.NoError(t, err)
	require.Equal(t, OutcomeNothingToCopy, result.Outcome)
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Timesheet{}, ""))
}

func TestPropagate_SiteWithoutTimesheetCopiesAssignmentsOnly(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	require.NoError(t, svc.store.Assignments.Upsert(ctx, &models.Assignment{
		EnterpriseID: testEnterprise, WorkerID: 4, SiteID: 5, Day: date("2025-03-04"),
	}))

	result, err := svc.PropagateNextWeek(ctx, testEnterprise, 4, weekkey.MustParse("2025-S10"))
	require.NoError(t, err)
	require.Equal(t, OutcomePropagated, result.Outcome)
	require.Equal(t, 1, result.Assignments)
	require.Equal(t, []uint{5}, result.SitesWithoutTimesheet)
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Timesheet{}, ""))
}

func TestPropagate_DoesNotTouchValidatedDestination(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedAssignedWeek(t, svc.store, 7, 1, "2025-S10", false)

	validated, _, err := svc.store.Timesheets.LocateOrCreate(ctx, &models.Timesheet{
		EnterpriseID: testEnterprise, WorkerID: 7, WeekKey: "2025-S11", SiteID: ptr(uint(1)),
		Status: models.TimesheetStatusValidated,
	})
	require.NoError(t, err)

	_, err = svc.PropagateNextWeek(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"))
	require.ErrorIs(t, err, models.ErrValidation)

	// вся единица работы откатилась
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Assignment{}, "week_key = ?", "2025-S11"))
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.TimesheetDay{}, "timesheet_id = ?", validated.ID))
}

func TestPropagate_RejectsMissingInput(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()

	_, err := svc.Propagate(ctx, uuid.Nil, 1, weekkey.MustParse("2025-S10"), weekkey.MustParse("2025-S11"))
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Propagate(ctx, testEnterprise, 1, weekkey.Key{}, weekkey.MustParse("2025-S11"))
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestPropagateCrew_CollectsAndContinues(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	for _, w := range []uint{1, 2, 3} {
		seedAssignedWeek(t, svc.store, w, 1, "2025-S10", false)
	}
	_, _, err := svc.store.Timesheets.LocateOrCreate(ctx, &models.Timesheet{
		EnterpriseID: testEnterprise, WorkerID: 2, WeekKey: "2025-S11", SiteID: ptr(uint(1)),
		Status: models.TimesheetStatusValidated,
	})
	require.NoError(t, err)

	report := svc.PropagateCrew(ctx, testEnterprise, []uint{1, 2, 3}, weekkey.MustParse("2025-S10"), weekkey.MustParse("2025-S11"))
	require.Len(t, report.Results, 2)
	require.Len(t, report.Failures, 1)
	require.Equal(t, uint(2), report.Failures[0].WorkerID)
	require.ErrorIs(t, report.Err(), models.ErrValidation)

	require.EqualValues(t, 5, countRows(t, svc.store.DB(), &models.Assignment{}, "week_key = ? AND worker_id = ?", "2025-S11", 1))
	require.EqualValues(t, 5, countRows(t, svc.store.DB(), &models.Assignment{}, "week_key = ? AND worker_id = ?", "2025-S11", 3))
}

func TestPropagateSite_CopiesWholeCrew(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedAssignedWeek(t, svc.store, 1, 8, "2025-S10", false)
	seedAssignedWeek(t, svc.store, 2, 8, "2025-S10", false)
	seedAssignedWeek(t, svc.store, 3, 9, "2025-S10", false)

	report, err := svc.PropagateSite(ctx, testEnterprise, 8, weekkey.MustParse("2025-S10"), weekkey.MustParse("2025-S11"))
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Results, 2)
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Assignment{}, "week_key = ? AND worker_id = ?", "2025-S11", 3))
}

// Перенос S10->S11 и очистка S11: табель с объектом не трогается очисткой
func TestPropagateThenReconcile_EndToEnd(t *testing.T) {
	svc, reconciler := newPropagation(t)
	ctx := context.Background()
	seedSite(t, svc.store, 1, "CH-01", "Lyon")
	seedAssignedWeek(t, svc.store, 7, 1, "2025-S10", true)

	_, err := svc.PropagateNextWeek(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"))
	require.NoError(t, err)

	report, err := reconciler.Reconcile(ctx, testEnterprise, weekkey.MustParse("2025-S11"), Scope{})
	require.NoError(t, err)
	require.Empty(t, report.Orphans)

	dest, err := svc.store.Timesheets.FindHeader(ctx, testEnterprise, 7, "2025-S11", ptr(uint(1)))
	require.NoError(t, err)
	require.NotNil(t, dest)
	require.InDelta(t, 40.0, dest.TotalHours, 0.001)
}

func TestPropagate_RetriesConflictOnce(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedAssignedWeek(t, svc.store, 7, 1, "2025-S10", false)
	attempts := failTimesheetInserts(t, svc.store, 1)

	result, err := svc.PropagateNextWeek(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"))
	require.NoError(t, err)
	require.Equal(t, OutcomePropagated, result.Outcome)
	require.Equal(t, 5, result.TimesheetDays)
	require.Equal(t, 2, *attempts)

	require.EqualValues(t, 1, countRows(t, svc.store.DB(), &models.Timesheet{}, "week_key = ?", "2025-S11"))
	require.EqualValues(t, 5, countRows(t, svc.store.DB(), &models.Assignment{}, "week_key = ?", "2025-S11"))
}

func TestPropagate_SurfacesConflictAfterRetry(t *testing.T) {
	svc, _ := newPropagation(t)
	ctx := context.Background()
	seedAssignedWeek(t, svc.store, 7, 1, "2025-S10", false)
	attempts := failTimesheetInserts(t, svc.store, 2)

	_, err := svc.PropagateNextWeek(ctx, testEnterprise, 7, weekkey.MustParse("2025-S10"))
	require.ErrorIs(t, err, models.ErrConflict)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	require.Equal(t, 2, *attempts)

	// обе попытки откатились целиком
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Timesheet{}, "week_key = ?", "2025-S11"))
	require.EqualValues(t, 0, countRows(t, svc.store.DB(), &models.Assignment{}, "week_key = ?", "2025-S11"))
}
