package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"crew-schedule-bot/internal/database"
	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/repository"
	"crew-schedule-bot/pkg/weekkey"
)

var testEnterprise = uuid.MustParse("5b0f6c1e-6a63-4a53-9d0e-2f4c1d7f0a11")

// среда 2025-S10
var testNow = time.Date(2025, time.March, 5, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testNow
}

func setupStore(t *testing.T) *repository.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

func date(s string) time.Time {
	d, err := time.Parse(weekkey.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T {
	return &v
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func seedSite(t *testing.T, store *repository.Store, id uint, code, city string) {
	t.Helper()
	require.NoError(t, store.DB().Create(&models.Site{ID: id, EnterpriseID: testEnterprise, Code: code, City: city}).Error)
}

func seedWorker(t *testing.T, store *repository.Store, id uint, supervisorID *uint) {
	t.Helper()
	require.NoError(t, store.DB().Create(&models.Worker{
		ID:           id,
		EnterpriseID: testEnterprise,
		Name:         fmt.Sprintf("worker-%d", id),
		SupervisorID: supervisorID,
	}).Error)
}

// seedAssignedWeek - назначения пн..пт на объект и табель 8ч/день, опционально утренний транспорт
func seedAssignedWeek(t *testing.T, store *repository.Store, workerID, siteID uint, week string, withTransport bool) *models.Timesheet {
	t.Helper()
	ctx := context.Background()
	key := weekkey.MustParse(week)

	for _, d := range key.Weekdays() {
		require.NoError(t, store.Assignments.Upsert(ctx, &models.Assignment{
			EnterpriseID: testEnterprise,
			WorkerID:     workerID,
			SiteID:       siteID,
			Day:          d,
		}))
	}

	timesheet, _, err := store.Timesheets.LocateOrCreate(ctx, &models.Timesheet{
		EnterpriseID: testEnterprise,
		WorkerID:     workerID,
		WeekKey:      key.String(),
		SiteID:       ptr(siteID),
	})
	require.NoError(t, err)

	var days []models.TimesheetDay
	for _, d := range key.Weekdays() {
		days = append(days, models.TimesheetDay{Date: d, HoursNormal: 8, TravelCode: "Z2", MealFlag: true})
	}
	require.NoError(t, store.Timesheets.ReplaceDays(ctx, timesheet, days))

	if withTransport {
		header, _, err := store.Transports.LocateOrCreate(ctx, &models.TransportHeader{
			EnterpriseID: testEnterprise,
			WorkerID:     workerID,
			WeekKey:      key.String(),
			SiteID:       ptr(siteID),
		})
		require.NoError(t, err)

		var tdays []models.TransportDay
		for _, d := range key.Weekdays() {
			tdays = append(tdays, models.TransportDay{Date: d, Period: models.PeriodMorning, VehiclePlate: ptr("AB-123-CD")})
		}
		require.NoError(t, store.Transports.ReplaceDays(ctx, header, tdays))
	}
	return timesheet
}

// seedGhost - призрачный табель с днями отсутствия на указанные даты
func seedGhost(t *testing.T, store *repository.Store, workerID uint, week string, absenceType string, days ...string) *models.Timesheet {
	t.Helper()
	ctx := context.Background()

	ghost, created, err := store.Timesheets.LocateOrCreate(ctx, &models.Timesheet{
		EnterpriseID: testEnterprise,
		WorkerID:     workerID,
		WeekKey:      week,
	})
	require.NoError(t, err)
	require.True(t, created)

	var rows []models.TimesheetDay
	for _, d := range days {
		rows = append(rows, models.TimesheetDay{Date: date(d), AbsenceType: ptr(absenceType)})
	}
	require.NoError(t, store.Timesheets.ReplaceDays(ctx, ghost, rows))
	return ghost
}

// failTimesheetInserts - следующие n вставок шапок табеля завершаются ошибкой уникальности
func failTimesheetInserts(t *testing.T, store *repository.Store, n int) *int {
	t.Helper()
	attempts := 0
	err := store.DB().Callback().Create().Before("gorm:create").Register("test:fail_timesheet_insert", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != models.TableTimesheets {
			return
		}
		attempts++
		if n > 0 {
			n--
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	require.NoError(t, err)
	return &attempts
}
