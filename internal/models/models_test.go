package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateDays(t *testing.T) {
	require.NoError(t, ValidateDays("2025-S10", nil))
	require.NoError(t, ValidateDays("2025-S10", []TimesheetDay{
		{Date: d("2025-03-03"), HoursNormal: 8},
		{Date: d("2025-03-07"), HoursNormal: 16, HoursBadWeather: 8},
	}))

	cases := map[string][]TimesheetDay{
		"weekend":    {{Date: d("2025-03-08")}},
		"other week": {{Date: d("2025-03-10")}},
		"duplicate":  {{Date: d("2025-03-03")}, {Date: d("2025-03-03")}},
		"negative":   {{Date: d("2025-03-03"), HoursNormal: -1}},
		"over 24h":   {{Date: d("2025-03-03"), HoursNormal: 20, HoursBadWeather: 5}},
	}
	for name, days := range cases {
		require.ErrorIs(t, ValidateDays("2025-S10", days), ErrValidation, name)
	}

	require.ErrorIs(t, ValidateDays("2025-10", nil), ErrValidation)
}

func TestSumHours(t *testing.T) {
	require.InDelta(t, 19.5, SumHours([]TimesheetDay{
		{HoursNormal: 8},
		{HoursNormal: 7.5, HoursBadWeather: 4},
	}), 0.001)
}

func TestLongAbsenceOverlaps(t *testing.T) {
	end := d("2025-03-05")
	closed := LongAbsence{StartDate: d("2025-03-03"), EndDate: &end}
	open := LongAbsence{StartDate: d("2025-03-05")}

	require.True(t, closed.Overlaps(d("2025-03-03"), d("2025-03-07")))
	require.True(t, closed.Overlaps(d("2025-03-05"), d("2025-03-05")))
	require.False(t, closed.Overlaps(d("2025-03-06"), d("2025-03-07")))
	require.False(t, closed.Overlaps(d("2025-02-24"), d("2025-02-28")))

	require.True(t, open.IsOpen())
	require.True(t, open.Overlaps(d("2030-01-01"), d("2030-01-05")))
	require.False(t, open.Overlaps(d("2025-03-03"), d("2025-03-04")))
	require.True(t, open.Covers(time.Date(2025, 3, 5, 18, 0, 0, 0, time.UTC)))
}

func TestSiteKeyOf(t *testing.T) {
	id := uint(42)
	require.Equal(t, "", SiteKeyOf(nil))
	require.Equal(t, "42", SiteKeyOf(&id))

	ts := &Timesheet{SiteID: &id}
	require.NoError(t, ts.BeforeSave(nil))
	require.Equal(t, "42", ts.SiteKey)
	require.False(t, ts.IsGhost())
}

func TestCascadeErrorMatchesBothCauses(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&CascadeError{WorkerID: 3, WeekKey: "2025-S11", Table: TableTransportDays, Err: cause})

	require.ErrorIs(t, err, ErrPartialCascade)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), TableTransportDays)

	var cascade *CascadeError
	require.ErrorAs(t, err, &cascade)
	require.Equal(t, uint(3), cascade.WorkerID)
}

func TestValidateStruct(t *testing.T) {
	absence := &LongAbsence{
		EnterpriseID: uuid.New(),
		WorkerID:     1,
		Type:         AbsenceTypeTraining,
		StartDate:    d("2025-03-03"),
	}
	require.NoError(t, ValidateStruct(absence))

	absence.Type = "holiday"
	require.ErrorIs(t, ValidateStruct(absence), ErrValidation)

	require.ErrorIs(t, ValidateStruct(&Assignment{WorkerID: 1, SiteID: 1, Day: d("2025-03-03"), WeekKey: "2025-S10"}), ErrValidation)
}
