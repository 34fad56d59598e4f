package weekkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParse_AcceptsBothLetters(t *testing.T) {
	k, err := Parse("2025-S10")
	require.NoError(t, err)
	require.Equal(t, Key{Year: 2025, Week: 10}, k)

	k, err = Parse("2025-w7")
	require.NoError(t, err)
	require.Equal(t, Key{Year: 2025, Week: 7}, k)
	require.Equal(t, "2025-S07", k.String())
}

func TestParse_RejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "2025", "2025-10", "2025-X10", "25-S10", "2025-S00", "2025-S53", "2025-S100", "abcd-S10",
		"2025-S+1", "+202-S10", "2025-W+9", "2025-S-1", "2025-S 1", "-202-S10"} {
		_, err := Parse(s)
		require.ErrorIs(t, err, ErrMalformed, s)
	}
}

func TestParse_53WeekYear(t *testing.T) {
	require.Equal(t, 53, WeeksInYear(2020))
	require.Equal(t, 52, WeeksInYear(2025))

	k, err := Parse("2020-S53")
	require.NoError(t, err)
	require.Equal(t, day("2020-12-28"), k.Monday())
}

func TestMonday(t *testing.T) {
	require.Equal(t, day("2025-03-03"), MustParse("2025-S10").Monday())
	require.Equal(t, day("2025-03-07"), MustParse("2025-S10").Friday())
	require.Equal(t, day("2024-12-30"), MustParse("2025-S01").Monday())
	require.Equal(t, day("2024-12-23"), MustParse("2024-S52").Monday())
}

func TestFromDate_YearBoundary(t *testing.T) {
	require.Equal(t, MustParse("2025-S01"), FromDate(day("2024-12-31")))
	require.Equal(t, MustParse("2020-S53"), FromDate(day("2021-01-03")))
	require.Equal(t, "2025-S10", FromDate(time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)).String())
}

func TestShift(t *testing.T) {
	require.Equal(t, MustParse("2025-S01"), MustParse("2024-S52").Shift(1))
	require.Equal(t, MustParse("2024-S52"), MustParse("2025-S01").Shift(-1))
	require.Equal(t, MustParse("2021-S01"), MustParse("2020-S53").Shift(1))
	require.Equal(t, MustParse("2025-S12"), MustParse("2025-S10").Shift(2))
}

func TestDayDelta(t *testing.T) {
	require.Equal(t, 7, DayDelta(MustParse("2024-S52"), MustParse("2025-S01")))
	require.Equal(t, 14, DayDelta(MustParse("2025-S10"), MustParse("2025-S12")))
	require.Equal(t, -7, DayDelta(MustParse("2025-S11"), MustParse("2025-S10")))
}

func TestContainsWeekday(t *testing.T) {
	k := MustParse("2025-S10")
	require.True(t, k.ContainsWeekday(day("2025-03-03")))
	require.True(t, k.ContainsWeekday(day("2025-03-07")))
	require.False(t, k.ContainsWeekday(day("2025-03-08")))
	require.False(t, k.ContainsWeekday(day("2025-03-10")))
	require.Len(t, k.Weekdays(), 5)
}

func TestNormalize(t *testing.T) {
	s, err := Normalize(" 2025-w3 ")
	require.NoError(t, err)
	require.Equal(t, "2025-S03", s)
}
