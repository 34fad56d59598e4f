package weekkey

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// ErrMalformed - ключ недели не разобран или вне диапазона
var ErrMalformed = errors.New("malformed week key")

const DateLayout = "2006-01-02"

// Key - ISO-неделя (год ISO, номер недели 1..53)
type Key struct {
	Year int
	Week int
}

// Parse - разбирает ключ вида 2025-S10 или 2025-W10
func Parse(s string) (Key, error) {
	raw := strings.TrimSpace(s)
	year, rest, ok := strings.Cut(raw, "-")
	if !ok || len(year) != 4 || len(rest) < 2 || len(rest) > 3 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	switch rest[0] {
	case 'S', 's', 'W', 'w':
	default:
		return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	if !digits(year) || !digits(rest[1:]) {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	w, err := strconv.Atoi(rest[1:])
	if err != nil || w < 1 || w > WeeksInYear(y) {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	return Key{Year: y, Week: w}, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// MustParse - для констант и тестов
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Normalize - приводит ключ к каноническому виду YYYY-Snn
func Normalize(s string) (string, error) {
	k, err := Parse(s)
	if err != nil {
		return "", err
	}
	return k.String(), nil
}

// FromDate - ISO-неделя календарного дня
func FromDate(t time.Time) Key {
	y, w := Date(t).ISOWeek()
	return Key{Year: y, Week: w}
}

// Date - обрезает время до полуночи UTC того же календарного дня
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeeksInYear - 52 или 53: 28 декабря всегда попадает в последнюю ISO-неделю года
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

func (k Key) String() string {
	return fmt.Sprintf("%04d-S%02d", k.Year, k.Week)
}

func (k Key) IsZero() bool {
	return k.Year == 0 && k.Week == 0
}

// Monday - понедельник недели (4 января всегда в первой ISO-неделе)
func (k Key) Monday() time.Time {
	jan4 := time.Date(k.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	firstMonday := jan4.AddDate(0, 0, -offset)
	return firstMonday.AddDate(0, 0, (k.Week-1)*7)
}

func (k Key) Friday() time.Time {
	return k.Monday().AddDate(0, 0, 4)
}

func (k Key) Sunday() time.Time {
	return k.Monday().AddDate(0, 0, 6)
}

// Shift - сдвиг на n недель (n может быть отрицательным)
func (k Key) Shift(weeks int) Key {
	return FromDate(k.Monday().AddDate(0, 0, 7*weeks))
}

// Weekdays - понедельник..пятница
func (k Key) Weekdays() []time.Time {
	monday := k.Monday()
	days := make([]time.Time, 0, 5)
	for i := 0; i < 5; i++ {
		days = append(days, monday.AddDate(0, 0, i))
	}
	return days
}

// Contains - день внутри недели (пн..вс)
func (k Key) Contains(t time.Time) bool {
	return FromDate(t) == k
}

// ContainsWeekday - день внутри недели и это будний день
func (k Key) ContainsWeekday(t time.Time) bool {
	if !k.Contains(t) {
		return false
	}
	wd := Date(t).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// DayDelta - разница в днях между понедельниками недель
func DayDelta(from, to Key) int {
	return int(to.Monday().Sub(from.Monday()).Hours() / 24)
}

// ShiftDate - сдвиг даты на delta дней с нормализацией
func ShiftDate(t time.Time, delta int) time.Time {
	return Date(t).AddDate(0, 0, delta)
}
