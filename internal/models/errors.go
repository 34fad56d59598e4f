package models

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound - исходной записи нет; сервисы превращают это в статус, а не в ошибку
	ErrNotFound = errors.New("record not found")
	// ErrConflict - конкурентная запись обошла upsert даже после повтора
	ErrConflict = errors.New("conflicting concurrent write")
	// ErrValidation - вход отклонен до любой записи
	ErrValidation = errors.New("validation failed")
	// ErrPartialCascade - шаг каскада упал после успешных предыдущих
	ErrPartialCascade = errors.New("partial cascade failure")
)

// Таблицы, которые попадают в отчеты каскадов
const (
	TableAssignments        = "assignments"
	TableTimesheets         = "timesheets"
	TableTimesheetDays      = "timesheet_days"
	TableTimesheetSignature = "timesheet_signatures"
	TableTransportHeaders   = "transport_headers"
	TableTransportDays      = "transport_days"
	TableLongAbsences       = "long_absences"
)

// CascadeError указывает работника, неделю и таблицу, на которой оборвался каскад.
type CascadeError struct {
	WorkerID uint
	WeekKey  string
	Table    string
	Err      error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("worker %d week %s: %s: %v", e.WorkerID, e.WeekKey, e.Table, e.Err)
}

func (e *CascadeError) Unwrap() []error {
	return []error{ErrPartialCascade, e.Err}
}

// Validationf - ошибка валидации с описанием
func Validationf(format string, args ...any) error {
	return errors.Wrap(ErrValidation, fmt.Sprintf(format, args...))
}
