package models

import (
	"time"

	"github.com/google/uuid"

	"crew-schedule-bot/pkg/weekkey"
)

// LongAbsence - длительное отсутствие (больничный, отпуск, травма...), заводится кадрами.
// EndDate == nil - открытое отсутствие.
type LongAbsence struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	EnterpriseID uuid.UUID  `gorm:"type:uuid;not null;index" json:"enterprise_id" validate:"required"`
	WorkerID     uint       `gorm:"not null;index" json:"worker_id" validate:"required"`
	Type         string     `gorm:"type:varchar(30);not null" json:"type" validate:"required,oneof=sick_leave vacation work_accident training unpaid_leave other"`
	StartDate    time.Time  `gorm:"type:date;not null" json:"start_date" validate:"required"`
	EndDate      *time.Time `gorm:"type:date" json:"end_date"`
	Motif        *string    `gorm:"type:varchar(255)" json:"motif"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LongAbsence) TableName() string {
	return "long_absences"
}

// Типы отсутствия
const (
	AbsenceTypeSickLeave    = "sick_leave"
	AbsenceTypeVacation     = "vacation"
	AbsenceTypeWorkAccident = "work_accident"
	AbsenceTypeTraining     = "training"
	AbsenceTypeUnpaidLeave  = "unpaid_leave"
	AbsenceTypeOther        = "other"
)

// Normalize обрезает даты до календарных дней
func (a *LongAbsence) Normalize() {
	a.StartDate = weekkey.Date(a.StartDate)
	if a.EndDate != nil {
		end := weekkey.Date(*a.EndDate)
		a.EndDate = &end
	}
}

// IsOpen - без даты окончания
func (a *LongAbsence) IsOpen() bool {
	return a.EndDate == nil
}

// Overlaps - пересекается ли отсутствие с отрезком [from, to]
func (a *LongAbsence) Overlaps(from, to time.Time) bool {
	if weekkey.Date(a.StartDate).After(weekkey.Date(to)) {
		return false
	}
	if a.EndDate != nil && weekkey.Date(*a.EndDate).Before(weekkey.Date(from)) {
		return false
	}
	return true
}

// Covers - день внутри [start, end ?? +inf)
func (a *LongAbsence) Covers(day time.Time) bool {
	return a.Overlaps(day, day)
}
