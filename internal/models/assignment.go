package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment - работник на объекте в конкретный календарный день.
// Не больше одной записи на (enterprise, worker, day).
type Assignment struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	EnterpriseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_assignment_worker_day,priority:1" json:"enterprise_id" validate:"required"`
	WorkerID     uint      `gorm:"not null;uniqueIndex:ux_assignment_worker_day,priority:2;index" json:"worker_id" validate:"required"`
	SiteID       uint      `gorm:"not null;index" json:"site_id" validate:"required"`
	VehicleID    *uint     `json:"vehicle_id"`
	Day          time.Time `gorm:"type:date;not null;uniqueIndex:ux_assignment_worker_day,priority:3" json:"day" validate:"required"`
	WeekKey      string    `gorm:"type:varchar(8);not null;index" json:"week_key" validate:"required"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Assignment) TableName() string {
	return "assignments"
}
