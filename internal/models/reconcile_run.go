package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReconcileRun - журнал прохода очистки призрачных табелей
type ReconcileRun struct {
	ID           uint              `gorm:"primarykey" json:"id"`
	EnterpriseID uuid.UUID         `gorm:"type:uuid;not null;index" json:"enterprise_id"`
	WeekKey      string            `gorm:"type:varchar(8);not null;index" json:"week_key"`
	Scope        string            `gorm:"type:varchar(40);not null;default:'all'" json:"scope"`
	Orphans      int               `gorm:"not null;default:0" json:"orphans"`
	Failures     int               `gorm:"not null;default:0" json:"failures"`
	Counts       datatypes.JSONMap `json:"counts"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (ReconcileRun) TableName() string {
	return "reconcile_runs"
}
