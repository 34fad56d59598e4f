package models

import "github.com/google/uuid"

// Worker и Site - справочники внешней админки; движок их только читает.

type Worker struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	EnterpriseID uuid.UUID `gorm:"type:uuid;not null;index" json:"enterprise_id"`
	Name         string    `gorm:"not null" json:"name"`
	Role         string    `gorm:"type:varchar(30)" json:"role"`
	SupervisorID *uint     `gorm:"index" json:"supervisor_id"`
}

func (Worker) TableName() string {
	return "workers"
}

type Site struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	EnterpriseID uuid.UUID `gorm:"type:uuid;not null;index" json:"enterprise_id"`
	Code         string    `gorm:"type:varchar(30);not null" json:"code"`
	City         string    `gorm:"type:varchar(80)" json:"city"`
}

func (Site) TableName() string {
	return "sites"
}
