package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crew-schedule-bot/pkg/weekkey"
)

// Периоды поездки
const (
	PeriodMorning = "MORNING"
	PeriodEvening = "EVENING"
)

// TransportHeader - транспортный лист работника (или бригады) за неделю.
type TransportHeader struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	EnterpriseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_transport_worker_week_site,priority:1" json:"enterprise_id"`
	WorkerID     uint      `gorm:"not null;uniqueIndex:ux_transport_worker_week_site,priority:2;index" json:"worker_id"`
	WeekKey      string    `gorm:"type:varchar(8);not null;uniqueIndex:ux_transport_worker_week_site,priority:3" json:"week_key"`
	SiteID       *uint     `json:"site_id"`
	SiteKey      string    `gorm:"type:varchar(20);not null;default:'';uniqueIndex:ux_transport_worker_week_site,priority:4" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Days []TransportDay `gorm:"foreignKey:TransportHeaderID" json:"days"`
}

func (TransportHeader) TableName() string {
	return "transport_headers"
}

func (h *TransportHeader) BeforeSave(*gorm.DB) error {
	h.SiteKey = SiteKeyOf(h.SiteID)
	return nil
}

// TransportDay - пара водитель/машина на утро или вечер дня.
type TransportDay struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	TransportHeaderID uint      `gorm:"not null;index" json:"transport_header_id"`
	Date              time.Time `gorm:"type:date;not null" json:"date"`
	Period            string    `gorm:"type:varchar(10);not null" json:"period"`
	DriverID          *uint     `json:"driver_id"`
	VehiclePlate      *string   `gorm:"type:varchar(20)" json:"vehicle_plate"`
}

func (TransportDay) TableName() string {
	return "transport_days"
}

// ValidateTransportDays - даты внутри недели, период MORNING/EVENING, без дублей (день, период)
func ValidateTransportDays(weekKey string, days []TransportDay) error {
	week, err := weekkey.Parse(weekKey)
	if err != nil {
		return Validationf("transport week: %v", err)
	}

	seen := make(map[string]bool, len(days))
	for _, d := range days {
		if !week.ContainsWeekday(d.Date) {
			return Validationf("transport day %s is not a weekday of %s", d.Date.Format(weekkey.DateLayout), week)
		}
		if d.Period != PeriodMorning && d.Period != PeriodEvening {
			return Validationf("transport period %q", d.Period)
		}
		key := d.Date.Format(weekkey.DateLayout) + d.Period
		if seen[key] {
			return Validationf("transport day %s %s listed twice", d.Date.Format(weekkey.DateLayout), d.Period)
		}
		seen[key] = true
	}
	return nil
}
