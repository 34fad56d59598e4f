package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crew-schedule-bot/pkg/weekkey"
)

// Статусы табеля
const (
	TimesheetStatusDraft     = "draft"
	TimesheetStatusSubmitted = "submitted"
	TimesheetStatusValidated = "validated" // финализирован, движок его не переписывает
)

// Timesheet - шапка табеля работника за ISO-неделю.
// SiteID == nil - "призрачный" табель без объекта (только отсутствия).
type Timesheet struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	EnterpriseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_timesheet_worker_week_site,priority:1" json:"enterprise_id"`
	WorkerID     uint      `gorm:"not null;uniqueIndex:ux_timesheet_worker_week_site,priority:2;index" json:"worker_id"`
	WeekKey      string    `gorm:"type:varchar(8);not null;uniqueIndex:ux_timesheet_worker_week_site,priority:3;index" json:"week_key"`
	SiteID       *uint     `json:"site_id"`
	// SiteKey - не-NULL проекция SiteID для уникального индекса ("" у призрака)
	SiteKey    string    `gorm:"type:varchar(20);not null;default:'';uniqueIndex:ux_timesheet_worker_week_site,priority:4" json:"-"`
	Status     string    `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	TotalHours float64   `gorm:"not null;default:0" json:"total_hours"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Days []TimesheetDay `gorm:"foreignKey:TimesheetID" json:"days"`
}

func (Timesheet) TableName() string {
	return "timesheets"
}

// BeforeSave держит SiteKey в соответствии с SiteID
func (t *Timesheet) BeforeSave(*gorm.DB) error {
	t.SiteKey = SiteKeyOf(t.SiteID)
	return nil
}

// IsGhost - табель без объекта
func (t *Timesheet) IsGhost() bool {
	return t.SiteID == nil
}

// IsFinalized - табель уже утвержден
func (t *Timesheet) IsFinalized() bool {
	return t.Status == TimesheetStatusValidated
}

// TimesheetDay - строка табеля за один будний день.
type TimesheetDay struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	TimesheetID     uint      `gorm:"not null;index" json:"timesheet_id"`
	Date            time.Time `gorm:"type:date;not null" json:"date"`
	HoursNormal     float64   `gorm:"not null;default:0" json:"hours_normal"`
	HoursBadWeather float64   `gorm:"not null;default:0" json:"hours_bad_weather"`
	TravelCode      string    `gorm:"type:varchar(10);not null;default:''" json:"travel_code"`
	MealFlag        bool      `gorm:"not null;default:false" json:"meal_flag"`
	AbsenceType     *string   `gorm:"type:varchar(30)" json:"absence_type"`
	SiteCodeOfDay   *string   `gorm:"type:varchar(30)" json:"site_code_of_day"`
	CityOfDay       *string   `gorm:"type:varchar(80)" json:"city_of_day"`
}

func (TimesheetDay) TableName() string {
	return "timesheet_days"
}

// IsAbsence - день помечен типом отсутствия
func (d *TimesheetDay) IsAbsence() bool {
	return d.AbsenceType != nil && *d.AbsenceType != ""
}

// TotalHours - часы дня, учитываемые в итоге табеля
func (d *TimesheetDay) TotalHours() float64 {
	return d.HoursNormal + d.HoursBadWeather
}

// ValidateDays проверяет, что каждый день - будний день недели табеля и даты не повторяются
func ValidateDays(weekKey string, days []TimesheetDay) error {
	week, err := weekkey.Parse(weekKey)
	if err != nil {
		return Validationf("timesheet week: %v", err)
	}

	seen := make(map[string]bool, len(days))
	for _, d := range days {
		if !week.ContainsWeekday(d.Date) {
			return Validationf("day %s is not a weekday of %s", d.Date.Format(weekkey.DateLayout), week)
		}
		key := d.Date.Format(weekkey.DateLayout)
		if seen[key] {
			return Validationf("day %s listed twice", key)
		}
		seen[key] = true
		if d.HoursNormal < 0 || d.HoursBadWeather < 0 || d.TotalHours() > 24 {
			return Validationf("day %s has invalid hours", key)
		}
	}
	return nil
}

// SumHours - итог часов по дням
func SumHours(days []TimesheetDay) float64 {
	total := 0.0
	for i := range days {
		total += days[i].TotalHours()
	}
	return total
}

// TimesheetSignature - подпись/утверждение табеля (бригадир, руководитель).
type TimesheetSignature struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	TimesheetID uint      `gorm:"not null;index" json:"timesheet_id"`
	SignedBy    uint      `gorm:"not null" json:"signed_by"`
	Role        string    `gorm:"type:varchar(20);not null" json:"role"`
	SignedAt    time.Time `gorm:"not null" json:"signed_at"`
}

func (TimesheetSignature) TableName() string {
	return "timesheet_signatures"
}

// SiteKeyOf - строковый ключ объекта для уникальных индексов
func SiteKeyOf(siteID *uint) string {
	if siteID == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*siteID), 10)
}
