package models

import "github.com/google/uuid"

const (
	RoleSupervisor string = "supervisor"
	RoleAdmin      string = "admin"
)

// Operator - пользователь бота, который запускает действия планирования
type Operator struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    int64     `json:"created_at"`
	UpdatedAt    int64     `json:"updated_at"`
	ChatID       int64     `gorm:"uniqueIndex;not null" json:"chat_id"`
	EnterpriseID uuid.UUID `gorm:"type:uuid;not null;index" json:"enterprise_id"`
	Username     string    `json:"username"`
	FirstName    string    `gorm:"not null" json:"first_name"`
	Role         string    `gorm:"default:'supervisor'" json:"role"`
	// WorkerID - если оператор сам бригадир, его запись в справочнике работников
	WorkerID *uint `json:"worker_id"`
}

// IsAdmin проверяет, является ли оператор администратором
func (o *Operator) IsAdmin() bool {
	return o.Role == RoleAdmin
}

func (Operator) TableName() string {
	return "operators"
}
