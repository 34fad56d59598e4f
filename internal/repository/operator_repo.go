package repository

import (
	"errors"

	"gorm.io/gorm"

	"crew-schedule-bot/internal/models"
)

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) (*OperatorRepository, error) {
	// Автомиграция - создает таблицу если ее нет
	if err := db.AutoMigrate(&models.Operator{}); err != nil {
		return nil, err
	}

	return &OperatorRepository{db: db}, nil
}

func (r *OperatorRepository) Create(operator *models.Operator) error {
	// Проверяем, существует ли уже оператор
	exists, err := r.Exists(operator.ChatID)
	if err != nil {
		return err
	}
	if exists {
		return errors.New("оператор уже существует")
	}

	return r.db.Create(operator).Error
}

func (r *OperatorRepository) GetByChatID(chatID int64) (*models.Operator, error) {
	var operator models.Operator
	result := r.db.Where("chat_id = ?", chatID).First(&operator)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &operator, nil
}

func (r *OperatorRepository) Exists(chatID int64) (bool, error) {
	var count int64
	result := r.db.Model(&models.Operator{}).Where("chat_id = ?", chatID).Count(&count)

	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

func (r *OperatorRepository) UpdateRole(chatID int64, role string) error {
	result := r.db.Model(&models.Operator{}).
		Where("chat_id = ?", chatID).
		Update("role", role)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("оператор не найден")
	}

	return nil
}
