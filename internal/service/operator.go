package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/repository"
)

type OperatorService struct {
	repo *repository.OperatorRepository
}

func NewOperatorService(repo *repository.OperatorRepository) *OperatorService {
	return &OperatorService{repo: repo}
}

// GetOperator возвращает оператора по chatID
func (s *OperatorService) GetOperator(chatID int64) (*models.Operator, error) {
	operator, err := s.repo.GetByChatID(chatID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения оператора: %v", err)
	}

	if operator == nil {
		return nil, fmt.Errorf("оператор не найден")
	}

	return operator, nil
}

// AddOperator регистрирует бригадира (только для админов)
func (s *OperatorService) AddOperator(adminChatID, chatID int64, firstName string, workerID *uint) (*models.Operator, error) {
	admin, err := s.repo.GetByChatID(adminChatID)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки админа: %v", err)
	}
	if admin == nil || !admin.IsAdmin() {
		return nil, fmt.Errorf("доступ запрещен: только администраторы могут добавлять операторов")
	}

	if strings.TrimSpace(firstName) == "" {
		return nil, fmt.Errorf("имя не может быть пустым")
	}

	operator := &models.Operator{
		ChatID:       chatID,
		EnterpriseID: admin.EnterpriseID,
		FirstName:    firstName,
		Role:         models.RoleSupervisor,
		WorkerID:     workerID,
	}
	if err := s.repo.Create(operator); err != nil {
		return nil, fmt.Errorf("ошибка создания оператора: %v", err)
	}
	return operator, nil
}

// IsAdmin проверяет, является ли оператор администратором
func (s *OperatorService) IsAdmin(chatID int64) (bool, error) {
	operator, err := s.repo.GetByChatID(chatID)
	if err != nil {
		return false, err
	}

	return operator != nil && operator.IsAdmin(), nil
}

// FormatOperator - карточка оператора для вывода
func (s *OperatorService) FormatOperator(operator *models.Operator) string {
	var lines []string

	lines = append(lines, "👤 Оператор:")
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("🆔 ID чата: %d", operator.ChatID))
	if operator.Username != "" {
		lines = append(lines, fmt.Sprintf("📛 Никнейм: @%s", operator.Username))
	}
	lines = append(lines, fmt.Sprintf("👨‍💼 Имя: %s", operator.FirstName))
	if operator.WorkerID != nil {
		lines = append(lines, fmt.Sprintf("👷 Бригадир, работник №%d", *operator.WorkerID))
	}

	roleEmoji := "👤"
	if operator.IsAdmin() {
		roleEmoji = "👑"
	}
	lines = append(lines, fmt.Sprintf("%s Роль: %s", roleEmoji, operator.Role))
	lines = append(lines, fmt.Sprintf("🏢 Предприятие: %s", operator.EnterpriseID))

	return strings.Join(lines, "\n")
}

// InitializeAdmin инициализирует администратора из конфига
func (s *OperatorService) InitializeAdmin(adminChatID int64, enterpriseID uuid.UUID) error {
	if adminChatID == 0 {
		return nil // Админ не задан в конфиге
	}

	existing, err := s.repo.GetByChatID(adminChatID)
	if err != nil {
		return err
	}

	if existing != nil {
		// Если оператор существует, обновляем его роль на админа
		return s.repo.UpdateRole(adminChatID, models.RoleAdmin)
	}

	return s.repo.Create(&models.Operator{
		ChatID:       adminChatID,
		EnterpriseID: enterpriseID,
		Username:     "admin",
		FirstName:    "Администратор",
		Role:         models.RoleAdmin,
	})
}
