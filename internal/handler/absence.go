package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/service"
)

var absenceTypeNames = map[string]string{
	models.AbsenceTypeSickLeave:    "🏥 Больничный",
	models.AbsenceTypeVacation:     "🏖️ Отпуск",
	models.AbsenceTypeWorkAccident: "🚑 Травма на работе",
	models.AbsenceTypeTraining:     "🎓 Обучение",
	models.AbsenceTypeUnpaidLeave:  "📭 Без содержания",
	models.AbsenceTypeOther:        "📌 Другое",
}

// addAbsence - /absence работник тип дата_начала [дата_окончания]
func (h *Handler) addAbsence(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	if args == "" {
		h.reply(chatID, `🏥 Добавление отсутствия

Формат команды:
/absence работник тип дата_начала [дата_окончания]

Примеры:
/absence 12 sick_leave 03.03.2025 05.03.2025
→ Больничный с 3 по 5 марта 2025

/absence 12 vacation 10.03.2025
→ Отпуск без даты окончания

💡 Если отсутствие задевает текущую неделю, сразу создается табель без объекта
с днями отсутствия.`)
		return
	}

	parts := fields(args)
	if len(parts) < 3 || len(parts) > 4 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /absence работник тип дата_начала [дата_окончания]")
		return
	}

	workerID, err := parseID(parts[0], "работника")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	now := time.Now()
	startDate, err := parseDate(parts[2], now)
	if err != nil {
		h.reply(chatID, "❌ Ошибка парсинга даты начала: "+err.Error())
		return
	}

	absence := &models.LongAbsence{
		EnterpriseID: operator.EnterpriseID,
		WorkerID:     workerID,
		Type:         strings.ToLower(parts[1]),
		StartDate:    startDate,
	}
	if len(parts) == 4 {
		endDate, err := parseDate(parts[3], now)
		if err != nil {
			h.reply(chatID, "❌ Ошибка парсинга даты окончания: "+err.Error())
			return
		}
		absence.EndDate = &endDate
	}

	result, err := h.absenceService.RegisterAbsence(ctx, absence)
	if err != nil {
		logrus.WithError(err).Error("Failed to add absence")
		h.reply(chatID, describeError(err))
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ Отсутствие №%d добавлено!\n\n%s\n%s",
		absence.ID, formatAbsence(absence), formatGhost(result)))
}

// changeAbsenceType - /absencetype ID тип
func (h *Handler) changeAbsenceType(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	parts := fields(args)
	if len(parts) != 2 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /absencetype ID тип")
		return
	}

	id, err := parseID(parts[0], "отсутствия")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	newType := strings.ToLower(parts[1])

	result, err := h.absenceService.ChangeAbsence(ctx, operator.EnterpriseID, id, func(a *models.LongAbsence) {
		a.Type = newType
	})
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ Тип отсутствия №%d изменен на %s\n%s", id, absenceTypeName(newType), formatGhost(result)))
}

// showAbsences - /absences работник
func (h *Handler) showAbsences(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	workerID, err := parseID(args, "работника")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	absences, err := h.absenceService.WorkerAbsences(ctx, operator.EnterpriseID, workerID)
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}
	if len(absences) == 0 {
		h.reply(chatID, "📭 У работника нет отсутствий.")
		return
	}

	lines := []string{fmt.Sprintf("📋 Отсутствия работника %d:", workerID), ""}
	for i := range absences {
		lines = append(lines, fmt.Sprintf("№%d %s", absences[i].ID, formatAbsence(&absences[i])))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

func absenceTypeName(t string) string {
	if name, ok := absenceTypeNames[t]; ok {
		return name
	}
	return t
}

func formatAbsence(a *models.LongAbsence) string {
	end := "без даты окончания"
	if a.EndDate != nil {
		end = a.EndDate.Format("02.01.2006")
	}
	return fmt.Sprintf("%s: %s - %s", absenceTypeName(a.Type), a.StartDate.Format("02.01.2006"), end)
}

func formatGhost(result *service.GhostResult) string {
	switch result.Outcome {
	case service.GhostCreated:
		return fmt.Sprintf("📋 Табель без объекта на %s создан, дней: %d", result.WeekKey, result.Days)
	case service.GhostAlreadyExists:
		return fmt.Sprintf("📋 Табель без объекта на %s уже есть, не изменен", result.WeekKey)
	case service.GhostTypeUpdated:
		return fmt.Sprintf("📋 Обновлено дней в табелях: %d", result.UpdatedDays)
	case service.GhostNoOverlap:
		return "📋 Текущую неделю не задевает, табель не нужен"
	default:
		return "📋 Табели не изменены"
	}
}
