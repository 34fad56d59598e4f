package handler

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	args := message.CommandArguments()

	switch command {
	case "start":
		h.sendStartMessage(message)
	case "help":
		h.sendHelpMessage(message)
	case "helpadmin":
		h.sendAdminHelpMessage(message)
	case "whoami":
		h.showOperator(message)

	// Планирование недели
	case "assign":
		h.assignWeek(ctx, message, args)
	case "unassign":
		h.unassign(ctx, message, args)
	case "nextweek":
		h.propagateWorker(ctx, message, args)
	case "nextweeksite":
		h.propagateSite(ctx, message, args)
	case "nextweekcrew":
		h.propagateCrew(ctx, message, args)

	// Очистка призрачных табелей
	case "cleanup":
		h.askCleanup(message, args)
	case "runs":
		h.showRuns(ctx, message)

	// Длительные отсутствия
	case "absence":
		h.addAbsence(ctx, message, args)
	case "absencetype":
		h.changeAbsenceType(ctx, message, args)
	case "absences":
		h.showAbsences(ctx, message, args)

	// Администрирование
	case "addoperator":
		h.addOperator(message, args)

	default:
		h.sendUnknownCommand(message)
	}
}

func (h *Handler) sendUnknownCommand(message *tgbotapi.Message) {
	h.reply(message.Chat.ID, "❌ Неизвестная команда. Используйте /help для списка команд.")
}

func (h *Handler) sendStartMessage(message *tgbotapi.Message) {
	text := `👷 Бот планирования бригад.

Бот переносит назначения, табели и транспорт на следующую неделю,
заводит длительные отсутствия и чистит лишние табели без объекта.

Используйте /help для списка команд, /whoami чтобы проверить доступ.`

	h.reply(message.Chat.ID, text)
}

func (h *Handler) sendHelpMessage(message *tgbotapi.Message) {
	text := `📋 Доступные команды:

📅 Неделя (формат недели: 2025-S10, по умолчанию текущая):
/assign работник объект [неделя] - Назначить на объект пн..пт
/unassign работник дата - Снять назначение дня
    Пример: /unassign 12 04.03.2025
/nextweek работник [неделя] - Перенести неделю работника на следующую
/nextweeksite объект [неделя] - Перенести всю бригаду объекта
/nextweekcrew работник,работник,... [неделя] - Перенести список работников

🧹 Очистка:
/cleanup [неделя] [бригадир] - Удалить табели без объекта у неактивных работников
/runs - Последние очистки

🏥 Отсутствия:
/absence работник тип дата_начала [дата_окончания] - Завести отсутствие
    Типы: sick_leave, vacation, work_accident, training, unpaid_leave, other
    Пример: /absence 12 sick_leave 03.03.2025 05.03.2025
/absencetype ID тип - Изменить тип отсутствия
/absences работник - Отсутствия работника

🛠 Утилиты:
/start - Начать работу с ботом
/help - Показать это сообщение
/whoami - Мой профиль оператора`

	h.reply(message.Chat.ID, text)
}

func (h *Handler) sendAdminHelpMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if h.requireAdmin(chatID) == nil {
		return
	}

	text := `📋 Команды администратора:

👑 Операторы:
/addoperator ID_чата имя [работник] - Зарегистрировать бригадира
    Пример: /addoperator 123456789 Иван 12`

	if h.config.BaseAdminChatID != 0 {
		text += fmt.Sprintf("\n\n🔧 ID главного администратора: %d", h.config.BaseAdminChatID)
	}

	h.reply(chatID, text)
}

func (h *Handler) showOperator(message *tgbotapi.Message) {
	operator := h.requireOperator(message.Chat.ID)
	if operator == nil {
		return
	}
	h.reply(message.Chat.ID, h.operatorService.FormatOperator(operator))
}

func (h *Handler) addOperator(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if h.requireAdmin(chatID) == nil {
		return
	}

	parts := fields(args)
	if len(parts) < 2 || len(parts) > 3 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /addoperator ID_чата имя [работник]")
		return
	}

	targetChatID, err := parseChatID(parts[0])
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	var workerID *uint
	if len(parts) == 3 {
		id, err := parseID(parts[2], "работника")
		if err != nil {
			h.reply(chatID, "❌ "+err.Error())
			return
		}
		workerID = &id
	}

	operator, err := h.operatorService.AddOperator(chatID, targetChatID, parts[1], workerID)
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	h.reply(chatID, "✅ Оператор добавлен.\n\n"+h.operatorService.FormatOperator(operator))
}
