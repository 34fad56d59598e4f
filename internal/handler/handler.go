package handler

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"crew-schedule-bot/internal/config"
	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/service"
	"crew-schedule-bot/pkg/telegram"
)

type Handler struct {
	client             *telegram.Client
	operatorService    *service.OperatorService
	propagationService *service.PropagationService
	reconcileService   *service.ReconcileService
	absenceService     *service.AbsenceService
	scheduleService    *service.ScheduleService
	config             *config.Config
}

func NewHandler(
	client *telegram.Client,
	operatorService *service.OperatorService,
	propagationService *service.PropagationService,
	reconcileService *service.ReconcileService,
	absenceService *service.AbsenceService,
	scheduleService *service.ScheduleService,
	cfg *config.Config,
) *Handler {
	return &Handler{
		client:             client,
		operatorService:    operatorService,
		propagationService: propagationService,
		reconcileService:   reconcileService,
		absenceService:     absenceService,
		scheduleService:    scheduleService,
		config:             cfg,
	}
}

// HandleUpdates обрабатывает обновления до закрытия канала или отмены ctx
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			// Обработка callback query (для inline кнопок)
			if update.CallbackQuery != nil {
				h.handleCallbackQuery(ctx, update.CallbackQuery)
				continue
			}

			if update.Message == nil {
				continue
			}

			h.handleMessage(ctx, update.Message)
		}
	}
}

// handleCallbackQuery обрабатывает inline кнопки
func (h *Handler) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// Удаляем клавиатуру
	editMsg := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup())
	h.client.Bot.Send(editMsg)

	switch {
	case strings.HasPrefix(data, callbackConfirmCleanup):
		h.confirmCleanup(ctx, chatID, strings.TrimPrefix(data, callbackConfirmCleanup))
	case data == callbackCancelCleanup:
		h.reply(chatID, "❌ Очистка отменена.")
	}

	// Отвечаем на callback (убираем "часики" у кнопки)
	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	h.client.Bot.Send(callbackConfig)
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	logrus.Infof("[%s] %s", message.From.UserName, message.Text)

	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	h.reply(message.Chat.ID, "Я понимаю только команды. Используйте /help для списка команд.")
}

func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.client.Bot.Send(msg); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Warn("Failed to send message")
	}
}

// requireOperator - оператор бота или nil (сообщение об ошибке уже отправлено)
func (h *Handler) requireOperator(chatID int64) *models.Operator {
	operator, err := h.operatorService.GetOperator(chatID)
	if err != nil {
		logrus.WithField("chat_id", chatID).Warn("Unknown operator")
		h.reply(chatID, "❌ Вы не зарегистрированы как оператор.\nПопросите администратора выполнить /addoperator "+
			formatChatID(chatID))
		return nil
	}
	return operator
}

// requireAdmin - оператор-администратор или nil
func (h *Handler) requireAdmin(chatID int64) *models.Operator {
	operator := h.requireOperator(chatID)
	if operator == nil {
		return nil
	}
	if !operator.IsAdmin() {
		logrus.WithField("chat_id", chatID).Warn("Unauthorized access to admin command")
		h.reply(chatID, "❌ Доступ запрещен. Эта команда только для администраторов.")
		return nil
	}
	return operator
}
