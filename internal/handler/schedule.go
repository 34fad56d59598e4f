package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/internal/service"
	"crew-schedule-bot/pkg/weekkey"
)

const (
	callbackConfirmCleanup = "confirm_cleanup_"
	callbackCancelCleanup  = "cancel_cleanup"
)

// assignWeek - /assign работник объект [неделя]
func (h *Handler) assignWeek(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	parts := fields(args)
	if len(parts) < 2 || len(parts) > 3 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /assign работник объект [неделя]")
		return
	}

	workerID, err := parseID(parts[0], "работника")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	siteID, err := parseID(parts[1], "объекта")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	week, err := parseWeek(optional(parts, 2), time.Now())
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	assignments, err := h.scheduleService.AssignWeek(ctx, operator.EnterpriseID, workerID, siteID, nil, week, nil)
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ Работник %d назначен на объект %d\n📅 Неделя %s: %d дн.",
		workerID, siteID, week, len(assignments)))
}

// unassign - /unassign работник дата
func (h *Handler) unassign(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	parts := fields(args)
	if len(parts) != 2 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /unassign работник дата")
		return
	}

	workerID, err := parseID(parts[0], "работника")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	day, err := parseDate(parts[1], time.Now())
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	result, err := h.scheduleService.Unassign(ctx, operator.EnterpriseID, workerID, day)
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}
	if result.Deleted == 0 {
		h.reply(chatID, "📭 Назначения на этот день нет.")
		return
	}

	text := fmt.Sprintf("✅ Назначение на %s снято.", day.Format("02.01.2006"))
	if result.Reconcile != nil && len(result.Reconcile.Orphans) > 0 {
		text += fmt.Sprintf("\n🧹 Удалено табелей без объекта: %d", len(result.Reconcile.Orphans))
	}
	h.reply(chatID, text)
}

// propagateWorker - /nextweek работник [неделя]
func (h *Handler) propagateWorker(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	parts := fields(args)
	if len(parts) < 1 || len(parts) > 2 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /nextweek работник [неделя]")
		return
	}

	workerID, err := parseID(parts[0], "работника")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	source, err := parseWeek(optional(parts, 1), time.Now())
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	result, err := h.propagationService.PropagateNextWeek(ctx, operator.EnterpriseID, workerID, source)
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}

	h.reply(chatID, formatPropagation(result))
}

// propagateSite - /nextweeksite объект [неделя]
func (h *Handler) propagateSite(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	parts := fields(args)
	if len(parts) < 1 || len(parts) > 2 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /nextweeksite объект [неделя]")
		return
	}

	siteID, err := parseID(parts[0], "объекта")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	source, err := parseWeek(optional(parts, 1), time.Now())
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	report, err := h.propagationService.PropagateSite(ctx, operator.EnterpriseID, siteID, source, source.Shift(1))
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}

	h.reply(chatID, formatCrewReport(report))
}

// propagateCrew - /nextweekcrew 1,2,3 [неделя]
func (h *Handler) propagateCrew(ctx context.Context, message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	parts := fields(args)
	if len(parts) < 1 || len(parts) > 2 {
		h.reply(chatID, "❌ Неверный формат. Используйте: /nextweekcrew работник,работник,... [неделя]")
		return
	}

	workerIDs, err := parseIDList(parts[0], "работников")
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}
	source, err := parseWeek(optional(parts, 1), time.Now())
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	report := h.propagationService.PropagateCrew(ctx, operator.EnterpriseID, workerIDs, source, source.Shift(1))
	h.reply(chatID, formatCrewReport(report))
}

// askCleanup - /cleanup [неделя] [бригадир], спрашивает подтверждение
func (h *Handler) askCleanup(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	parts := fields(args)
	week, err := parseWeek(optional(parts, 0), time.Now())
	if err != nil {
		h.reply(chatID, "❌ "+err.Error())
		return
	}

	scope := week.String()
	if len(parts) > 1 {
		supervisorID, err := parseID(parts[1], "бригадира")
		if err != nil {
			h.reply(chatID, "❌ "+err.Error())
			return
		}
		scope += ":" + strconv.FormatUint(uint64(supervisorID), 10)
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🧹 Удалить табели без объекта недели %s у работников без назначений в %s?",
		week, week.Shift(-1)))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да", callbackConfirmCleanup+scope),
			tgbotapi.NewInlineKeyboardButtonData("❌ Нет", callbackCancelCleanup),
		),
	)
	h.client.Bot.Send(msg)
}

func (h *Handler) confirmCleanup(ctx context.Context, chatID int64, data string) {
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	weekPart, supervisorPart, _ := strings.Cut(data, ":")
	week, err := weekkey.Parse(weekPart)
	if err != nil {
		h.reply(chatID, "❌ Неверная неделя.")
		return
	}

	var scope service.Scope
	if supervisorPart != "" {
		id, err := parseID(supervisorPart, "бригадира")
		if err != nil {
			h.reply(chatID, "❌ "+err.Error())
			return
		}
		scope.SupervisorID = &id
	} else if !operator.IsAdmin() && operator.WorkerID != nil {
		// бригадир чистит только свою бригаду
		scope.SupervisorID = operator.WorkerID
	}

	report, err := h.reconcileService.Reconcile(ctx, operator.EnterpriseID, week, scope)
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}

	logrus.WithFields(logrus.Fields{
		"chat_id":  chatID,
		"week_key": report.WeekKey,
		"orphans":  len(report.Orphans),
	}).Info("Cleanup requested from bot")
	h.reply(chatID, formatReconcile(report))
}

func (h *Handler) showRuns(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	operator := h.requireOperator(chatID)
	if operator == nil {
		return
	}

	runs, err := h.reconcileService.LatestRuns(ctx, operator.EnterpriseID, 10)
	if err != nil {
		h.reply(chatID, describeError(err))
		return
	}
	if len(runs) == 0 {
		h.reply(chatID, "📭 Очисток еще не было.")
		return
	}

	lines := []string{"🧹 Последние очистки:", ""}
	for _, run := range runs {
		lines = append(lines, fmt.Sprintf("%s • %s • %s • удалено: %d, ошибок: %d",
			run.CreatedAt.Format("02.01.2006 15:04"), run.WeekKey, run.Scope, run.Orphans, run.Failures))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

func optional(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func formatPropagation(result *service.PropagationResult) string {
	if result.Outcome == service.OutcomeNothingToCopy {
		return fmt.Sprintf("📭 У работника %d нет назначений в %s, переносить нечего.", result.WorkerID, result.Source)
	}

	text := fmt.Sprintf(`✅ Неделя работника %d перенесена: %s → %s

📅 Назначений: %d
📋 Дней табеля: %d
🚐 Дней транспорта: %d`,
		result.WorkerID, result.Source, result.Dest,
		result.Assignments, result.TimesheetDays, result.TransportDays)

	if len(result.SitesWithoutTimesheet) > 0 {
		text += fmt.Sprintf("\n⚠️ Объекты без табеля в исходной неделе: %v", result.SitesWithoutTimesheet)
	}
	return text
}

func formatCrewReport(report *service.CrewReport) string {
	lines := []string{
		fmt.Sprintf("📦 Перенос бригады %s → %s", report.Source, report.Dest),
		"",
		fmt.Sprintf("✅ Успешно: %d", len(report.Results)),
	}
	for _, r := range report.Results {
		lines = append(lines, fmt.Sprintf("  • %d: %s, дней табеля %d", r.WorkerID, r.Outcome, r.TimesheetDays))
	}
	if len(report.Failures) > 0 {
		lines = append(lines, fmt.Sprintf("❌ Ошибок: %d", len(report.Failures)))
		for _, f := range report.Failures {
			lines = append(lines, fmt.Sprintf("  • %d: %v", f.WorkerID, f.Err))
		}
	}
	return strings.Join(lines, "\n")
}

func formatReconcile(report *service.ReconcileReport) string {
	lines := []string{
		fmt.Sprintf("🧹 Очистка недели %s (%s)", report.WeekKey, report.Scope),
		"",
		fmt.Sprintf("🗑 Удалено табелей: %d", len(report.Orphans)),
		fmt.Sprintf("📋 Дней: %d, подписей: %d", report.Deleted[models.TableTimesheetDays], report.Deleted[models.TableTimesheetSignature]),
		fmt.Sprintf("🚐 Транспортных листов: %d, дней: %d", report.Deleted[models.TableTransportHeaders], report.Deleted[models.TableTransportDays]),
		fmt.Sprintf("👷 Оставлено (есть назначения в %s): %d", report.PreviousWeek, len(report.Kept)),
	}
	if len(report.Protected) > 0 {
		lines = append(lines, fmt.Sprintf("🏥 Оставлено из-за отсутствия: %d", len(report.Protected)))
	}
	if len(report.Failures) > 0 {
		lines = append(lines, fmt.Sprintf("❌ Ошибок: %d", len(report.Failures)))
	}
	return strings.Join(lines, "\n")
}
