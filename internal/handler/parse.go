package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crew-schedule-bot/internal/models"
	"crew-schedule-bot/pkg/weekkey"
)

// parseDate - дата в формате ДД.ММ.ГГГГ, ДД-ММ-ГГГГ или ДД.ММ (текущий год)
func parseDate(dateStr string, now time.Time) (time.Time, error) {
	formats := []string{
		"02.01.2006",
		"02-01-2006",
		"02.01",
		"02-01",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			// Если указан только день и месяц, добавляем текущий год
			if !strings.Contains(format, "2006") {
				t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			}
			return weekkey.Date(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("неверный формат даты %q. Используйте ДД.ММ.ГГГГ или ДД.ММ", dateStr)
}

// parseWeek - ключ недели или текущая неделя, если аргумент пустой
func parseWeek(s string, now time.Time) (weekkey.Key, error) {
	if strings.TrimSpace(s) == "" {
		return weekkey.FromDate(now), nil
	}
	k, err := weekkey.Parse(s)
	if err != nil {
		return weekkey.Key{}, fmt.Errorf("неверная неделя %q. Формат: 2025-S10", s)
	}
	return k, nil
}

func parseID(s, what string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("неверный ID %s: %q", what, s)
	}
	return uint(id), nil
}

// parseIDList - "1,2,3"
func parseIDList(s, what string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := parseID(part, what)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("не указаны ID %s", what)
	}
	return ids, nil
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("неверный ID чата: %q", s)
	}
	return id, nil
}

func formatChatID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func fields(args string) []string {
	return strings.Fields(args)
}

// describeError - текст ошибки движка для пользователя
func describeError(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return "❌ Неверные данные: " + err.Error()
	case errors.Is(err, models.ErrConflict):
		return "⚠️ Данные изменились одновременно с вами, повторите команду."
	case errors.Is(err, models.ErrNotFound):
		return "❌ Запись не найдена."
	default:
		return "❌ Ошибка: " + err.Error()
	}
}
