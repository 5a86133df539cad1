// internal/infra/telegram/bot_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cycle_tracker_bot/internal/app"
	"cycle_tracker_bot/internal/domain/cycle"
	idb "cycle_tracker_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// userDateLayout is the date format users type: ДД.ММ.ГГГГ.
const userDateLayout = "02.01.2006"

// RegisterHandlers wires all bot commands to the cycle service.
func RegisterHandlers(
	ctx context.Context,
	b *telebot.Bot,
	cycleService *app.CycleService,
	reference cycle.ReferenceTable,
	baseLogger *logrus.Entry,
) {
	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		u, err := cycleService.RegisterUser(ctx, senderID, c.Sender().Username, c.Sender().FirstName)
		if err != nil {
			logCtx.WithError(err).Error("Failed to register user")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}

		if u.Configured() {
			return c.Send("С возвращением! Отслеживание уже настроено. /profile — текущее состояние, /help — список команд.")
		}
		return c.Send("Привет! Я помогаю отслеживать менструальный цикл и присылаю уведомления о начале фаз.\n\n" +
			"Начните с настройки:\n`/setup ДД.ММ.ГГГГ <длина цикла> <длина менструации>`\n" +
			"Например: `/setup 15.01.2026 28 5`\n\n/help — все команды.",
			&telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/help", func(c telebot.Context) error {
		var helpText strings.Builder
		helpText.WriteString("Доступные команды:\n\n")
		helpText.WriteString("`/setup <ДД.ММ.ГГГГ> <цикл 21-35> <менструация 1-10>`\n - Настроить отслеживание с даты начала последней менструации.\n\n")
		helpText.WriteString("`/update_start <ДД.ММ.ГГГГ>`\n - Записать дату начала нового цикла.\n\n")
		helpText.WriteString("`/ended_early <ДД.ММ.ГГГГ>`\n - Отметить, что текущий цикл закончился раньше.\n\n")
		helpText.WriteString("`/extend`\n - Цикл ещё не завершился: отложить напоминание на день.\n\n")
		helpText.WriteString("`/profile`\n - Текущий день, фаза и прогнозы.\n\n")
		helpText.WriteString("`/names <ваше имя> <имя девушки>`\n - Указать имена для сообщений.\n\n")
		helpText.WriteString("`/notify_time <ЧЧ:ММ>`\n - Время ежедневных уведомлений.\n\n")
		helpText.WriteString("`/timezone <±N>`\n - Часовой пояс относительно МСК.\n\n")
		helpText.WriteString("`/toggle_notify`\n - Включить или выключить уведомления.\n\n")
		helpText.WriteString("`/reset`\n - Полный сброс данных и истории.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/setup", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/setup").WithField("sender_id", senderID)

		args := c.Args()
		if len(args) != 3 {
			return c.Send("Неверный формат. Используйте: /setup ДД.ММ.ГГГГ <длина цикла> <длина менструации>")
		}
		start, err := parseUserDate(args[0])
		if err != nil {
			return c.Send("⚠️ Неверный формат даты. Используйте ДД.ММ.ГГГГ (например: 15.01.2026).")
		}
		cycleLength, err := strconv.Atoi(args[1])
		if err != nil {
			return c.Send("Ошибка: длина цикла должна быть числом (21-35).")
		}
		periodLength, err := strconv.Atoi(args[2])
		if err != nil {
			return c.Send("Ошибка: длина менструации должна быть числом (1-10).")
		}

		p, err := cycleService.Setup(ctx, senderID, cycleLength, periodLength, start)
		if err != nil {
			logCtx.WithError(err).Warn("Setup rejected")
			return c.Send(describeError(err))
		}

		logCtx.WithField("cycle_start", start.String()).Info("Cycle tracking configured")
		return c.Send(fmt.Sprintf(
			"✅ *Отслеживание настроено.*\n\n"+
				"📆 Начало цикла: %s\n"+
				"💫 Ожидаемая овуляция: %s\n"+
				"🩸 Следующая менструация: %s",
			app.FormatDateRussian(p.Info.LastMenstruationStart),
			app.FormatDateRussian(p.Info.EstimatedOvulationDate),
			app.FormatDateRussian(p.Info.NextCycleStart),
		), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/update_start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/update_start").WithField("sender_id", senderID)

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат. Используйте: /update_start ДД.ММ.ГГГГ")
		}
		start, err := parseUserDate(args[0])
		if err != nil {
			return c.Send("⚠️ Неверный формат даты. Используйте ДД.ММ.ГГГГ (например: 15.02.2026).")
		}

		p, err := cycleService.UpdateStartDate(ctx, senderID, start)
		if err != nil {
			logCtx.WithError(err).Warn("Start date update rejected")
			return c.Send(describeError(err))
		}

		logCtx.WithField("cycle_start", start.String()).Info("Cycle start date updated")
		return c.Send(fmt.Sprintf(
			"✅ *Дата начала нового цикла установлена: %s.*\n\n"+
				"Запись добавлена в историю циклов. Следующая менструация ожидается %s.",
			app.FormatDateRussian(start),
			app.FormatDateRussian(p.Info.NextCycleStart),
		), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/ended_early", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/ended_early").WithField("sender_id", senderID)

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат. Используйте: /ended_early ДД.ММ.ГГГГ")
		}
		end, err := parseUserDate(args[0])
		if err != nil {
			return c.Send("⚠️ Неверный формат даты. Используйте ДД.ММ.ГГГГ (например: 10.02.2026).")
		}

		if _, err := cycleService.CorrectCycleEnd(ctx, senderID, end); err != nil {
			logCtx.WithError(err).Warn("Cycle end correction rejected")
			return c.Send(describeError(err))
		}

		logCtx.WithField("actual_end", end.String()).Info("Cycle end date corrected")
		return c.Send(fmt.Sprintf(
			"✅ Дата окончания текущего цикла сохранена: %s.\n\n"+
				"Теперь запишите дату начала нового цикла: /update_start ДД.ММ.ГГГГ",
			app.FormatDateRussian(end),
		))
	})

	b.Handle("/extend", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/extend").WithField("sender_id", senderID)

		extended, err := cycleService.ExtendCycle(ctx, senderID)
		if err != nil {
			logCtx.WithError(err).Warn("Cycle extension rejected")
			return c.Send(describeError(err))
		}

		logCtx.WithField("extended_days", extended).Info("Cycle extended")
		return c.Send("⏳ Цикл продлён на 1 день. Завтра снова придёт напоминание об обновлении даты начала нового цикла.")
	})

	b.Handle("/profile", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/profile").WithField("sender_id", senderID)

		status, err := cycleService.Status(ctx, senderID)
		if err != nil {
			logCtx.WithError(err).Warn("Status unavailable")
			return c.Send(describeError(err))
		}
		return c.Send(renderStatus(status, reference), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/names", func(c telebot.Context) error {
		senderID := c.Sender().ID
		name, partner, ok := splitNames(c.Message().Payload)
		if !ok {
			return c.Send("Неверный формат. Используйте: /names <ваше имя> <имя девушки>")
		}
		if err := cycleService.SetNames(ctx, senderID, name, partner); err != nil {
			baseLogger.WithField("command", "/names").WithError(err).Warn("Names update failed")
			return c.Send(describeError(err))
		}
		return c.Send("✅ Имена сохранены.")
	})

	b.Handle("/notify_time", func(c telebot.Context) error {
		senderID := c.Sender().ID
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат. Используйте: /notify_time ЧЧ:ММ")
		}
		if err := cycleService.SetNotificationTime(ctx, senderID, args[0]); err != nil {
			return c.Send(describeError(err))
		}
		return c.Send(fmt.Sprintf("✅ Время уведомлений установлено: %s.", args[0]))
	})

	b.Handle("/timezone", func(c telebot.Context) error {
		senderID := c.Sender().ID
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Неверный формат. Используйте: /timezone <±N>, например /timezone +3")
		}
		offset, err := strconv.Atoi(strings.TrimPrefix(args[0], "+"))
		if err != nil {
			return c.Send("Ошибка: часовой пояс должен быть целым числом, например +3 или -1.")
		}
		if err := cycleService.SetTimezoneOffset(ctx, senderID, offset); err != nil {
			return c.Send(describeError(err))
		}
		return c.Send(fmt.Sprintf("✅ Часовой пояс установлен: %s относительно МСК.", formatOffset(offset)))
	})

	b.Handle("/toggle_notify", func(c telebot.Context) error {
		senderID := c.Sender().ID
		enabled, err := cycleService.ToggleNotifications(ctx, senderID)
		if err != nil {
			return c.Send(describeError(err))
		}
		if enabled {
			return c.Send("🔔 Уведомления включены.")
		}
		return c.Send("🔕 Уведомления выключены.")
	})

	b.Handle("/reset", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := baseLogger.WithField("command", "/reset").WithField("sender_id", senderID)

		if err := cycleService.ResetProfile(ctx, senderID); err != nil {
			logCtx.WithError(err).Error("Profile reset failed")
			return c.Send("Произошла ошибка. Пожалуйста, попробуйте позже.")
		}
		logCtx.Info("Profile reset")
		return c.Send("🗑 Все данные и история циклов удалены. Начните заново: /setup")
	})
}

// splitNames cuts the command payload at the first space: the first word is
// the user's own name, the remainder the partner's (which may be multi-word).
func splitNames(payload string) (name, partner string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(payload), " ", 2)
	if len(parts) < 2 {
		return "", "", false
	}
	name = parts[0]
	partner = strings.TrimSpace(parts[1])
	if partner == "" {
		return "", "", false
	}
	return name, partner, true
}

func parseUserDate(raw string) (cycle.Date, error) {
	t, err := time.ParseInLocation(userDateLayout, raw, time.UTC)
	if err != nil {
		return cycle.Date{}, err
	}
	return cycle.DateOf(t), nil
}

func formatOffset(offset int) string {
	if offset >= 0 {
		return fmt.Sprintf("+%d", offset)
	}
	return strconv.Itoa(offset)
}

// describeError maps service errors onto user-facing replies.
func describeError(err error) string {
	switch {
	case errors.Is(err, app.ErrStartDateInFuture):
		return "⚠️ Дата не может быть в будущем. Введите корректную дату."
	case errors.Is(err, app.ErrStartDateTooOld):
		return "⚠️ Дата слишком старая: допускается не более 14 дней назад."
	case errors.Is(err, app.ErrProfileNotConfigured):
		return "❌ Сначала настройте отслеживание командой /setup."
	case errors.Is(err, cycle.ErrInvalidInput):
		return "⚠️ Недопустимое значение: цикл 21-35 дней, менструация 1-10 дней, время ЧЧ:ММ."
	case errors.Is(err, idb.ErrHistoryRecordNotFound):
		return "❌ В истории нет записи текущего цикла. Сначала укажите дату начала: /update_start"
	case errors.Is(err, idb.ErrInvalidEndDate):
		return "⚠️ Дата окончания не может быть раньше начала цикла или в будущем."
	case errors.Is(err, idb.ErrUserNotFound):
		return "❌ Пользователь не найден. Отправьте /start"
	default:
		return "❌ Произошла ошибка. Пожалуйста, попробуйте позже."
	}
}

func renderStatus(status *app.CycleStatus, reference cycle.ReferenceTable) string {
	u := status.User

	phaseLine := "🌙 Фаза: —"
	if status.Located {
		title := string(status.Location.Phase)
		// Prefer the localized reference title when available.
		if ruTitle, ok := referenceTitle(status, reference); ok {
			title = ruTitle
		}
		phaseLine = fmt.Sprintf("🌙 Фаза: %s — день %d, осталось %d дн.",
			title, status.DaysInUnit, status.DaysLeftInUnit)
	}

	name := "Не указано"
	if u.Name.Valid {
		name = u.Name.String
	}
	partner := "Не указано"
	if u.PartnerName.Valid {
		partner = u.PartnerName.String
	}

	return fmt.Sprintf(
		"👤 *Мой профиль*\n\n"+
			"👨 Имя: %s\n"+
			"👩 Имя девушки: %s\n\n"+
			"📊 *Данные цикла:*\n"+
			"📅 Длительность цикла: %d дней\n"+
			"🩸 Длительность менструации: %d дней\n"+
			"📆 Последняя менструация: %s\n\n"+
			"📈 *Текущее состояние:*\n"+
			"📅 Текущий день: %d из %d\n"+
			"%s\n"+
			"💫 Овуляция была: %s\n"+
			"💫 Следующая овуляция: %s\n"+
			"🩸 Следующая менструация: %s\n\n"+
			"🔔 Уведомления: %s, время %s, пояс %s относительно МСК",
		name,
		partner,
		status.EffectiveLength,
		u.PeriodLength,
		app.FormatDateRussian(u.LastPeriodStart),
		status.CurrentDay, status.EffectiveLength,
		phaseLine,
		app.FormatDateRussian(status.LastOvulation),
		app.FormatDateRussian(status.NextOvulation),
		app.FormatDateRussian(status.NextPeriodDate),
		notifyState(u.NotificationsEnabled),
		u.NotificationTime,
		formatOffset(u.TimezoneOffset),
	)
}

func referenceTitle(status *app.CycleStatus, ref cycle.ReferenceTable) (string, bool) {
	if notes, ok := ref.Notes(status.Location.Phase, status.Location.Stage); ok {
		return notes.Title, true
	}
	if ph, ok := ref.ByName(status.Location.Phase); ok {
		return ph.Title, true
	}
	return "", false
}

func notifyState(enabled bool) string {
	if enabled {
		return "✅ включены"
	}
	return "❌ выключены"
}
