// internal/app/notification_service.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cycle_tracker_bot/internal/domain/cycle"
	"cycle_tracker_bot/internal/domain/history"
	domainTelegram "cycle_tracker_bot/internal/domain/telegram"
	"cycle_tracker_bot/internal/domain/user"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// phaseAdvanceLeadDays is how many days before a reference phase transition
// the "phase approaching" reminder fires.
const phaseAdvanceLeadDays = 2

// NotificationService drives the periodic poll that turns "what starts today"
// into outbound messages.
type NotificationService interface {
	// ProcessDueNotifications runs one poll tick. Repeating a tick within the
	// same user-local date is idempotent: delivery is guarded by per-user
	// last-notified dates, so nothing is sent twice.
	ProcessDueNotifications(ctx context.Context, now time.Time) error
}

// NotificationServiceImpl implements NotificationService on top of the user
// and history repositories and a Telegram client.
type NotificationServiceImpl struct {
	users            user.Repository
	history          history.Repository
	telegramClient   domainTelegram.Client
	reference        cycle.ReferenceTable
	refLocation      *time.Location
	phaseAdvanceTime string // user-local HH:MM for the approaching-phase check
	logger           *logrus.Entry
}

func NewNotificationService(
	ur user.Repository,
	hr history.Repository,
	tc domainTelegram.Client,
	reference cycle.ReferenceTable,
	refLocation *time.Location,
	phaseAdvanceTime string,
	logger *logrus.Entry,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		users:            ur,
		history:          hr,
		telegramClient:   tc,
		reference:        reference,
		refLocation:      refLocation,
		phaseAdvanceTime: phaseAdvanceTime,
		logger:           logger,
	}
}

// ProcessDueNotifications checks every notifiable user against their local
// clock and sends whatever is due this minute. Errors for one user are logged
// and never block the rest.
func (s *NotificationServiceImpl) ProcessDueNotifications(ctx context.Context, now time.Time) error {
	users, err := s.users.ListNotifiable(ctx)
	if err != nil {
		return fmt.Errorf("failed to list notifiable users: %w", err)
	}

	refNow := now.In(s.refLocation)
	for _, u := range users {
		userTime := refNow.Add(time.Duration(u.TimezoneOffset) * time.Hour)
		localHHMM := userTime.Format("15:04")
		userDate := cycle.DateOf(userTime)
		logCtx := s.logger.WithFields(logrus.Fields{
			"user_id":    u.ID,
			"local_time": localHHMM,
		})

		if localHHMM == u.NotificationTime {
			if err := s.processPhaseStarts(ctx, u, userDate); err != nil {
				logCtx.WithError(err).Error("Failed to process phase-start notifications")
			}
		}
		if localHHMM == s.phaseAdvanceTime && u.NotifyPhaseStart {
			if err := s.processPhaseAdvance(ctx, u, userDate); err != nil {
				logCtx.WithError(err).Error("Failed to process phase-advance reminder")
			}
		}
		// The rollover prompt shares the once-per-day guard with the daily
		// report, so it only runs outside the notification minute.
		if localHHMM != u.NotificationTime {
			if err := s.processRolloverPrompt(ctx, u, userDate); err != nil {
				logCtx.WithError(err).Error("Failed to process rollover prompt")
			}
		}
	}
	return nil
}

// processPhaseStarts sends one message per phase or sub-phase starting today
// and pins the last one, unpinning the previous daily report.
func (s *NotificationServiceImpl) processPhaseStarts(ctx context.Context, u *user.User, today cycle.Date) error {
	if u.LastNotificationDate.Equal(today) {
		return nil
	}
	effLen, err := effectiveLength(ctx, s.history, u)
	if err != nil {
		return err
	}
	p, err := cycle.NewPartition(effLen, u.PeriodLength, u.LastPeriodStart)
	if err != nil {
		return err
	}
	starts := p.StartingOn(today)
	if len(starts) == 0 {
		return nil
	}

	if u.PinnedMessageID.Valid {
		if err := s.telegramClient.UnpinMessage(u.ID, int(u.PinnedMessageID.Int64)); err != nil {
			s.logger.WithField("user_id", u.ID).WithError(err).Warn("Could not unpin previous message")
		}
		u.PinnedMessageID = sql.NullInt64{}
	}

	lastMessageID := 0
	for _, loc := range starts {
		text := s.renderPhaseStart(u, loc, today)
		msgID, err := s.telegramClient.SendMessage(u.ID, text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		if err != nil {
			return fmt.Errorf("failed to send phase-start message: %w", err)
		}
		lastMessageID = msgID
	}

	if lastMessageID != 0 {
		if err := s.telegramClient.PinMessage(u.ID, lastMessageID); err != nil {
			s.logger.WithField("user_id", u.ID).WithError(err).Warn("Could not pin daily report")
		} else {
			u.PinnedMessageID = sql.NullInt64{Int64: int64(lastMessageID), Valid: true}
		}
	}

	u.LastNotificationDate = today
	u.DaysWithNotifications++
	return s.users.Update(ctx, u)
}

// processPhaseAdvance sends the reminder when the next reference phase is
// exactly the lead time away. Once per day.
func (s *NotificationServiceImpl) processPhaseAdvance(ctx context.Context, u *user.User, today cycle.Date) error {
	if u.LastPhaseAdvanceDate.Equal(today) {
		return nil
	}
	effLen, err := effectiveLength(ctx, s.history, u)
	if err != nil {
		return err
	}
	proj := cycle.NewProjector(u.LastPeriodStart, effLen, u.PeriodLength, s.reference)
	transition := proj.NextPhaseTransition(today)
	if transition.DaysUntil != phaseAdvanceLeadDays {
		return nil
	}

	text := fmt.Sprintf(
		"🔔 *Приближается новая фаза*\n\n"+
			"👩 Для: %s\n\n"+
			"🌙 Через %d дня начнётся фаза: *%s*\n"+
			"📅 Дата начала: %s\n\n"+
			"📝 %s\n\n"+
			"💡 %s",
		u.DisplayPartnerName(),
		transition.DaysUntil,
		transition.Phase.Title,
		FormatDateRussian(transition.StartDate),
		transition.Phase.Description,
		transition.Phase.Recommendations,
	)
	if _, err := s.telegramClient.SendMessage(u.ID, text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}); err != nil {
		return fmt.Errorf("failed to send phase-advance reminder: %w", err)
	}

	u.LastPhaseAdvanceDate = today
	return s.users.Update(ctx, u)
}

// processRolloverPrompt asks the user to confirm the new cycle start once the
// effective length, plus any accumulated extension days, has elapsed.
func (s *NotificationServiceImpl) processRolloverPrompt(ctx context.Context, u *user.User, today cycle.Date) error {
	if u.LastNotificationDate.Equal(today) {
		return nil
	}
	effLen, err := effectiveLength(ctx, s.history, u)
	if err != nil {
		return err
	}
	daysSinceStart := u.LastPeriodStart.DaysUntil(today) + 1
	if daysSinceStart < effLen+u.CycleExtendedDays {
		return nil
	}

	text := fmt.Sprintf(
		"🔄 *Цикл завершён!*\n\n"+
			"👩 Для: %s\n\n"+
			"📅 Расчётный цикл закончился. Уточните, начался ли новый цикл, и обновите дату:\n"+
			"• /update\\_start ДД.ММ.ГГГГ — новый цикл начался\n"+
			"• /ended\\_early ДД.ММ.ГГГГ — прошлый цикл закончился раньше\n"+
			"• /extend — цикл ещё не завершился, напомнить завтра",
		u.DisplayPartnerName(),
	)
	if _, err := s.telegramClient.SendMessage(u.ID, text, &telebot.SendOptions{ParseMode: telebot.ModeMarkdown}); err != nil {
		return fmt.Errorf("failed to send rollover prompt: %w", err)
	}

	u.LastNotificationDate = today
	return s.users.Update(ctx, u)
}

// renderPhaseStart builds the daily report for one starting phase/sub-phase.
func (s *NotificationServiceImpl) renderPhaseStart(u *user.User, loc cycle.Location, today cycle.Date) string {
	title := ""
	symptoms := ""
	behavior := ""
	recommendations := ""

	if notes, ok := s.reference.Notes(loc.Phase, loc.Stage); ok {
		title = notes.Title
		symptoms = notes.Symptoms
		behavior = notes.Behavior
		recommendations = notes.Recommendations
	} else if ref, ok := s.reference.ByName(loc.Phase); ok {
		title = ref.Title
		symptoms = ref.Symptoms
		behavior = ref.Behavior
		recommendations = ref.Recommendations
	}

	return fmt.Sprintf(
		"🌙 *Сегодня начинается: %s*\n\n"+
			"👩 Для: %s\n"+
			"📅 Дата: %s\n\n"+
			"🩺 Симптомы: %s\n"+
			"🎭 Поведение: %s\n\n"+
			"💡 Рекомендации: %s",
		title,
		u.DisplayPartnerName(),
		FormatDateRussian(today),
		symptoms,
		behavior,
		recommendations,
	)
}

var russianMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDateRussian renders a date as "2 января 2026".
func FormatDateRussian(d cycle.Date) string {
	if d.IsZero() {
		return "—"
	}
	t := d.Time()
	return fmt.Sprintf("%d %s %d", t.Day(), russianMonths[int(t.Month())-1], t.Year())
}
