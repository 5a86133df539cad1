package scheduler

import (
	"context"
	"time"

	"cycle_tracker_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// NotificationScheduler drives the notification poll on a cron cadence.
// Each tick is an idempotent, retryable check: the service tracks per-user
// last-notified dates, so a repeated tick sends nothing twice.
type NotificationScheduler struct {
	cronEngine   *cron.Cron
	notifService app.NotificationService
	logger       *logrus.Entry
	cronSpecPoll string
}

func NewNotificationScheduler(
	notifService app.NotificationService,
	logger *logrus.Entry,
	cronSpecPoll string, // e.g. "* * * * *" to match user HH:MM times
) *NotificationScheduler {
	return &NotificationScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		notifService: notifService,
		logger:       logger,
		cronSpecPoll: cronSpecPoll,
	}
}

func (s *NotificationScheduler) Start() {
	s.logger.Info("Starting notification scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecPoll, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := s.notifService.ProcessDueNotifications(ctx, time.Now()); err != nil {
			s.logger.WithError(err).Error("Notification poll failed")
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add notification poll cron job")
	}

	s.cronEngine.Start()
	s.logger.Info("Notification scheduler started.")
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler...")
	ctx := s.cronEngine.Stop() // Stops new jobs, waits for running ones.
	<-ctx.Done()
	s.logger.Info("Notification scheduler gracefully stopped.")
}
