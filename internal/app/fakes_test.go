package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"time"

	"cycle_tracker_bot/internal/domain/cycle"
	"cycle_tracker_bot/internal/domain/history"
	"cycle_tracker_bot/internal/domain/user"
	idb "cycle_tracker_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// memUserRepo is an in-memory user.Repository mirroring the Postgres
// implementation's semantics, including the column defaults applied on Create.
type memUserRepo struct {
	users map[int64]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*user.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	if existing, ok := r.users[u.ID]; ok {
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		u.CreatedAt = existing.CreatedAt
		return nil
	}
	stored := *u
	stored.CycleLength = user.DefaultCycleLength
	stored.PeriodLength = user.DefaultPeriodLength
	if stored.NotificationTime == "" {
		stored.NotificationTime = user.DefaultNotificationTime
	}
	stored.NotificationsEnabled = true
	stored.NotifyPhaseStart = true
	stored.CreatedAt = time.Now()
	r.users[u.ID] = &stored
	u.CreatedAt = stored.CreatedAt
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return idb.ErrUserNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) ListNotifiable(_ context.Context) ([]*user.User, error) {
	out := make([]*user.User, 0)
	for _, u := range r.users {
		if u.NotificationsEnabled && !u.LastPeriodStart.IsZero() {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) Reset(_ context.Context, id int64) error {
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	u.Name = sql.NullString{}
	u.PartnerName = sql.NullString{}
	u.CycleLength = user.DefaultCycleLength
	u.PeriodLength = user.DefaultPeriodLength
	u.LastPeriodStart = cycle.Date{}
	u.CycleExtendedDays = 0
	u.NotificationsEnabled = true
	u.NotificationTime = user.DefaultNotificationTime
	u.NotifyPhaseStart = true
	u.DaysWithNotifications = 0
	u.LastNotificationDate = cycle.Date{}
	u.LastPhaseAdvanceDate = cycle.Date{}
	u.PinnedMessageID = sql.NullInt64{}
	return nil
}

// memHistoryRepo is an in-memory history.Repository keeping records ordered
// newest first by cycle start date.
type memHistoryRepo struct {
	nextID  int64
	records map[int64][]*history.Record
}

func newMemHistoryRepo() *memHistoryRepo {
	return &memHistoryRepo{records: make(map[int64][]*history.Record)}
}

func (r *memHistoryRepo) Append(_ context.Context, userID int64, p *cycle.Partition) (*history.Record, error) {
	r.nextID++
	rec := &history.Record{
		ID:             r.nextID,
		UserID:         userID,
		CycleStartDate: p.Info.LastMenstruationStart,
		Partition:      p,
		CreatedAt:      time.Now(),
	}
	recs := append(r.records[userID], rec)
	sort.Slice(recs, func(i, j int) bool { return recs[i].CycleStartDate.After(recs[j].CycleStartDate) })
	r.records[userID] = recs
	return rec, nil
}

func (r *memHistoryRepo) CorrectLastEnd(_ context.Context, userID int64, actualEnd, today cycle.Date) (*history.Record, error) {
	recs := r.records[userID]
	if len(recs) == 0 {
		return nil, idb.ErrHistoryRecordNotFound
	}
	latest := recs[0]
	if actualEnd.Before(latest.CycleStartDate) {
		return nil, fmt.Errorf("%w: %s precedes cycle start %s", idb.ErrInvalidEndDate, actualEnd, latest.CycleStartDate)
	}
	if actualEnd.After(today) {
		return nil, fmt.Errorf("%w: %s is in the future", idb.ErrInvalidEndDate, actualEnd)
	}
	latest.ActualEndDate = actualEnd
	cp := *latest
	return &cp, nil
}

func (r *memHistoryRepo) Latest(ctx context.Context, userID int64) (*history.Record, error) {
	recs, err := r.LatestN(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, idb.ErrHistoryRecordNotFound
	}
	return recs[0], nil
}

func (r *memHistoryRepo) LatestN(_ context.Context, userID int64, n int) ([]*history.Record, error) {
	recs := r.records[userID]
	if len(recs) > n {
		recs = recs[:n]
	}
	out := make([]*history.Record, len(recs))
	copy(out, recs)
	return out, nil
}

func (r *memHistoryRepo) ResetAll(_ context.Context, userID int64) error {
	delete(r.records, userID)
	return nil
}

type sentMessage struct {
	chatID int64
	text   string
}

// fakeTelegramClient records outbound calls instead of talking to Telegram.
type fakeTelegramClient struct {
	nextMsgID int
	sent      []sentMessage
	pinned    []int
	unpinned  []int
}

func (c *fakeTelegramClient) SendMessage(chatID int64, text string, _ *telebot.SendOptions) (int, error) {
	c.nextMsgID++
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text})
	return c.nextMsgID, nil
}

func (c *fakeTelegramClient) PinMessage(_ int64, messageID int) error {
	c.pinned = append(c.pinned, messageID)
	return nil
}

func (c *fakeTelegramClient) UnpinMessage(_ int64, messageID int) error {
	c.unpinned = append(c.unpinned, messageID)
	return nil
}
