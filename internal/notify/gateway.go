// Package notify wraps the notification delivery capability behind a small
// gateway interface: schedule a trigger, cancel by id, cancel everything.
// No business logic lives here.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"murmur/internal/domain"
	"murmur/internal/storage"
)

// Request carries the delivery details every schedule call needs.
type Request struct {
	UserID  int64
	ChatID  int64
	NoteID  int64
	Title   string
	Body    string
	Payload map[string]string
}

// Gateway schedules and cancels notification triggers. Cancel of an unknown
// or already-fired id is not an error.
type Gateway interface {
	// ScheduleAt registers a one-shot trigger for a concrete instant.
	ScheduleAt(req Request, at time.Time) (string, error)
	// ScheduleDaily registers a trigger firing every day at hour:minute.
	ScheduleDaily(req Request, hour, minute int) (string, error)
	// ScheduleWeekly registers a trigger firing weekly on the given weekday.
	ScheduleWeekly(req Request, weekday time.Weekday, hour, minute int) (string, error)
	// ScheduleOnce registers a one-shot trigger for a calendar date + time.
	// Used for the monthly/yearly next-occurrence workaround.
	ScheduleOnce(req Request, at time.Time) (string, error)
	Cancel(id string) error
	CancelAll() error
}

// StoreGateway persists triggers as rows the dispatcher drains. Recurring
// triggers carry a cron expression and a precomputed next_run; one-shots
// carry the concrete instant.
type StoreGateway struct {
	storage  *storage.Storage
	timezone *time.Location
}

func NewStoreGateway(s *storage.Storage, tz *time.Location) *StoreGateway {
	if tz == nil {
		tz = time.Local
	}
	return &StoreGateway{storage: s, timezone: tz}
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func (g *StoreGateway) ScheduleAt(req Request, at time.Time) (string, error) {
	fireAt := at.In(g.timezone)
	n := &domain.ScheduledNotification{
		ID:      uuid.NewString(),
		UserID:  req.UserID,
		ChatID:  req.ChatID,
		NoteID:  req.NoteID,
		Title:   req.Title,
		Body:    req.Body,
		Payload: req.Payload,
		Kind:    domain.NotificationOnce,
		FireAt:  &fireAt,
		NextRun: fireAt,
	}
	if err := g.storage.CreateScheduledNotification(n); err != nil {
		return "", fmt.Errorf("schedule at: %w", err)
	}
	return n.ID, nil
}

func (g *StoreGateway) ScheduleOnce(req Request, at time.Time) (string, error) {
	return g.ScheduleAt(req, at)
}

func (g *StoreGateway) ScheduleDaily(req Request, hour, minute int) (string, error) {
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	return g.scheduleCron(req, domain.NotificationDaily, spec)
}

func (g *StoreGateway) ScheduleWeekly(req Request, weekday time.Weekday, hour, minute int) (string, error) {
	// cron weekdays are Sunday-indexed like time.Weekday, no conversion needed
	spec := fmt.Sprintf("%d %d * * %d", minute, hour, int(weekday))
	return g.scheduleCron(req, domain.NotificationWeekly, spec)
}

func (g *StoreGateway) scheduleCron(req Request, kind domain.NotificationKind, spec string) (string, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return "", fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	now := time.Now().In(g.timezone)
	n := &domain.ScheduledNotification{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		ChatID:   req.ChatID,
		NoteID:   req.NoteID,
		Title:    req.Title,
		Body:     req.Body,
		Payload:  req.Payload,
		Kind:     kind,
		Schedule: spec,
		NextRun:  sched.Next(now),
	}
	if err := g.storage.CreateScheduledNotification(n); err != nil {
		return "", fmt.Errorf("schedule %s: %w", kind, err)
	}
	return n.ID, nil
}

func (g *StoreGateway) Cancel(id string) error {
	return g.storage.DeleteScheduledNotification(id)
}

func (g *StoreGateway) CancelAll() error {
	return g.storage.DeleteAllScheduledNotifications()
}

// Advance computes and stores the next firing for a recurring trigger, or
// removes a one-shot after delivery. The dispatcher calls it per delivery.
func (g *StoreGateway) Advance(n *domain.ScheduledNotification) error {
	if n.Kind == domain.NotificationOnce {
		return g.storage.DeleteScheduledNotification(n.ID)
	}
	sched, err := cronParser.Parse(n.Schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", n.Schedule, err)
	}
	return g.storage.UpdateNotificationNextRun(n.ID, sched.Next(time.Now().In(g.timezone)))
}
