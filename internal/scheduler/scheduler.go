// Package scheduler runs the background clockwork: a per-minute pass that
// delivers due notification triggers, a nightly maintenance pass that rolls
// pending reminders forward and reconciles the trigger store, and a morning
// digest of the day's reminders.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"murmur/config"
	"murmur/internal/notify"
	"murmur/internal/service"
	"murmur/internal/storage"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
	SendReminder(chatID int64, noteID int64, title, body string) error
}

type Scheduler struct {
	cron      *cron.Cron
	cfg       *config.Config
	storage   *storage.Storage
	gateway   *notify.StoreGateway
	reminders *service.ReminderService
	queries   *service.QueryService
	sender    MessageSender
}

func New(cfg *config.Config, st *storage.Storage, gw *notify.StoreGateway, reminders *service.ReminderService, queries *service.QueryService) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(cfg.Timezone)),
		cfg:       cfg,
		storage:   st,
		gateway:   gw,
		reminders: reminders,
		queries:   queries,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	// The trigger store is a derived cache; rebuilding it from the notes on
	// every boot heals drift from crashes and restored backups.
	if err := s.reminders.RescheduleAll(); err != nil {
		log.Printf("Error reconciling reminders on startup: %v", err)
	}

	if _, err := s.cron.AddFunc("* * * * *", s.deliverDue); err != nil {
		return fmt.Errorf("add delivery check: %w", err)
	}
	if _, err := s.cron.AddFunc("10 0 * * *", s.nightlyMaintenance); err != nil {
		return fmt.Errorf("add nightly maintenance: %w", err)
	}
	morningSpec := fmt.Sprintf("0 %s * * *", s.cfg.MorningHour)
	if _, err := s.cron.AddFunc(morningSpec, s.morningDigest); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s)", s.cfg.Timezone)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

// deliverDue sends every trigger whose next_run has passed. A failed send is
// left untouched so the next minute retries it; successful one-shots are
// removed and recurring triggers advance to their next firing.
func (s *Scheduler) deliverDue() {
	if s.sender == nil {
		return
	}

	now := time.Now().In(s.cfg.Timezone)
	due, err := s.storage.ListDueNotifications(now)
	if err != nil {
		log.Printf("Error listing due notifications: %v", err)
		return
	}

	for _, n := range due {
		if err := s.sender.SendReminder(n.ChatID, n.NoteID, n.Title, n.Body); err != nil {
			log.Printf("Error delivering notification %s: %v", n.ID, err)
			continue
		}
		if err := s.gateway.Advance(n); err != nil {
			log.Printf("Error advancing notification %s: %v", n.ID, err)
		}
		if err := s.storage.SetLastRemindedAt(n.NoteID, now); err != nil {
			log.Printf("Error recording delivery for note %d: %v", n.NoteID, err)
		}
	}
}

// nightlyMaintenance rolls yesterday's unfinished dated reminders onto today,
// then reconciles the trigger store. Reconciliation is also what re-arms
// monthly and yearly reminders after their one-shot next occurrence fires.
func (s *Scheduler) nightlyMaintenance() {
	users, err := s.storage.ListUsers()
	if err != nil {
		log.Printf("Error listing users for rollover: %v", err)
	} else {
		for _, u := range users {
			moved, err := s.queries.RolloverPendingTasks(u.ID)
			if err != nil {
				log.Printf("Error rolling over reminders for user %d: %v", u.ID, err)
				continue
			}
			if moved > 0 {
				log.Printf("Rolled %d pending reminders onto today for user %d", moved, u.ID)
			}
		}
	}

	if err := s.reminders.RescheduleAll(); err != nil {
		log.Printf("Error reconciling reminders: %v", err)
	}
}

func (s *Scheduler) morningDigest() {
	if s.sender == nil {
		return
	}

	users, err := s.storage.ListUsers()
	if err != nil {
		log.Printf("Error listing users for digest: %v", err)
		return
	}

	for _, u := range users {
		items, err := s.queries.TodaysReminders(u.ID)
		if err != nil {
			log.Printf("Error building digest for user %d: %v", u.ID, err)
			continue
		}

		text := "☀️ <b>Good morning!</b>\n\n"
		if len(items) == 0 {
			text += "Nothing on the list today."
		} else {
			text += fmt.Sprintf("<b>%d on the list today:</b>\n\n", len(items))
			text += formatDigest(items)
		}
		if err := s.sender.SendMessage(u.TelegramID, text); err != nil {
			log.Printf("Error sending digest to %d: %v", u.TelegramID, err)
		}
	}
}

func formatDigest(items []service.ReminderItem) string {
	var text string
	for _, item := range items {
		mark := "◻️"
		if item.IsCompleted {
			mark = "✅"
		}
		line := fmt.Sprintf("%s %s", mark, item.Text)
		if item.TimeDisplay != "" {
			line += fmt.Sprintf(" (%s)", item.TimeDisplay)
		}
		text += line + "\n"
	}
	return text
}
