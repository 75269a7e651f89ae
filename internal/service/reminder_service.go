package service

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/teambition/rrule-go"

	"murmur/internal/domain"
	"murmur/internal/notify"
	"murmur/internal/storage"
)

// ReminderService turns a note's reminder descriptor into concrete gateway
// triggers and keeps the stored notification-id list in sync with them.
type ReminderService struct {
	storage  *storage.Storage
	gateway  notify.Gateway
	timezone *time.Location

	// Now is the clock used for same-day checks and future filtering.
	// Overridable in tests.
	Now func() time.Time
}

func NewReminderService(s *storage.Storage, gw notify.Gateway, tz *time.Location) *ReminderService {
	if tz == nil {
		tz = time.Local
	}
	return &ReminderService{
		storage:  s,
		gateway:  gw,
		timezone: tz,
		Now:      time.Now,
	}
}

func (s *ReminderService) now() time.Time {
	return s.Now().In(s.timezone)
}

// Schedule computes and registers the full trigger set for a note's reminder
// descriptor, then overwrites the note's notification_ids with the result.
// Individual schedule failures are logged and skipped so a partially working
// reminder beats none at all; only record-store failures propagate.
func (s *ReminderService) Schedule(note *domain.Note) ([]string, error) {
	d := note.Descriptor()
	if d == nil {
		return nil, nil
	}

	// Clear stale ids first so a mid-failure state is at worst "no triggers",
	// never "pointing at cancelled ids".
	if err := s.storage.SetNotificationIDs(note.ID, nil); err != nil {
		return nil, fmt.Errorf("clear notification ids: %w", err)
	}
	note.NotificationIDs = nil

	req, err := s.deliveryRequest(note, d)
	if err != nil {
		return nil, err
	}

	var ids []string
	if d.Type == domain.ReminderRecurring && d.Pattern != "" {
		ids = s.scheduleRecurring(req, d)
	} else {
		ids = s.scheduleOneTime(req, d)
	}

	if err := s.storage.SetNotificationIDs(note.ID, ids); err != nil {
		return ids, fmt.Errorf("persist notification ids: %w", err)
	}
	note.NotificationIDs = ids
	return ids, nil
}

func (s *ReminderService) deliveryRequest(note *domain.Note, d *domain.ReminderDescriptor) (notify.Request, error) {
	user, err := s.storage.GetUserByID(note.UserID)
	if err != nil {
		return notify.Request{}, fmt.Errorf("get user %d: %w", note.UserID, err)
	}
	if user == nil {
		return notify.Request{}, fmt.Errorf("user %d not found", note.UserID)
	}

	body := d.Summary
	if body == "" {
		body = note.Transcript
	}
	return notify.Request{
		UserID: note.UserID,
		ChatID: user.TelegramID,
		NoteID: note.ID,
		Body:   body,
		Payload: map[string]string{
			"targetTab": "reminders",
			"noteId":    strconv.FormatInt(note.ID, 10),
		},
	}, nil
}

// scheduleOneTime produces the lead-up sequence: one trigger per day from
// daysBefore down to the event day, per time of day, future instants only.
func (s *ReminderService) scheduleOneTime(req notify.Request, d *domain.ReminderDescriptor) []string {
	now := s.now()

	eventDate := now
	if d.EventDate != "" {
		parsed, err := domain.ParseLocalDate(d.EventDate, s.timezone)
		if err != nil {
			log.Printf("Skipping reminder for note %d: %v", req.NoteID, err)
			return nil
		}
		eventDate = parsed
	}

	// A same-day event never fires "N days before": those are mutually
	// exclusive intents.
	daysBefore := 1
	switch {
	case domain.SameDay(eventDate, now):
		daysBefore = 0
	case d.DaysBefore != nil:
		daysBefore = *d.DaysBefore
	}

	var ids []string
	for i := daysBefore; i >= 0; i-- {
		day := eventDate.AddDate(0, 0, -i)
		for _, clock := range d.Times() {
			hour, minute, err := domain.ParseClock(clock)
			if err != nil {
				log.Printf("Skipping invalid time %q for note %d", clock, req.NoteID)
				continue
			}
			trigger := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, s.timezone)
			if !trigger.After(now) {
				continue
			}
			r := req
			r.Title = leadTitle(i)
			id, err := s.gateway.ScheduleAt(r, trigger)
			if err != nil {
				log.Printf("Error scheduling trigger for note %d at %s: %v", req.NoteID, trigger, err)
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids
}

func leadTitle(daysOut int) string {
	switch daysOut {
	case 0:
		return "⏰ Reminder"
	case 1:
		return "📅 Upcoming Event Tomorrow"
	default:
		return fmt.Sprintf("📅 Upcoming Event in %d Days", daysOut)
	}
}

// scheduleRecurring registers one trigger per time of day. Daily and weekly
// use native recurring triggers; the gateway has no day-of-month trigger, so
// monthly and yearly schedule a one-shot for the next occurrence and rely on
// the nightly reconciliation pass to re-derive the one after it.
func (s *ReminderService) scheduleRecurring(req notify.Request, d *domain.ReminderDescriptor) []string {
	req.Title = "⏰ Reminder"
	now := s.now()

	var ids []string
	for _, clock := range d.Times() {
		hour, minute, err := domain.ParseClock(clock)
		if err != nil {
			log.Printf("Skipping invalid time %q for note %d", clock, req.NoteID)
			continue
		}

		var id string
		switch d.Pattern {
		case domain.RecurrenceDaily:
			id, err = s.gateway.ScheduleDaily(req, hour, minute)
		case domain.RecurrenceWeekly:
			id, err = s.gateway.ScheduleWeekly(req, time.Weekday(d.Day), hour, minute)
		case domain.RecurrenceMonthly:
			var next time.Time
			next, err = s.nextOccurrence(rrule.MONTHLY, d.Day, hour, minute, now)
			if err == nil {
				id, err = s.gateway.ScheduleOnce(req, next)
			}
		case domain.RecurrenceYearly:
			var next time.Time
			next, err = s.nextOccurrence(rrule.YEARLY, d.Day, hour, minute, now)
			if err == nil {
				id, err = s.gateway.ScheduleOnce(req, next)
			}
		default:
			err = fmt.Errorf("unknown recurrence pattern: %s", d.Pattern)
		}
		if err != nil {
			log.Printf("Error scheduling %s trigger for note %d: %v", d.Pattern, req.NoteID, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// nextOccurrence derives the next monthly (by day of month) or yearly (by day
// of year) firing strictly after now.
func (s *ReminderService) nextOccurrence(freq rrule.Frequency, day, hour, minute int, now time.Time) (time.Time, error) {
	opt := rrule.ROption{
		Freq:     freq,
		Dtstart:  now.Add(time.Minute),
		Byhour:   []int{hour},
		Byminute: []int{minute},
		Bysecond: []int{0},
	}
	if freq == rrule.MONTHLY {
		opt.Bymonthday = []int{day}
	} else {
		opt.Byyearday = []int{day}
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("build rrule: %w", err)
	}
	next := r.After(now, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no next occurrence for day %d", day)
	}
	return next.In(s.timezone), nil
}

// RescheduleAll is the reconciliation pass: cancel every scheduled trigger
// unconditionally, then re-derive triggers for every active reminder from its
// stored descriptor. Run on startup and nightly; it is also what keeps the
// monthly/yearly one-shot workaround effectively recurring.
func (s *ReminderService) RescheduleAll() error {
	if err := s.gateway.CancelAll(); err != nil {
		return fmt.Errorf("cancel all: %w", err)
	}

	notes, err := s.storage.ListAllActiveReminders()
	if err != nil {
		return fmt.Errorf("list active reminders: %w", err)
	}

	for _, note := range notes {
		if _, err := s.Schedule(note); err != nil {
			log.Printf("Error rescheduling note %d: %v", note.ID, err)
		}
	}
	return nil
}

// ReminderUpdate is a partial edit of a note's reminder fields; nil fields
// are left untouched.
type ReminderUpdate struct {
	Transcript      *string
	EventDate       *string
	EventLocation   *string
	DaysBefore      *int
	Pattern         *domain.RecurrencePattern
	RecurrenceDay   *int
	Time            *string
	AdditionalTimes *[]string
	Active          *bool
}

// Update cancels the note's existing triggers, applies the partial edit, and
// re-schedules from the updated descriptor when the reminder stays active.
func (s *ReminderService) Update(noteID int64, upd ReminderUpdate) error {
	note, err := s.storage.GetNote(noteID)
	if err != nil {
		return fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return fmt.Errorf("note %d not found", noteID)
	}

	s.cancelTracked(note)

	if upd.Transcript != nil {
		note.Transcript = *upd.Transcript
	}
	if upd.EventDate != nil {
		note.EventDate = *upd.EventDate
		note.ReminderType = domain.ReminderOneTime
	}
	if upd.EventLocation != nil {
		note.EventLocation = *upd.EventLocation
	}
	if upd.DaysBefore != nil {
		note.DaysBefore = upd.DaysBefore
	}
	if upd.Pattern != nil {
		note.Pattern = *upd.Pattern
		note.ReminderType = domain.ReminderRecurring
	}
	if upd.RecurrenceDay != nil {
		note.RecurrenceDay = *upd.RecurrenceDay
	}
	if upd.Time != nil {
		note.RecurrenceTime = *upd.Time
	}
	if upd.AdditionalTimes != nil {
		note.AdditionalTimes = *upd.AdditionalTimes
	}
	if upd.Active != nil {
		note.ReminderActive = *upd.Active
	}

	note.NotificationIDs = nil
	if err := s.storage.UpdateNoteReminder(note); err != nil {
		return err
	}

	if note.ReminderActive {
		if _, err := s.Schedule(note); err != nil {
			return fmt.Errorf("reschedule note %d: %w", noteID, err)
		}
	}
	return nil
}

// ToggleActive pauses or resumes the whole reminder rule.
func (s *ReminderService) ToggleActive(noteID int64, active bool) error {
	return s.Update(noteID, ReminderUpdate{Active: &active})
}

// Delete cancels every tracked trigger, then removes the note and its
// completion rows.
func (s *ReminderService) Delete(noteID int64) error {
	note, err := s.storage.GetNote(noteID)
	if err != nil {
		return fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return nil
	}
	s.cancelTracked(note)
	return s.storage.DeleteNote(noteID)
}

// MarkDone completes a reminder for the given local date. One-time reminders
// and unscheduled tasks flip their own completion field and deactivate; a
// recurring reminder records a per-day completion row instead, leaving the
// rule itself untouched.
func (s *ReminderService) MarkDone(noteID int64, date time.Time) error {
	note, err := s.storage.GetNote(noteID)
	if err != nil {
		return fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return fmt.Errorf("note %d not found", noteID)
	}

	if note.IsReminder && note.ReminderType == domain.ReminderRecurring {
		return s.storage.UpsertCompletion(note.ID, note.UserID, domain.FormatLocalDate(date.In(s.timezone)))
	}

	s.cancelTracked(note)
	now := s.now()
	return s.storage.SetReminderCompleted(note.ID, &now, false)
}

// UndoDone reverses MarkDone for the same date. A one-time reminder becomes
// active again and gets its triggers back.
func (s *ReminderService) UndoDone(noteID int64, date time.Time) error {
	note, err := s.storage.GetNote(noteID)
	if err != nil {
		return fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return fmt.Errorf("note %d not found", noteID)
	}

	if note.IsReminder && note.ReminderType == domain.ReminderRecurring {
		return s.storage.DeleteCompletion(note.ID, domain.FormatLocalDate(date.In(s.timezone)))
	}

	if err := s.storage.SetReminderCompleted(note.ID, nil, note.IsReminder); err != nil {
		return err
	}
	if note.IsReminder {
		note.ReminderCompletedAt = nil
		note.ReminderActive = true
		if _, err := s.Schedule(note); err != nil {
			return fmt.Errorf("reschedule note %d: %w", noteID, err)
		}
	}
	return nil
}

// cancelTracked best-effort cancels every trigger the note points at.
// Cancelling an already-gone trigger is not an error.
func (s *ReminderService) cancelTracked(note *domain.Note) {
	for _, id := range note.NotificationIDs {
		if err := s.gateway.Cancel(id); err != nil {
			log.Printf("Error cancelling notification %s: %v", id, err)
		}
	}
}
