package service

import (
	"context"
	"fmt"
	"time"

	"murmur/internal/clients/caldav"
	"murmur/internal/domain"
)

// CalendarService mirrors date-bound one-time reminders into a CalDAV
// calendar. Every call is best-effort from the caller's point of view; the
// bot never blocks note intake on calendar availability.
type CalendarService struct {
	client   *caldav.Client
	timezone *time.Location
}

func NewCalendarService(client *caldav.Client, tz *time.Location) *CalendarService {
	if tz == nil {
		tz = time.Local
	}
	return &CalendarService{client: client, timezone: tz}
}

func (s *CalendarService) IsConfigured() bool {
	return s != nil && s.client.IsConfigured()
}

func eventUID(noteID int64) string {
	return fmt.Sprintf("murmur-note-%d", noteID)
}

// SyncReminder publishes the note's event to the calendar. Recurring and
// dateless reminders are skipped; they have no single calendar instant.
func (s *CalendarService) SyncReminder(ctx context.Context, note *domain.Note) error {
	if !s.IsConfigured() {
		return nil
	}
	d := note.Descriptor()
	if d == nil || d.Type == domain.ReminderRecurring || d.EventDate == "" {
		return nil
	}

	eventDate, err := domain.ParseLocalDate(d.EventDate, s.timezone)
	if err != nil {
		return err
	}
	hour, minute, err := domain.ParseClock(d.Times()[0])
	if err != nil {
		hour, minute = 9, 0
	}
	start := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), hour, minute, 0, 0, s.timezone)

	return s.client.PutEvent(ctx, &caldav.Event{
		UID:         eventUID(note.ID),
		Summary:     note.ReminderText(),
		Description: note.Transcript,
		Location:    d.EventLocation,
		StartTime:   start,
	})
}

// RemoveReminder deletes the note's calendar event if one was published.
func (s *CalendarService) RemoveReminder(ctx context.Context, noteID int64) error {
	if !s.IsConfigured() {
		return nil
	}
	return s.client.DeleteEvent(ctx, eventUID(noteID))
}
