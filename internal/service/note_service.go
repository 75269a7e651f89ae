package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"murmur/internal/domain"
	"murmur/internal/storage"
)

// NoteService is the intake pipeline: transcript in, persisted note out, with
// any detected reminder scheduled and mirrored to the calendar. Parsing never
// blocks intake; persistence failures do.
type NoteService struct {
	storage   *storage.Storage
	intents   *IntentService
	reminders *ReminderService
	calendar  *CalendarService
	timezone  *time.Location
}

func NewNoteService(s *storage.Storage, intents *IntentService, reminders *ReminderService, calendar *CalendarService, tz *time.Location) *NoteService {
	if tz == nil {
		tz = time.Local
	}
	return &NoteService{
		storage:   s,
		intents:   intents,
		reminders: reminders,
		calendar:  calendar,
		timezone:  tz,
	}
}

// CreateFromTranscript parses the transcript, stores the note, and schedules
// its reminder triggers. Scheduling and calendar sync failures are logged,
// not returned; the saved note is re-derivable from its columns either way.
func (s *NoteService) CreateFromTranscript(ctx context.Context, userID int64, transcript string) (*domain.Note, error) {
	parsed := s.intents.Parse(ctx, transcript)

	encoded, err := domain.EncodeParsedNote(parsed)
	if err != nil {
		return nil, fmt.Errorf("encode parse: %w", err)
	}

	note := &domain.Note{
		UserID:     userID,
		Transcript: transcript,
		ParsedData: encoded,
		Tags:       noteTags(parsed),
		Type:       parsed.Type,
	}
	if d := parsed.Reminder; d != nil {
		note.IsReminder = true
		note.ReminderType = d.Type
		note.EventDate = d.EventDate
		note.EventLocation = d.EventLocation
		note.DaysBefore = d.DaysBefore
		note.Pattern = d.Pattern
		note.RecurrenceDay = d.Day
		note.RecurrenceTime = d.Time
		note.AdditionalTimes = d.AdditionalTimes
		note.ReminderActive = true
	}

	if err := s.storage.CreateNote(note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	if note.IsReminder {
		if _, err := s.reminders.Schedule(note); err != nil {
			log.Printf("Error scheduling reminder for note %d: %v", note.ID, err)
		}
		if s.calendar.IsConfigured() {
			if err := s.calendar.SyncReminder(ctx, note); err != nil {
				log.Printf("Error syncing note %d to calendar: %v", note.ID, err)
			}
		}
	}
	return note, nil
}

// DeleteNote removes the note, its triggers, and its calendar mirror.
func (s *NoteService) DeleteNote(ctx context.Context, noteID int64) error {
	if s.calendar.IsConfigured() {
		if err := s.calendar.RemoveReminder(ctx, noteID); err != nil {
			log.Printf("Error removing note %d from calendar: %v", noteID, err)
		}
	}
	return s.reminders.Delete(noteID)
}

func noteTags(p *domain.ParsedNote) []string {
	tags := append([]string(nil), p.Tags...)
	has := func(tag string) bool {
		for _, t := range tags {
			if t == tag {
				return true
			}
		}
		return false
	}
	if p.Reminder != nil && !has("reminder") {
		tags = append(tags, "reminder")
	}
	if p.Type == domain.NotePreference && !has("preference") {
		tags = append(tags, "preference")
	}
	if p.LocationCategory != "" && !has(p.LocationCategory) {
		tags = append(tags, p.LocationCategory)
	}
	if len(p.ShoppingItems) > 0 && !has("shopping") {
		tags = append(tags, "shopping")
	}
	return tags
}
