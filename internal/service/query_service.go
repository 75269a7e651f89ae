package service

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"murmur/internal/domain"
	"murmur/internal/storage"
)

// QueryService answers "what is on for a given day": which reminders and
// tasks apply, whether each is done, and how to render its schedule.
type QueryService struct {
	storage  *storage.Storage
	timezone *time.Location

	Now func() time.Time
}

func NewQueryService(s *storage.Storage, tz *time.Location) *QueryService {
	if tz == nil {
		tz = time.Local
	}
	return &QueryService{storage: s, timezone: tz, Now: time.Now}
}

func (s *QueryService) now() time.Time {
	return s.Now().In(s.timezone)
}

// ReminderItem is one row of a day view, ready for display.
type ReminderItem struct {
	Note        *domain.Note
	IsCompleted bool
	Text        string
	TimeDisplay string
}

// TodaysReminders returns the day view for the current local date.
func (s *QueryService) TodaysReminders(userID int64) ([]ReminderItem, error) {
	return s.RemindersForDate(userID, s.now())
}

// RemindersForDate assembles the day view for an arbitrary date: active
// reminders whose schedule covers the date, dateless tasks, and, for today
// only, everything completed during the day so finished items stay visible
// until midnight. Incomplete items sort before completed ones, otherwise
// insertion order is kept.
func (s *QueryService) RemindersForDate(userID int64, date time.Time) ([]ReminderItem, error) {
	date = date.In(s.timezone)
	today := s.now()
	isToday := domain.SameDay(date, today)

	var notes []*domain.Note
	seen := make(map[int64]bool)
	add := func(batch []*domain.Note) {
		for _, n := range batch {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			notes = append(notes, n)
		}
	}

	active, err := s.storage.ListActiveReminders(userID)
	if err != nil {
		return nil, fmt.Errorf("list active reminders: %w", err)
	}
	add(active)

	tasks, err := s.storage.ListUnscheduledTasks(userID, false)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	add(tasks)

	if isToday {
		dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.timezone)
		dayEnd := dayStart.AddDate(0, 0, 1)

		doneTasks, err := s.storage.ListTasksCompletedBetween(userID, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("list completed tasks: %w", err)
		}
		add(doneTasks)

		doneReminders, err := s.storage.ListOneTimeCompletedBetween(userID, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("list completed reminders: %w", err)
		}
		add(doneReminders)
	}

	completions, err := s.storage.ListCompletionsOn(userID, domain.FormatLocalDate(date))
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}

	var items []ReminderItem
	for _, note := range notes {
		if !s.shouldShow(note, date) {
			continue
		}
		items = append(items, ReminderItem{
			Note:        note,
			IsCompleted: s.isCompleted(note, completions),
			Text:        note.ReminderText(),
			TimeDisplay: s.TimeDisplay(note, today),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return !items[i].IsCompleted && items[j].IsCompleted
	})
	return items, nil
}

// shouldShow decides whether a note belongs on the given date's view.
func (s *QueryService) shouldShow(note *domain.Note, date time.Time) bool {
	if note.IsUnscheduledTask() {
		return true
	}
	if !note.IsReminder {
		return false
	}

	if note.ReminderType == domain.ReminderRecurring {
		switch note.Pattern {
		case domain.RecurrenceDaily:
			return true
		case domain.RecurrenceWeekly:
			return note.RecurrenceDay == int(date.Weekday())
		case domain.RecurrenceMonthly:
			return note.RecurrenceDay == date.Day()
		case domain.RecurrenceYearly:
			return note.RecurrenceDay == date.YearDay()
		}
		return false
	}

	// One-time completed reminders only appear on their completion day.
	if note.ReminderCompletedAt != nil {
		return domain.SameDay(note.ReminderCompletedAt.In(s.timezone), date)
	}
	if note.EventDate == "" {
		return true
	}
	eventDate, err := domain.ParseLocalDate(note.EventDate, s.timezone)
	if err != nil {
		log.Printf("Invalid event date %q on note %d", note.EventDate, note.ID)
		return false
	}
	// Overdue one-time reminders stick around until dealt with.
	return !eventDate.After(date)
}

func (s *QueryService) isCompleted(note *domain.Note, completions map[int64]bool) bool {
	if note.IsReminder && note.ReminderType == domain.ReminderRecurring {
		return completions[note.ID]
	}
	return note.ReminderCompletedAt != nil
}

// TimeDisplay renders a note's schedule for humans: "Today at 3:00 PM",
// "Every Monday at 9:00 AM", "Monthly on the 15th at 9:00 AM".
func (s *QueryService) TimeDisplay(note *domain.Note, today time.Time) string {
	d := note.Descriptor()
	if d == nil {
		return ""
	}
	times := formatTimes(d.Times())

	if d.Type == domain.ReminderRecurring && d.Pattern != "" {
		switch d.Pattern {
		case domain.RecurrenceDaily:
			return "Daily at " + times
		case domain.RecurrenceWeekly:
			return fmt.Sprintf("Every %s at %s", time.Weekday(d.Day), times)
		case domain.RecurrenceMonthly:
			return fmt.Sprintf("Monthly on the %d%s at %s", d.Day, domain.OrdinalSuffix(d.Day), times)
		case domain.RecurrenceYearly:
			return fmt.Sprintf("Yearly on day %d at %s", d.Day, times)
		}
	}

	if d.EventDate == "" {
		return times
	}
	eventDate, err := domain.ParseLocalDate(d.EventDate, s.timezone)
	if err != nil {
		return times
	}
	switch {
	case domain.SameDay(eventDate, today):
		return "Today at " + times
	case domain.SameDay(eventDate, today.AddDate(0, 0, 1)):
		return "Tomorrow at " + times
	case eventDate.Before(today) && note.ReminderCompletedAt == nil:
		return "Past due"
	default:
		return eventDate.Format("Jan 2") + " at " + times
	}
}

// formatTimes renders "HH:MM" clocks as a 12-hour list joined with " & ".
func formatTimes(clocks []string) string {
	out := make([]string, 0, len(clocks))
	for _, c := range clocks {
		hour, minute, err := domain.ParseClock(c)
		if err != nil {
			continue
		}
		t := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
		out = append(out, t.Format("3:04 PM"))
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " & ")
}

// RolloverPendingTasks moves the user's date-bound incomplete one-time
// reminders from past dates onto today, so nothing silently expires. Returns
// how many notes moved.
func (s *QueryService) RolloverPendingTasks(userID int64) (int64, error) {
	return s.storage.RolloverPendingReminders(userID, domain.FormatLocalDate(s.now()))
}
