package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ReminderType string

const (
	ReminderOneTime   ReminderType = "one_time"
	ReminderRecurring ReminderType = "recurring"
)

type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceYearly  RecurrencePattern = "yearly"
)

const DefaultReminderTime = "09:00"

// ReminderDescriptor is the structured reminder extracted from a transcript.
// Exactly one of the one-time fields (EventDate) or the recurring fields
// (Pattern/Day) carries meaning for a given descriptor.
type ReminderDescriptor struct {
	IsReminder    bool         `json:"isReminder"`
	Type          ReminderType `json:"reminderType,omitempty"`
	EventDate     string       `json:"eventDate,omitempty"` // local calendar date, "2006-01-02"
	EventLocation string       `json:"eventLocation,omitempty"`
	// DaysBefore is the lead-time window before a one-time event. Nil means the
	// user never stated one (the scheduler defaults to 1); an explicit 0 means
	// same-day only and is preserved.
	DaysBefore      *int              `json:"reminderDaysBefore,omitempty"`
	Pattern         RecurrencePattern `json:"recurrencePattern,omitempty"`
	Day             int               `json:"recurrenceDay,omitempty"` // weekly: 0-6 Sun-indexed, monthly: 1-31, yearly: day of year
	Time            string            `json:"recurrenceTime,omitempty"`
	AdditionalTimes []string          `json:"additionalTimes,omitempty"`
	Summary         string            `json:"reminderSummary,omitempty"`
}

// Times returns every time of day the descriptor should fire at, falling back
// to the single primary time, then the default.
func (d *ReminderDescriptor) Times() []string {
	if len(d.AdditionalTimes) > 0 {
		return d.AdditionalTimes
	}
	if d.Time != "" {
		return []string{d.Time}
	}
	return []string{DefaultReminderTime}
}

// ParseLocalDate parses a "2006-01-02" date in the given location. Parsing in
// the local zone (not UTC midnight) is what keeps the calendar date stable in
// negative-offset timezones.
func ParseLocalDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatLocalDate renders a calendar date as "2006-01-02".
func FormatLocalDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether two instants fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// ParseClock splits "HH:MM" into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time format: %s", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// OrdinalSuffix returns the English ordinal suffix for a day number.
func OrdinalSuffix(n int) string {
	if n%100 >= 11 && n%100 <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
