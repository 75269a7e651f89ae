package domain

import "time"

type NoteType string

const (
	NoteTask       NoteType = "task"
	NotePreference NoteType = "preference"
	NoteIntent     NoteType = "intent"
	NoteReminder   NoteType = "reminder"
)

// Note is the persisted record behind every transcript the user saves. The
// reminder columns mirror the descriptor so the scheduler can re-derive
// triggers without re-parsing, and ParsedData keeps the full parse as JSON.
type Note struct {
	ID         int64
	UserID     int64
	Transcript string
	ParsedData string // JSON-encoded ParsedNote
	Tags       []string
	Type       NoteType

	IsReminder      bool
	ReminderType    ReminderType
	EventDate       string // "2006-01-02", empty when not date-bound
	EventLocation   string
	DaysBefore      *int
	Pattern         RecurrencePattern
	RecurrenceDay   int
	RecurrenceTime  string
	AdditionalTimes []string

	// NotificationIDs are the gateway triggers currently backing this note.
	// Always overwritten as a whole on (re)scheduling.
	NotificationIDs []string

	ReminderActive      bool
	LastRemindedAt      *time.Time
	ReminderCompletedAt *time.Time

	CreatedAt time.Time
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsUnscheduledTask reports whether the note is a dateless task that should
// always appear in today's list until completed.
func (n *Note) IsUnscheduledTask() bool {
	return n.Type == NoteTask && !n.IsReminder
}

// Descriptor rebuilds the reminder descriptor from the note's columns.
func (n *Note) Descriptor() *ReminderDescriptor {
	if !n.IsReminder {
		return nil
	}
	return &ReminderDescriptor{
		IsReminder:      true,
		Type:            n.ReminderType,
		EventDate:       n.EventDate,
		EventLocation:   n.EventLocation,
		DaysBefore:      n.DaysBefore,
		Pattern:         n.Pattern,
		Day:             n.RecurrenceDay,
		Time:            n.RecurrenceTime,
		AdditionalTimes: n.AdditionalTimes,
		Summary:         n.ReminderText(),
	}
}

// ReminderText returns the display text for the note, stripping the common
// reminder prefixes the extractor and the model both tend to leave in.
func (n *Note) ReminderText() string {
	text := n.Transcript
	if p := n.parsedSummary(); p != "" {
		text = p
	}
	return StripReminderPrefix(text)
}

func (n *Note) parsedSummary() string {
	parsed, err := DecodeParsedNote(n.ParsedData)
	if err != nil || parsed == nil {
		return ""
	}
	if parsed.Reminder != nil && parsed.Reminder.Summary != "" {
		return parsed.Reminder.Summary
	}
	return parsed.Summary
}

// ReminderCompletion records one occurrence of a recurring reminder being
// marked done. At most one row exists per (note, date) pair.
type ReminderCompletion struct {
	ID            int64
	NoteID        int64
	UserID        int64
	CompletedDate string // "2006-01-02", local
	CreatedAt     time.Time
}
