package caldav

import "time"

// Event is the calendar-facing projection of a dated reminder.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
}
