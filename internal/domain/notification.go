package domain

import "time"

type NotificationKind string

const (
	NotificationOnce   NotificationKind = "once"
	NotificationDaily  NotificationKind = "daily"
	NotificationWeekly NotificationKind = "weekly"
)

// ScheduledNotification is one concrete trigger tracked by the gateway. The
// note record's notification_ids list is the source of truth; these rows are
// the derived cache the dispatcher works from.
type ScheduledNotification struct {
	ID      string
	UserID  int64
	ChatID  int64
	NoteID  int64
	Title   string
	Body    string
	Payload map[string]string

	Kind     NotificationKind
	FireAt   *time.Time // one-shot triggers
	Schedule string     // cron expression for daily/weekly triggers
	NextRun  time.Time

	CreatedAt time.Time
}
