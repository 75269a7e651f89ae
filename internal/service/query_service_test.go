package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/domain"
)

func newQueryService(env *testEnv) *QueryService {
	svc := NewQueryService(env.storage, time.UTC)
	svc.Now = func() time.Time { return serviceNow }
	return svc
}

func itemIDs(items []ReminderItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Note.ID)
	}
	return ids
}

func TestRemindersForDateVisibility(t *testing.T) {
	env := newTestEnv(t)
	queries := newQueryService(env)

	today := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-09-01" })
	future := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-09-10" })
	overdue := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-08-25" })
	dateless := env.createReminder(t, nil)
	// Tuesday reminder; 2026-09-01 is a Tuesday.
	weekly := env.createReminder(t, func(n *domain.Note) {
		n.ReminderType = domain.ReminderRecurring
		n.Pattern = domain.RecurrenceWeekly
		n.RecurrenceDay = 2
	})
	monthly := env.createReminder(t, func(n *domain.Note) {
		n.ReminderType = domain.ReminderRecurring
		n.Pattern = domain.RecurrenceMonthly
		n.RecurrenceDay = 15
	})
	task := &domain.Note{UserID: env.user.ID, Transcript: "clean the garage", Type: domain.NoteTask}
	require.NoError(t, env.storage.CreateNote(task))

	items, err := queries.TodaysReminders(env.user.ID)
	require.NoError(t, err)

	ids := itemIDs(items)
	assert.Contains(t, ids, today.ID)
	assert.Contains(t, ids, overdue.ID)
	assert.Contains(t, ids, dateless.ID)
	assert.Contains(t, ids, weekly.ID)
	assert.Contains(t, ids, task.ID)
	assert.NotContains(t, ids, future.ID)
	assert.NotContains(t, ids, monthly.ID)

	// On the 15th (a Tuesday plus 2 weeks) the monthly one appears and the
	// weekly one still matches the weekday.
	items, err = queries.RemindersForDate(env.user.ID, time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	ids = itemIDs(items)
	assert.Contains(t, ids, monthly.ID)
	assert.Contains(t, ids, weekly.ID)
	assert.Contains(t, ids, future.ID) // the 10th has passed by then
}

func TestTodayIncludesItemsCompletedToday(t *testing.T) {
	env := newTestEnv(t)
	queries := newQueryService(env)

	done := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-09-01" })
	pending := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-09-01" })

	require.NoError(t, env.reminders.MarkDone(done.ID, serviceNow))

	items, err := queries.TodaysReminders(env.user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// Incomplete items sort first; the completed one stays visible until
	// midnight with its completed flag set.
	assert.Equal(t, pending.ID, items[0].Note.ID)
	assert.False(t, items[0].IsCompleted)
	assert.Equal(t, done.ID, items[1].Note.ID)
	assert.True(t, items[1].IsCompleted)

	// On other days a completed one-time reminder is gone entirely.
	items, err = queries.RemindersForDate(env.user.ID, time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotContains(t, itemIDs(items), done.ID)
}

func TestRecurringCompletionIsPerDate(t *testing.T) {
	env := newTestEnv(t)
	queries := newQueryService(env)

	daily := env.createReminder(t, func(n *domain.Note) {
		n.ReminderType = domain.ReminderRecurring
		n.Pattern = domain.RecurrenceDaily
	})
	require.NoError(t, env.reminders.MarkDone(daily.ID, serviceNow))

	items, err := queries.TodaysReminders(env.user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsCompleted)

	// Tomorrow the same rule shows up fresh.
	items, err = queries.RemindersForDate(env.user.ID, serviceNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsCompleted)
}

func TestCompletedTaskHiddenAfterItsDay(t *testing.T) {
	env := newTestEnv(t)
	queries := newQueryService(env)

	task := &domain.Note{UserID: env.user.ID, Transcript: "clean the garage", Type: domain.NoteTask}
	require.NoError(t, env.storage.CreateNote(task))

	yesterday := serviceNow.AddDate(0, 0, -1)
	require.NoError(t, env.storage.SetReminderCompleted(task.ID, &yesterday, false))

	items, err := queries.TodaysReminders(env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTimeDisplay(t *testing.T) {
	env := newTestEnv(t)
	queries := newQueryService(env)

	tests := []struct {
		name string
		mut  func(*domain.Note)
		want string
	}{
		{
			"today",
			func(n *domain.Note) { n.EventDate = "2026-09-01"; n.RecurrenceTime = "15:00" },
			"Today at 3:00 PM",
		},
		{
			"tomorrow",
			func(n *domain.Note) { n.EventDate = "2026-09-02" },
			"Tomorrow at 9:00 AM",
		},
		{
			"future date",
			func(n *domain.Note) { n.EventDate = "2026-09-20"; n.RecurrenceTime = "08:15" },
			"Sep 20 at 8:15 AM",
		},
		{
			"past due",
			func(n *domain.Note) { n.EventDate = "2026-08-20" },
			"Past due",
		},
		{
			"multiple times",
			func(n *domain.Note) {
				n.EventDate = "2026-09-02"
				n.RecurrenceTime = "11:00"
				n.AdditionalTimes = []string{"11:00", "14:00"}
			},
			"Tomorrow at 11:00 AM & 2:00 PM",
		},
		{
			"daily",
			func(n *domain.Note) {
				n.ReminderType = domain.ReminderRecurring
				n.Pattern = domain.RecurrenceDaily
				n.RecurrenceTime = "08:30"
			},
			"Daily at 8:30 AM",
		},
		{
			"weekly",
			func(n *domain.Note) {
				n.ReminderType = domain.ReminderRecurring
				n.Pattern = domain.RecurrenceWeekly
				n.RecurrenceDay = 1
				n.RecurrenceTime = "20:00"
			},
			"Every Monday at 8:00 PM",
		},
		{
			"monthly ordinal",
			func(n *domain.Note) {
				n.ReminderType = domain.ReminderRecurring
				n.Pattern = domain.RecurrenceMonthly
				n.RecurrenceDay = 3
			},
			"Monthly on the 3rd at 9:00 AM",
		},
		{
			"monthly teen ordinal",
			func(n *domain.Note) {
				n.ReminderType = domain.ReminderRecurring
				n.Pattern = domain.RecurrenceMonthly
				n.RecurrenceDay = 12
			},
			"Monthly on the 12th at 9:00 AM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := env.createReminder(t, tt.mut)
			assert.Equal(t, tt.want, queries.TimeDisplay(note, serviceNow))
		})
	}
}

func TestRolloverPendingTasks(t *testing.T) {
	env := newTestEnv(t)
	queries := newQueryService(env)

	overdue := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-08-20" })
	doneOverdue := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-08-20" })
	require.NoError(t, env.reminders.MarkDone(doneOverdue.ID, serviceNow))
	futureNote := env.createReminder(t, func(n *domain.Note) { n.EventDate = "2026-09-10" })
	daily := env.createReminder(t, func(n *domain.Note) {
		n.ReminderType = domain.ReminderRecurring
		n.Pattern = domain.RecurrenceDaily
	})

	moved, err := queries.RolloverPendingTasks(env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	stored, err := env.storage.GetNote(overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", stored.EventDate)

	// Completed, future, and recurring notes are untouched.
	stored, err = env.storage.GetNote(doneOverdue.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-20", stored.EventDate)
	stored, err = env.storage.GetNote(futureNote.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-10", stored.EventDate)
	stored, err = env.storage.GetNote(daily.ID)
	require.NoError(t, err)
	assert.Equal(t, "", stored.EventDate)

	// A second pass has nothing left to move.
	moved, err = queries.RolloverPendingTasks(env.user.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)
}
