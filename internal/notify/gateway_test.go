package notify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/domain"
	"murmur/internal/storage"
)

func newTestGateway(t *testing.T) (*StoreGateway, *storage.Storage) {
	t.Helper()
	st, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewStoreGateway(st, time.UTC), st
}

func testRequest() Request {
	return Request{
		UserID: 1,
		ChatID: 42,
		NoteID: 7,
		Title:  "⏰ Reminder",
		Body:   "water the plants",
		Payload: map[string]string{
			"targetTab": "reminders",
			"noteId":    "7",
		},
	}
}

func TestScheduleAtStoresOneShot(t *testing.T) {
	gw, st := newTestGateway(t)
	at := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)

	id, err := gw.ScheduleAt(testRequest(), at)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rows, err := st.ListScheduledNotifications()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	n := rows[0]
	assert.Equal(t, id, n.ID)
	assert.Equal(t, domain.NotificationOnce, n.Kind)
	require.NotNil(t, n.FireAt)
	assert.True(t, n.FireAt.Equal(at))
	assert.True(t, n.NextRun.Equal(at))
	assert.Equal(t, int64(42), n.ChatID)
	assert.Equal(t, "7", n.Payload["noteId"])
}

func TestScheduleDailyComputesNextRun(t *testing.T) {
	gw, st := newTestGateway(t)

	id, err := gw.ScheduleDaily(testRequest(), 8, 30)
	require.NoError(t, err)

	rows, err := st.ListScheduledNotifications()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	n := rows[0]
	assert.Equal(t, id, n.ID)
	assert.Equal(t, domain.NotificationDaily, n.Kind)
	assert.Equal(t, "30 8 * * *", n.Schedule)
	assert.True(t, n.NextRun.After(time.Now().Add(-time.Minute)))
	assert.Equal(t, 8, n.NextRun.UTC().Hour())
	assert.Equal(t, 30, n.NextRun.UTC().Minute())
}

func TestScheduleWeeklyUsesSundayIndexedWeekday(t *testing.T) {
	gw, st := newTestGateway(t)

	_, err := gw.ScheduleWeekly(testRequest(), time.Wednesday, 18, 0)
	require.NoError(t, err)

	rows, err := st.ListScheduledNotifications()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	n := rows[0]
	assert.Equal(t, domain.NotificationWeekly, n.Kind)
	assert.Equal(t, "0 18 * * 3", n.Schedule)
	assert.Equal(t, time.Wednesday, n.NextRun.UTC().Weekday())
}

func TestCancel(t *testing.T) {
	gw, st := newTestGateway(t)

	id1, err := gw.ScheduleDaily(testRequest(), 8, 0)
	require.NoError(t, err)
	_, err = gw.ScheduleDaily(testRequest(), 9, 0)
	require.NoError(t, err)

	require.NoError(t, gw.Cancel(id1))
	rows, err := st.ListScheduledNotifications()
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// Cancelling an unknown id is not an error.
	require.NoError(t, gw.Cancel("no-such-id"))

	require.NoError(t, gw.CancelAll())
	rows, err = st.ListScheduledNotifications()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAdvanceRemovesOneShotAndKeepsRecurring(t *testing.T) {
	gw, st := newTestGateway(t)

	_, err := gw.ScheduleAt(testRequest(), time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	_, err = gw.ScheduleDaily(testRequest(), 8, 0)
	require.NoError(t, err)

	rows, err := st.ListScheduledNotifications()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for _, n := range rows {
		require.NoError(t, gw.Advance(n))
	}

	rows, err = st.ListScheduledNotifications()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.NotificationDaily, rows[0].Kind)
	assert.True(t, rows[0].NextRun.After(time.Now()))
}

func TestDueListingBoundary(t *testing.T) {
	gw, st := newTestGateway(t)

	now := time.Now().UTC()
	pastID, err := gw.ScheduleAt(testRequest(), now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = gw.ScheduleAt(testRequest(), now.Add(time.Hour))
	require.NoError(t, err)

	due, err := st.ListDueNotifications(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, pastID, due[0].ID)
}
