package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/domain"
)

func newTestExtractor(t *testing.T, now time.Time) *Extractor {
	t.Helper()
	e := New(now.Location())
	e.Now = func() time.Time { return now }
	return e
}

// Tuesday, 10:00 local.
var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func TestDetectRequiresIntent(t *testing.T) {
	e := newTestExtractor(t, testNow)

	assert.Nil(t, e.Detect("buy milk on the way home"))
	assert.Nil(t, e.Detect("the dentist was great"))

	require.NotNil(t, e.Detect("remind me to buy milk"))
	require.NotNil(t, e.Detect("don't forget the dentist appointment"))
	// A relative time expression counts as intent even without a keyword.
	require.NotNil(t, e.Detect("call mom in 30 minutes"))
}

func TestExtractAllTimes(t *testing.T) {
	e := newTestExtractor(t, testNow)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"hour with meridiem", "call at 3pm", []string{"15:00"}},
		{"minutes with meridiem", "call at 3:45 PM", []string{"15:45"}},
		{"dotted meridiem", "laundry at 11 a.m. and 2 p.m.", []string{"11:00", "14:00"}},
		{"bare 24h", "standup at 18:30", []string{"18:30"}},
		{"midnight", "at 12 am", []string{"00:00"}},
		{"noon", "at 12 pm", []string{"12:00"}},
		{"textual order kept", "at 2 pm and also 9am", []string{"14:00", "09:00"}},
		{"duplicates collapsed", "at 9am, again at 9:00 am", []string{"09:00"}},
		{"no false meridiem", "2 amazing things happened", nil},
		{"no times", "buy milk", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.ExtractAllTimes(tt.text))
		})
	}
}

func TestDetectRecurrence(t *testing.T) {
	e := newTestExtractor(t, testNow)

	d := e.Detect("remind me to stretch every day at 8am")
	require.NotNil(t, d)
	assert.Equal(t, domain.ReminderRecurring, d.Type)
	assert.Equal(t, domain.RecurrenceDaily, d.Pattern)
	assert.Equal(t, "08:00", d.Time)

	d = e.Detect("remind me every Tuesday at 8pm to take out the trash")
	require.NotNil(t, d)
	assert.Equal(t, domain.RecurrenceWeekly, d.Pattern)
	assert.Equal(t, 2, d.Day)
	assert.Equal(t, "20:00", d.Time)

	d = e.Detect("remind me to pay rent every month")
	require.NotNil(t, d)
	assert.Equal(t, domain.RecurrenceMonthly, d.Pattern)
	assert.Equal(t, domain.DefaultReminderTime, d.Time)
}

func TestDetectRelative(t *testing.T) {
	e := newTestExtractor(t, testNow)

	d := e.Detect("remind me to check the oven in 45 minutes")
	require.NotNil(t, d)
	assert.Equal(t, domain.ReminderOneTime, d.Type)
	assert.Equal(t, "2026-03-10", d.EventDate)
	assert.Equal(t, "10:45", d.Time)
	require.NotNil(t, d.DaysBefore)
	assert.Equal(t, 0, *d.DaysBefore)

	d = e.Detect("call the bank in two hours")
	require.NotNil(t, d)
	assert.Equal(t, "12:00", d.Time)

	d = e.Detect("remind me in half an hour to leave")
	require.NotNil(t, d)
	assert.Equal(t, "10:30", d.Time)

	// Crossing midnight moves the event date.
	late := newTestExtractor(t, time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))
	d = late.Detect("remind me in an hour")
	require.NotNil(t, d)
	assert.Equal(t, "2026-03-11", d.EventDate)
	assert.Equal(t, "00:30", d.Time)
}

func TestDetectQuickDates(t *testing.T) {
	e := newTestExtractor(t, testNow)

	d := e.Detect("Remind me to do laundry tomorrow at 11 a.m. and 2 p.m.")
	require.NotNil(t, d)
	assert.Equal(t, domain.ReminderOneTime, d.Type)
	assert.Equal(t, "2026-03-11", d.EventDate)
	assert.Equal(t, "11:00", d.Time)
	assert.Equal(t, []string{"11:00", "14:00"}, d.AdditionalTimes)
	require.NotNil(t, d.DaysBefore)
	assert.Equal(t, 0, *d.DaysBefore)

	d = e.Detect("remind me tonight to water the plants")
	require.NotNil(t, d)
	assert.Equal(t, "2026-03-10", d.EventDate)
	assert.Equal(t, "20:00", d.Time)

	d = e.Detect("remind me to mow the lawn this weekend")
	require.NotNil(t, d)
	assert.Equal(t, "2026-03-14", d.EventDate) // next Saturday
}

func TestDetectDaysBefore(t *testing.T) {
	e := newTestExtractor(t, testNow)

	d := e.Detect("remind me 3 days before the concert")
	require.NotNil(t, d)
	require.NotNil(t, d.DaysBefore)
	assert.Equal(t, 3, *d.DaysBefore)

	d = e.Detect("remind me two days in advance about the flight")
	require.NotNil(t, d)
	require.NotNil(t, d.DaysBefore)
	assert.Equal(t, 2, *d.DaysBefore)

	// Unstated lead time stays nil so the scheduler can apply its default.
	d = e.Detect("remind me about the concert")
	require.NotNil(t, d)
	assert.Nil(t, d.DaysBefore)
}

func TestDetectVagueTimes(t *testing.T) {
	e := newTestExtractor(t, testNow)

	d := e.Detect("remind me tomorrow morning to stretch")
	require.NotNil(t, d)
	assert.Equal(t, "09:00", d.Time)

	d = e.Detect("remind me tomorrow evening")
	require.NotNil(t, d)
	assert.Equal(t, "18:00", d.Time)

	// Explicit times beat vague words.
	d = e.Detect("remind me tomorrow morning at 7am")
	require.NotNil(t, d)
	assert.Equal(t, "07:00", d.Time)
}

func TestDetectDefaults(t *testing.T) {
	e := newTestExtractor(t, testNow)

	d := e.Detect("remind me to renew the passport")
	require.NotNil(t, d)
	assert.Equal(t, domain.ReminderOneTime, d.Type)
	assert.Equal(t, "", d.EventDate)
	assert.Equal(t, domain.DefaultReminderTime, d.Time)
	assert.Equal(t, "renew the passport", d.Summary)
}

func TestClassify(t *testing.T) {
	e := newTestExtractor(t, testNow)

	p := e.Classify("buy milk and eggs from the store")
	assert.Equal(t, domain.NoteTask, p.Type)
	assert.Equal(t, []string{"milk", "eggs"}, p.ShoppingItems)
	assert.Nil(t, p.Reminder)

	p = e.Classify("I want to find a good dentist near downtown")
	assert.Equal(t, domain.NoteIntent, p.Type)
	require.NotNil(t, p.PlaceIntent)
	assert.Equal(t, "dentist", p.PlaceIntent.Query)
	assert.Equal(t, "health", p.PlaceIntent.Category)

	p = e.Classify("remind me to grab the umbrella when I leave home")
	assert.Equal(t, domain.NoteReminder, p.Type)
	assert.Equal(t, "leaving", p.HomeTrigger)
	require.NotNil(t, p.Reminder)

	p = e.Classify("pick up the prescription from the pharmacy")
	assert.Equal(t, "pharmacy", p.LocationCategory)
}
