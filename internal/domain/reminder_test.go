package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimesFallback(t *testing.T) {
	d := &ReminderDescriptor{}
	assert.Equal(t, []string{DefaultReminderTime}, d.Times())

	d.Time = "18:30"
	assert.Equal(t, []string{"18:30"}, d.Times())

	d.AdditionalTimes = []string{"11:00", "14:00"}
	assert.Equal(t, []string{"11:00", "14:00"}, d.Times())
}

func TestParseLocalDateKeepsCalendarDay(t *testing.T) {
	// A negative-offset zone is where UTC-midnight parsing would land the
	// date on the previous local day.
	loc := time.FixedZone("UTC-7", -7*3600)

	d, err := ParseLocalDate("2026-09-15", loc)
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.September, d.Month())
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, loc, d.Location())

	_, err = ParseLocalDate("15.09.2026", loc)
	assert.Error(t, err)
	_, err = ParseLocalDate("", loc)
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 5, minute)

	hour, minute, err = ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 59, minute)

	for _, bad := range []string{"24:00", "12:60", "noonish", "12", "12:00:00", ""} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	b := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b))
	assert.False(t, SameDay(a, b.AddDate(0, 0, 1)))
	// Same day-of-year in different years is a different day.
	assert.False(t, SameDay(a, a.AddDate(1, 0, 0)))
}

func TestOrdinalSuffix(t *testing.T) {
	tests := map[int]string{
		1: "st", 2: "nd", 3: "rd", 4: "th", 11: "th", 12: "th", 13: "th",
		21: "st", 22: "nd", 23: "rd", 31: "st", 111: "th", 101: "st",
	}
	for n, want := range tests {
		assert.Equal(t, want, OrdinalSuffix(n), "n=%d", n)
	}
}

func TestStripReminderPrefix(t *testing.T) {
	tests := map[string]string{
		"Remind me to call mom":    "call mom",
		"remind me about the gig":  "about the gig",
		"Reminder: pay rent":       "pay rent",
		"don't forget to stretch":  "stretch",
		"Dont forget the keys":     "the keys",
		"call mom":                 "call mom",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripReminderPrefix(in))
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	two := 2
	n := &Note{
		Transcript:      "remind me about the concert",
		IsReminder:      true,
		ReminderType:    ReminderOneTime,
		EventDate:       "2026-09-20",
		EventLocation:   "Red Rocks",
		DaysBefore:      &two,
		RecurrenceTime:  "19:00",
		AdditionalTimes: []string{"19:00", "21:00"},
	}

	d := n.Descriptor()
	require.NotNil(t, d)
	assert.Equal(t, "2026-09-20", d.EventDate)
	assert.Equal(t, &two, d.DaysBefore)
	assert.Equal(t, []string{"19:00", "21:00"}, d.Times())
	assert.Equal(t, "about the concert", d.Summary)

	n.IsReminder = false
	assert.Nil(t, n.Descriptor())
}

func TestReminderTextPrefersParsedSummary(t *testing.T) {
	encoded, err := EncodeParsedNote(&ParsedNote{
		Summary:  "general summary",
		Reminder: &ReminderDescriptor{Summary: "call the dentist"},
	})
	require.NoError(t, err)

	n := &Note{Transcript: "um so remind me to call the dentist maybe", ParsedData: encoded}
	assert.Equal(t, "call the dentist", n.ReminderText())

	n.ParsedData = ""
	assert.Equal(t, "um so remind me to call the dentist maybe", n.ReminderText())
}
