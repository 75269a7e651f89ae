// Package extract is the local, network-free parser that turns a raw
// transcript into a best-effort reminder descriptor and note classification.
// It is both the offline path and the fallback behind the AI parser.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"murmur/internal/domain"
)

type Extractor struct {
	loc *time.Location

	// Now is the clock used to resolve relative phrases. Overridable in tests.
	Now func() time.Time
}

func New(loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{loc: loc, Now: time.Now}
}

func (e *Extractor) now() time.Time {
	return e.Now().In(e.loc)
}

var (
	intentKeywords = []string{"remind", "reminder", "don't forget", "dont forget", "notify", "alert"}

	relativeIntentRe = regexp.MustCompile(`(?i)\b(in|after)\s+(a|an|half an|\d+|one|two|three|four|five|six|seven)\s*(minutes?|mins?|hours?|hrs?|days?)\b`)

	everyWeekdayRe = regexp.MustCompile(`(?i)\bevery\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	everyDayRe     = regexp.MustCompile(`(?i)\b(every\s+day|daily)\b`)
	everyWeekRe    = regexp.MustCompile(`(?i)\b(every\s+week|weekly)\b`)
	everyMonthRe   = regexp.MustCompile(`(?i)\b(every\s+month|monthly)\b`)

	timeWithMinutesRe = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(a\.?m\.?|p\.?m\.?)\b`)
	timeHourOnlyRe    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(a\.?m\.?|p\.?m\.?)\b`)
	timeBare24Re      = regexp.MustCompile(`(?i)\bat\s+(\d{1,2}):(\d{2})\b`)

	daysBeforeRe = regexp.MustCompile(`(?i)\b(\d+|one|two|three|four|five|six|seven)\s+days?\s+(before|prior|in\s+advance)\b`)

	relMinutesRe = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+|one|two|three|four|five|six|seven|fifteen|thirty|forty[- ]five)\s*(?:minutes?|mins?)\b`)
	relHoursRe   = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+|one|two|three|four|five|six|seven)\s*(?:hours?|hrs?)\b`)
	relDaysRe    = regexp.MustCompile(`(?i)\b(?:in|after)\s+(\d+|one|two|three|four|five|six|seven)\s*days?\b`)
	halfHourRe   = regexp.MustCompile(`(?i)\b(?:in|after)\s+half\s+an\s+hour\b|\b30\s+mins?\b`)
	anHourRe     = regexp.MustCompile(`(?i)\b(?:in|after)\s+(?:an?\s+)hour\b`)

	thisWeekendRe = regexp.MustCompile(`(?i)\bthis\s+weekend\b`)
)

var spelledNumbers = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "fifteen": 15, "thirty": 30,
	"forty-five": 45, "forty five": 45,
}

var weekdayIndex = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
}

// vagueTimes maps vague time-of-day words to a concrete clock. Checked in
// order; only used when no explicit time was found.
var vagueTimes = []struct {
	word string
	time string
}{
	{"morning", "09:00"},
	{"afternoon", "14:00"},
	{"evening", "18:00"},
	{"night", "20:00"},
	{"noon", "12:00"},
}

func parseAmount(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if n, ok := spelledNumbers[s]; ok {
		return n
	}
	return 0
}

// Detect returns a best-effort reminder descriptor, or nil when the text has
// neither an explicit reminder keyword nor a relative-time expression. It
// never fails: an ambiguous parse yields a descriptor with defaults, not an
// error.
func (e *Extractor) Detect(text string) *domain.ReminderDescriptor {
	if !e.hasReminderIntent(text) {
		return nil
	}

	d := &domain.ReminderDescriptor{
		IsReminder: true,
		Summary:    domain.StripReminderPrefix(text),
	}

	e.detectRecurrence(text, d)
	e.applyTimes(text, d)
	e.applyDaysBefore(text, d)
	e.applyRelative(text, d)
	e.applyQuickDates(text, d)

	if d.Type == "" {
		d.Type = domain.ReminderOneTime
	}
	if d.Time == "" {
		d.Time = domain.DefaultReminderTime
	}
	return d
}

func (e *Extractor) hasReminderIntent(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range intentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return relativeIntentRe.MatchString(text)
}

func (e *Extractor) detectRecurrence(text string, d *domain.ReminderDescriptor) {
	if m := everyWeekdayRe.FindStringSubmatch(text); m != nil {
		d.Type = domain.ReminderRecurring
		d.Pattern = domain.RecurrenceWeekly
		d.Day = weekdayIndex[strings.ToLower(m[1])]
		return
	}
	if everyDayRe.MatchString(text) {
		d.Type = domain.ReminderRecurring
		d.Pattern = domain.RecurrenceDaily
		return
	}
	if everyWeekRe.MatchString(text) {
		d.Type = domain.ReminderRecurring
		d.Pattern = domain.RecurrenceWeekly
		return
	}
	if everyMonthRe.MatchString(text) {
		d.Type = domain.ReminderRecurring
		d.Pattern = domain.RecurrenceMonthly
	}
}

type timeMatch struct {
	pos   int
	end   int
	value string
}

// ExtractAllTimes finds every time-of-day mention in the text, in textual
// order, deduplicated, as "HH:MM" strings. Three regex families are applied
// in priority order; later families never re-claim text already matched.
func (e *Extractor) ExtractAllTimes(text string) []string {
	var matches []timeMatch

	overlaps := func(start, end int) bool {
		for _, m := range matches {
			if start < m.end && end > m.pos {
				return true
			}
		}
		return false
	}

	for _, idx := range timeWithMinutesRe.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[idx[2]:idx[3]])
		minute, _ := strconv.Atoi(text[idx[4]:idx[5]])
		meridiem := text[idx[6]:idx[7]]
		if v, ok := clock12(hour, minute, meridiem); ok {
			matches = append(matches, timeMatch{pos: idx[0], end: idx[1], value: v})
		}
	}
	for _, idx := range timeHourOnlyRe.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(idx[0], idx[1]) {
			continue
		}
		hour, _ := strconv.Atoi(text[idx[2]:idx[3]])
		meridiem := text[idx[4]:idx[5]]
		if v, ok := clock12(hour, 0, meridiem); ok {
			matches = append(matches, timeMatch{pos: idx[0], end: idx[1], value: v})
		}
	}
	for _, idx := range timeBare24Re.FindAllStringSubmatchIndex(text, -1) {
		if overlaps(idx[0], idx[1]) {
			continue
		}
		hour, _ := strconv.Atoi(text[idx[2]:idx[3]])
		minute, _ := strconv.Atoi(text[idx[4]:idx[5]])
		if hour <= 23 && minute <= 59 {
			matches = append(matches, timeMatch{pos: idx[0], end: idx[1], value: fmt.Sprintf("%02d:%02d", hour, minute)})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if !seen[m.value] {
			seen[m.value] = true
			out = append(out, m.value)
		}
	}
	return out
}

func clock12(hour, minute int, meridiem string) (string, bool) {
	if hour < 1 || hour > 12 || minute > 59 {
		return "", false
	}
	pm := strings.HasPrefix(strings.ToLower(meridiem), "p")
	if hour == 12 {
		hour = 0
	}
	if pm {
		hour += 12
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func (e *Extractor) applyTimes(text string, d *domain.ReminderDescriptor) {
	times := e.ExtractAllTimes(text)
	if len(times) == 0 {
		lower := strings.ToLower(text)
		for _, v := range vagueTimes {
			if strings.Contains(lower, v.word) {
				d.Time = v.time
				return
			}
		}
		return
	}
	d.Time = times[0]
	if len(times) > 1 {
		d.AdditionalTimes = times
	}
}

func (e *Extractor) applyDaysBefore(text string, d *domain.ReminderDescriptor) {
	m := daysBeforeRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	n := parseAmount(m[1])
	d.DaysBefore = &n
	if d.Type == "" {
		d.Type = domain.ReminderOneTime
	}
}

// applyRelative converts "in 45 minutes" style phrases to a concrete future
// instant. It wins over both the days-before default and any recurrence guess,
// since it assigns the event date directly.
func (e *Extractor) applyRelative(text string, d *domain.ReminderDescriptor) {
	now := e.now()
	var target time.Time

	switch {
	case halfHourRe.MatchString(text):
		target = now.Add(30 * time.Minute)
	case anHourRe.MatchString(text):
		target = now.Add(time.Hour)
	case relMinutesRe.MatchString(text):
		m := relMinutesRe.FindStringSubmatch(text)
		target = now.Add(time.Duration(parseAmount(m[1])) * time.Minute)
	case relHoursRe.MatchString(text):
		m := relHoursRe.FindStringSubmatch(text)
		target = now.Add(time.Duration(parseAmount(m[1])) * time.Hour)
	case relDaysRe.MatchString(text):
		m := relDaysRe.FindStringSubmatch(text)
		target = now.AddDate(0, 0, parseAmount(m[1]))
	default:
		return
	}

	zero := 0
	d.Type = domain.ReminderOneTime
	d.EventDate = domain.FormatLocalDate(target)
	d.Time = target.Format("15:04")
	d.DaysBefore = &zero
}

// applyQuickDates resolves "today", "tonight", "tomorrow" and "this weekend"
// when nothing more specific already fixed a date.
func (e *Extractor) applyQuickDates(text string, d *domain.ReminderDescriptor) {
	if d.EventDate != "" || d.Type == domain.ReminderRecurring {
		return
	}
	lower := strings.ToLower(text)
	now := e.now()
	zero := 0

	switch {
	case strings.Contains(lower, "tomorrow"):
		d.EventDate = domain.FormatLocalDate(now.AddDate(0, 0, 1))
	case thisWeekendRe.MatchString(text):
		days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		d.EventDate = domain.FormatLocalDate(now.AddDate(0, 0, days))
	case strings.Contains(lower, "tonight"):
		d.EventDate = domain.FormatLocalDate(now)
		if d.Time == "" {
			d.Time = "20:00"
		}
	case strings.Contains(lower, "today"):
		d.EventDate = domain.FormatLocalDate(now)
	default:
		return
	}
	d.Type = domain.ReminderOneTime
	d.DaysBefore = &zero
}
