package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"murmur/internal/clients/openai"
	"murmur/internal/domain"
	"murmur/internal/extract"
)

// Completer is the language-model capability the parser depends on. The
// openai client satisfies it; tests stub it.
type Completer interface {
	IsConfigured() bool
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// IntentService parses a transcript into a structured note. The local
// rule-based extractor always runs; when a completion model is configured its
// parse is merged on top, winning field by field where it produced a value.
// Parsing never fails: any model error degrades to the local parse.
type IntentService struct {
	completer Completer
	extractor *extract.Extractor
	timezone  *time.Location

	Now func() time.Time
}

func NewIntentService(completer Completer, extractor *extract.Extractor, tz *time.Location) *IntentService {
	if tz == nil {
		tz = time.Local
	}
	return &IntentService{
		completer: completer,
		extractor: extractor,
		timezone:  tz,
		Now:       time.Now,
	}
}

// Parse returns the best available structured parse of the transcript.
func (s *IntentService) Parse(ctx context.Context, transcript string) *domain.ParsedNote {
	local := s.extractor.Classify(transcript)

	if s.completer == nil || !s.completer.IsConfigured() {
		return s.normalize(local)
	}

	raw, err := s.completer.Complete(ctx, s.buildPrompt(transcript), 800)
	if err != nil {
		log.Printf("Intent model unavailable, using local parse: %v", err)
		return s.normalize(local)
	}

	jsonStr, err := openai.ExtractJSON(raw)
	if err != nil {
		log.Printf("Intent model returned no JSON, using local parse: %v", err)
		return s.normalize(local)
	}

	var ai domain.ParsedNote
	if err := json.Unmarshal([]byte(jsonStr), &ai); err != nil {
		log.Printf("Intent model JSON rejected, using local parse: %v", err)
		return s.normalize(local)
	}

	return s.normalize(merge(&ai, local))
}

// merge overlays the model's parse on the local one: the model wins wherever
// it produced a value, the local extractor fills the gaps.
func merge(ai, local *domain.ParsedNote) *domain.ParsedNote {
	out := *ai
	if out.Type == "" {
		out.Type = local.Type
	}
	if out.Summary == "" {
		out.Summary = local.Summary
	}
	if len(out.Tags) == 0 {
		out.Tags = local.Tags
	}
	if out.LocationCategory == "" {
		out.LocationCategory = local.LocationCategory
	}
	if len(out.ShoppingItems) == 0 {
		out.ShoppingItems = local.ShoppingItems
	}
	if out.HomeTrigger == "" {
		out.HomeTrigger = local.HomeTrigger
	}
	if out.PlaceIntent == nil {
		out.PlaceIntent = local.PlaceIntent
	}

	switch {
	case out.Reminder == nil:
		out.Reminder = local.Reminder
	case local.Reminder != nil:
		out.Reminder = mergeReminder(out.Reminder, local.Reminder)
	}
	return &out
}

func mergeReminder(ai, local *domain.ReminderDescriptor) *domain.ReminderDescriptor {
	out := *ai
	out.IsReminder = true
	if out.Type == "" {
		out.Type = local.Type
	}
	if out.EventDate == "" {
		out.EventDate = local.EventDate
	}
	if out.EventLocation == "" {
		out.EventLocation = local.EventLocation
	}
	if out.DaysBefore == nil {
		out.DaysBefore = local.DaysBefore
	}
	if out.Pattern == "" {
		out.Pattern = local.Pattern
		if out.Day == 0 {
			out.Day = local.Day
		}
	}
	if out.Time == "" {
		out.Time = local.Time
	}
	if len(out.AdditionalTimes) == 0 {
		out.AdditionalTimes = local.AdditionalTimes
	}
	if out.Summary == "" {
		out.Summary = local.Summary
	}
	return &out
}

// normalize enforces the descriptor invariants regardless of which parser
// produced the fields: a valid type, a primary time, additionalTimes led by
// the primary time, and a parseable event date.
func (s *IntentService) normalize(p *domain.ParsedNote) *domain.ParsedNote {
	d := p.Reminder
	if d == nil {
		return p
	}
	d.IsReminder = true

	if d.Pattern != "" {
		d.Type = domain.ReminderRecurring
	} else if d.Type == "" {
		d.Type = domain.ReminderOneTime
	}

	if d.EventDate != "" {
		if _, err := domain.ParseLocalDate(d.EventDate, s.timezone); err != nil {
			log.Printf("Dropping unparseable event date %q", d.EventDate)
			d.EventDate = ""
		}
	}

	if d.Time == "" && len(d.AdditionalTimes) > 0 {
		d.Time = d.AdditionalTimes[0]
	}
	if d.Time == "" {
		d.Time = domain.DefaultReminderTime
	}
	if len(d.AdditionalTimes) > 0 && d.AdditionalTimes[0] != d.Time {
		d.AdditionalTimes = append([]string{d.Time}, d.AdditionalTimes...)
	}

	if p.Type != domain.NoteReminder {
		p.Type = domain.NoteReminder
	}
	return p
}

func (s *IntentService) buildPrompt(transcript string) string {
	now := s.Now().In(s.timezone)
	return fmt.Sprintf(`You classify a voice note and extract any reminder from it.
Current local date and time: %s (%s).

Respond with a single JSON object, no prose, using exactly this shape:
{
  "type": "task" | "preference" | "intent" | "reminder",
  "summary": "short imperative restatement of the note",
  "tags": ["lowercase", "topic", "tags"],
  "locationCategory": "pharmacy" | "health" | "fitness" | "errand" | "",
  "shoppingItems": ["item", ...],
  "homeTrigger": "leaving" | "arriving" | "",
  "placeIntent": {"query": "...", "category": "..."} or null,
  "reminder": {
    "isReminder": true,
    "reminderType": "one_time" | "recurring",
    "eventDate": "YYYY-MM-DD or empty",
    "eventLocation": "",
    "reminderDaysBefore": 1,
    "recurrencePattern": "daily" | "weekly" | "monthly" | "yearly" | "",
    "recurrenceDay": 0,
    "recurrenceTime": "HH:MM 24-hour",
    "additionalTimes": ["HH:MM", ...],
    "reminderSummary": "what to remind about"
  } or null
}

Rules:
- "reminder" is null unless the note asks to be reminded or names a dated event.
- Resolve relative dates ("tomorrow", "next Friday") against the current date above.
- recurrenceDay is Sunday-indexed 0-6 for weekly, day of month for monthly, day of year for yearly.
- Omit reminderDaysBefore entirely unless the user stated a lead time.
- additionalTimes lists every time of day mentioned, earliest first.

Voice note: %q`, now.Format("2006-01-02 15:04"), now.Weekday(), transcript)
}
