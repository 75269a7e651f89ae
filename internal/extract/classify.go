package extract

import (
	"regexp"
	"strings"

	"murmur/internal/domain"
)

// categoryKeywords maps location categories to the keywords that imply them.
// Checked in order; first category with a hit wins.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"pharmacy", []string{"pharmacy", "drugstore", "prescription", "medicine", "medication"}},
	{"health", []string{"doctor", "dentist", "clinic", "hospital", "checkup", "appointment"}},
	{"fitness", []string{"gym", "workout", "exercise", "yoga", "jog"}},
	{"errand", []string{"bank", "post office", "dry clean", "grocery", "groceries", "laundry"}},
}

var (
	shoppingRe = regexp.MustCompile(`(?i)\b(?:buy|pick up|purchase|get)\s+(?:some\s+|a\s+|an\s+)?([a-z][a-z0-9' -]*?)(?:\s+(?:from|at|on|when|before|after|tomorrow|today)\b|[.,!?]|$)`)

	leavingHomeRe  = regexp.MustCompile(`(?i)\b(?:when\s+(?:i|we)\s+leave|leaving|before\s+(?:i|we)\s+leave)\s+(?:the\s+)?home\b|\bleave\s+the\s+house\b`)
	arrivingHomeRe = regexp.MustCompile(`(?i)\b(?:when\s+(?:i|we)\s+(?:get|arrive|come)(?:\s+back)?|arriving|getting)\s+(?:at\s+)?home\b`)

	placeIntentRe = regexp.MustCompile(`(?i)\b(?:find|looking\s+for|search\s+for|want\s+to\s+find|need\s+to\s+find)\s+(?:a|an|some|the)?\s*(?:good|great|nearby|new)?\s*([a-z][a-z ]*?)(?:\s+(?:near|around|in)\b|[.,!?]|$)`)
)

// Category returns the local guess at a location category, or "".
func (e *Extractor) Category(text string) string {
	lower := strings.ToLower(text)
	for _, c := range categoryKeywords {
		for _, w := range c.words {
			if strings.Contains(lower, w) {
				return c.category
			}
		}
	}
	return ""
}

// ShoppingItems pulls item names out of "buy X and Y" style phrases.
func (e *Extractor) ShoppingItems(text string) []string {
	var items []string
	seen := make(map[string]bool)
	for _, m := range shoppingRe.FindAllStringSubmatch(text, -1) {
		for _, part := range strings.Split(m[1], " and ") {
			for _, item := range strings.Split(part, ",") {
				item = strings.ToLower(strings.TrimSpace(item))
				if item != "" && !seen[item] {
					seen[item] = true
					items = append(items, item)
				}
			}
		}
	}
	return items
}

// HomeTrigger detects "leaving home" / "arriving home" phrasing.
func (e *Extractor) HomeTrigger(text string) string {
	if leavingHomeRe.MatchString(text) {
		return "leaving"
	}
	if arrivingHomeRe.MatchString(text) {
		return "arriving"
	}
	return ""
}

// PlaceIntent detects a bare place-search request ("I want to find a good
// dentist") and pairs it with a category guess when one applies.
func (e *Extractor) PlaceIntent(text string) *domain.PlaceIntent {
	m := placeIntentRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	query := strings.TrimSpace(m[1])
	if query == "" {
		return nil
	}
	return &domain.PlaceIntent{
		Query:    query,
		Category: e.Category(query),
	}
}

// Classify is the full local parse: classification plus the reminder
// descriptor, in the same shape the AI parser produces. Used directly when
// the AI capability is unavailable and as gap-filler when it responds.
func (e *Extractor) Classify(text string) *domain.ParsedNote {
	p := &domain.ParsedNote{
		Type:             domain.NoteTask,
		Summary:          domain.StripReminderPrefix(text),
		LocationCategory: e.Category(text),
		ShoppingItems:    e.ShoppingItems(text),
		HomeTrigger:      e.HomeTrigger(text),
		PlaceIntent:      e.PlaceIntent(text),
	}
	if d := e.Detect(text); d != nil {
		p.Type = domain.NoteReminder
		p.Reminder = d
	} else if p.PlaceIntent != nil {
		p.Type = domain.NoteIntent
	}
	return p
}
