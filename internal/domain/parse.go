package domain

import (
	"encoding/json"
	"regexp"
	"strings"
)

// PlaceIntent is a bare place-search request ("I want to find a good dentist").
type PlaceIntent struct {
	Query    string `json:"query,omitempty"`
	Category string `json:"category,omitempty"`
}

// ParsedNote is the full structured parse of a transcript: the classification
// plus the optional reminder descriptor. It is stored as JSON on the note.
type ParsedNote struct {
	Type             NoteType            `json:"type,omitempty"`
	Summary          string              `json:"summary,omitempty"`
	Tags             []string            `json:"tags,omitempty"`
	LocationCategory string              `json:"locationCategory,omitempty"`
	ShoppingItems    []string            `json:"shoppingItems,omitempty"`
	HomeTrigger      string              `json:"homeTrigger,omitempty"` // "leaving" or "arriving"
	PlaceIntent      *PlaceIntent        `json:"placeIntent,omitempty"`
	Reminder         *ReminderDescriptor `json:"reminder,omitempty"`
}

// EncodeParsedNote serialises a parse for the parsed_data column.
func EncodeParsedNote(p *ParsedNote) (string, error) {
	if p == nil {
		return "", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeParsedNote deserialises a parsed_data column value.
func DecodeParsedNote(s string) (*ParsedNote, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var p ParsedNote
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

var reminderPrefixRe = regexp.MustCompile(`(?i)^\s*(reminder:\s*|remind me to\s+|remind me\s+|don'?t forget to\s+|don'?t forget\s+)`)

// StripReminderPrefix removes a leading "Reminder:"/"remind me to"/"don't
// forget to" from a summary so lists read as plain actions.
func StripReminderPrefix(s string) string {
	return strings.TrimSpace(reminderPrefixRe.ReplaceAllString(s, ""))
}
