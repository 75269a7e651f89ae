package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"murmur/internal/service"
	"murmur/internal/storage"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *storage.User) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.SendMessage(chatID, "👋 Hi! Send me a voice-note transcript or any text like\n\n"+
			"<i>remind me to call the dentist tomorrow at 3pm</i>\n\n"+
			"and I'll keep track of it. /help for the full list.")

	case "help":
		b.SendMessage(chatID, helpText)

	case "today":
		items, err := b.queries.TodaysReminders(user.ID)
		if err != nil {
			log.Printf("Error listing today: %v", err)
			b.SendMessage(chatID, "❌ Could not load today's list")
			return
		}
		if len(items) == 0 {
			b.SendMessage(chatID, "📅 Nothing on the list today")
			return
		}
		b.SendMessage(chatID, "📅 <b>Today</b>\n\n"+formatItems(items))

	case "list":
		notes, err := b.storage.ListActiveReminders(user.ID)
		if err != nil {
			log.Printf("Error listing reminders: %v", err)
			b.SendMessage(chatID, "❌ Could not load reminders")
			return
		}
		if len(notes) == 0 {
			b.SendMessage(chatID, "📋 No active reminders")
			return
		}
		now := time.Now().In(b.cfg.Timezone)
		var text strings.Builder
		text.WriteString("📋 <b>Active reminders</b>\n\n")
		for _, n := range notes {
			line := fmt.Sprintf("<b>#%d</b> %s", n.ID, n.ReminderText())
			if display := b.queries.TimeDisplay(n, now); display != "" {
				line += fmt.Sprintf(" (%s)", display)
			}
			text.WriteString(line + "\n")
		}
		b.SendMessage(chatID, text.String())

	case "done":
		b.runNoteCommand(chatID, args, "✅ Marked done", func(noteID int64) error {
			return b.reminders.MarkDone(noteID, time.Now().In(b.cfg.Timezone))
		})

	case "undo":
		b.runNoteCommand(chatID, args, "↩️ Back on the list", func(noteID int64) error {
			return b.reminders.UndoDone(noteID, time.Now().In(b.cfg.Timezone))
		})

	case "pause":
		b.runNoteCommand(chatID, args, "⏸ Paused", func(noteID int64) error {
			return b.reminders.ToggleActive(noteID, false)
		})

	case "resume":
		b.runNoteCommand(chatID, args, "▶️ Resumed", func(noteID int64) error {
			return b.reminders.ToggleActive(noteID, true)
		})

	case "delete":
		b.runNoteCommand(chatID, args, "🗑 Deleted", func(noteID int64) error {
			return b.notes.DeleteNote(ctx, noteID)
		})

	default:
		b.SendMessage(chatID, "Unknown command, /help for the list")
	}
}

// runNoteCommand parses a "#id" argument and applies the action to it.
func (b *Bot) runNoteCommand(chatID int64, args, okText string, action func(noteID int64) error) {
	noteID, err := strconv.ParseInt(strings.TrimPrefix(args, "#"), 10, 64)
	if err != nil {
		b.SendMessage(chatID, "Give me a reminder number, e.g. <code>/done 12</code>")
		return
	}
	if err := action(noteID); err != nil {
		log.Printf("Error on note %d: %v", noteID, err)
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("%s <b>#%d</b>", okText, noteID))
}

func formatItems(items []service.ReminderItem) string {
	var text strings.Builder
	for _, item := range items {
		mark := "◻️"
		if item.IsCompleted {
			mark = "✅"
		}
		line := fmt.Sprintf("%s <b>#%d</b> %s", mark, item.Note.ID, item.Text)
		if item.TimeDisplay != "" {
			line += fmt.Sprintf(" (%s)", item.TimeDisplay)
		}
		text.WriteString(line + "\n")
	}
	return text.String()
}

const helpText = `❓ <b>How to use</b>

Send any text and I'll file it. If it sounds like a reminder, I'll schedule it:

• <i>remind me to pay rent on 2026-09-30</i>
• <i>take out the trash every Tuesday at 8pm</i>
• <i>call mom in 2 hours</i>

<b>Commands</b>
/today - what's on for today
/list - every active reminder
/done N - mark #N done
/undo N - put #N back
/pause N, /resume N - stop or restart #N
/delete N - remove #N for good`
