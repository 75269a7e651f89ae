package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"murmur/internal/storage"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(userID) {
		b.SendMessage(chatID, "⛔ Access denied")
		return
	}

	user, err := b.storage.GetUserByTelegramID(userID)
	if err != nil {
		log.Printf("Error getting user: %v", err)
		return
	}
	if user == nil {
		user = b.autoRegisterUser(msg.From)
		if user == nil {
			return
		}
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	b.handleTranscript(ctx, user, chatID, text)
}

// handleTranscript runs plain text through the intake pipeline and confirms
// what was understood.
func (b *Bot) handleTranscript(ctx context.Context, user *storage.User, chatID int64, text string) {
	note, err := b.notes.CreateFromTranscript(ctx, user.ID, text)
	if err != nil {
		log.Printf("Error creating note: %v", err)
		b.SendMessage(chatID, "❌ Could not save that, try again")
		return
	}

	if !note.IsReminder {
		b.SendMessage(chatID, fmt.Sprintf("📝 Noted <b>#%d</b>: %s", note.ID, note.ReminderText()))
		return
	}

	display := b.queries.TimeDisplay(note, time.Now().In(b.cfg.Timezone))
	text = fmt.Sprintf("⏰ Reminder <b>#%d</b> set\n\n%s", note.ID, note.ReminderText())
	if display != "" {
		text += "\n📅 " + display
	}
	b.SendMessageWithKeyboard(chatID, text, doneKeyboard(note.ID))
}

func (b *Bot) autoRegisterUser(from *tgbotapi.User) *storage.User {
	name := from.FirstName
	if from.LastName != "" {
		name += " " + from.LastName
	}

	user := &storage.User{
		TelegramID: from.ID,
		Name:       name,
	}
	if err := b.storage.CreateUser(user); err != nil {
		log.Printf("Error auto-registering user: %v", err)
		return nil
	}
	log.Printf("Auto-registered user: %s (ID: %d)", name, from.ID)
	return user
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	if !b.cfg.IsAllowedUser(userID) {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "⛔ Access denied"))
		return
	}

	user, _ := b.storage.GetUserByTelegramID(userID)
	if user == nil {
		user = b.autoRegisterUser(callback.From)
		if user == nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "Registration failed"))
			return
		}
	}

	parts := strings.Split(callback.Data, ":")
	if len(parts) < 2 {
		return
	}
	noteID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	now := time.Now().In(b.cfg.Timezone)

	switch parts[0] {
	case "done":
		if err := b.reminders.MarkDone(noteID, now); err != nil {
			log.Printf("Error marking note %d done: %v", noteID, err)
			b.api.Request(tgbotapi.NewCallback(callback.ID, "❌ "+err.Error()))
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, "✅ Done!"))
		b.editWithKeyboard(chatID, msgID, callback.Message.Text+"\n\n✅ Done", undoKeyboard(noteID))

	case "undo":
		if err := b.reminders.UndoDone(noteID, now); err != nil {
			log.Printf("Error undoing note %d: %v", noteID, err)
			b.api.Request(tgbotapi.NewCallback(callback.ID, "❌ "+err.Error()))
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, "↩️ Back on the list"))
		text := strings.TrimSuffix(callback.Message.Text, "\n\n✅ Done")
		b.editWithKeyboard(chatID, msgID, text, doneKeyboard(noteID))

	case "del":
		if err := b.notes.DeleteNote(ctx, noteID); err != nil {
			log.Printf("Error deleting note %d: %v", noteID, err)
			b.api.Request(tgbotapi.NewCallback(callback.ID, "❌ "+err.Error()))
			return
		}
		b.api.Request(tgbotapi.NewCallback(callback.ID, "🗑 Deleted"))
		edit := tgbotapi.NewEditMessageText(chatID, msgID, "🗑 Reminder deleted")
		b.api.Send(edit)
	}
}

func (b *Bot) editWithKeyboard(chatID int64, msgID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = "HTML"
	edit.ReplyMarkup = &kb
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Error editing message: %v", err)
	}
}
