package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"murmur/config"
	"murmur/internal/service"
	"murmur/internal/storage"
)

type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       *config.Config
	storage   *storage.Storage
	notes     *service.NoteService
	reminders *service.ReminderService
	queries   *service.QueryService
}

func New(cfg *config.Config, st *storage.Storage, notes *service.NoteService, reminders *service.ReminderService, queries *service.QueryService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Authorized as @%s", api.Self.UserName)

	bot := &Bot{
		api:       api,
		cfg:       cfg,
		storage:   st,
		notes:     notes,
		reminders: reminders,
		queries:   queries,
	}
	bot.setCommands()
	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "today", Description: "📅 Today's reminders"},
		{Command: "list", Description: "📋 All active reminders"},
		{Command: "done", Description: "✅ Mark a reminder done"},
		{Command: "undo", Description: "↩️ Undo a completion"},
		{Command: "pause", Description: "⏸ Pause a reminder"},
		{Command: "resume", Description: "▶️ Resume a reminder"},
		{Command: "delete", Description: "🗑 Delete a reminder"},
		{Command: "help", Description: "❓ How to use the bot"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		log.Printf("Failed to set commands: %v", err)
	}
}

func (b *Bot) Start(ctx context.Context) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// SendReminder delivers one notification trigger with a done button.
func (b *Bot) SendReminder(chatID int64, noteID int64, title, body string) error {
	text := fmt.Sprintf("%s\n\n%s", title, body)
	return b.SendMessageWithKeyboard(chatID, text, doneKeyboard(noteID))
}
