package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"murmur/config"
	"murmur/internal/bot"
	"murmur/internal/clients/caldav"
	"murmur/internal/clients/openai"
	"murmur/internal/extract"
	"murmur/internal/notify"
	"murmur/internal/scheduler"
	"murmur/internal/service"
	"murmur/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	gateway := notify.NewStoreGateway(store, cfg.Timezone)
	extractor := extract.New(cfg.Timezone)
	completer := openai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	calendarClient := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendarPath)

	intentSvc := service.NewIntentService(completer, extractor, cfg.Timezone)
	reminderSvc := service.NewReminderService(store, gateway, cfg.Timezone)
	querySvc := service.NewQueryService(store, cfg.Timezone)
	calendarSvc := service.NewCalendarService(calendarClient, cfg.Timezone)
	noteSvc := service.NewNoteService(store, intentSvc, reminderSvc, calendarSvc, cfg.Timezone)

	tgBot, err := bot.New(cfg, store, noteSvc, reminderSvc, querySvc)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}

	sched := scheduler.New(cfg, store, gateway, reminderSvc, querySvc)
	sched.SetSender(tgBot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("Murmur started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	sched.Stop()
	log.Println("Murmur stopped")
}
