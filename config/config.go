package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken      string
	AllowedTelegramIDs []int64
	DatabasePath       string
	Timezone           *time.Location
	MorningHour        string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	CalDAVURL          string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarPath string
}

func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var allowed []int64
	for _, part := range strings.Split(os.Getenv("ALLOWED_TELEGRAM_IDS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ALLOWED_TELEGRAM_IDS contains %q, expected numbers", part)
		}
		allowed = append(allowed, id)
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("ALLOWED_TELEGRAM_IDS is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/murmur.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "UTC"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	morningHour := os.Getenv("MORNING_HOUR")
	if morningHour == "" {
		morningHour = "8"
	}
	if _, err := strconv.Atoi(morningHour); err != nil {
		return nil, fmt.Errorf("invalid MORNING_HOUR: %w", err)
	}

	return &Config{
		TelegramToken:      token,
		AllowedTelegramIDs: allowed,
		DatabasePath:       dbPath,
		Timezone:           tz,
		MorningHour:        morningHour,

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),

		CalDAVURL:          os.Getenv("CALDAV_URL"),
		CalDAVUsername:     os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:     os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendarPath: os.Getenv("CALDAV_CALENDAR_PATH"),
	}, nil
}

func (c *Config) IsAllowedUser(telegramID int64) bool {
	for _, id := range c.AllowedTelegramIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
