package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"murmur/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_id INTEGER UNIQUE NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			transcript TEXT NOT NULL,
			parsed_data TEXT DEFAULT '',
			tags TEXT DEFAULT '[]',
			note_type TEXT DEFAULT 'task',
			is_reminder INTEGER DEFAULT 0,
			reminder_type TEXT DEFAULT '',
			event_date TEXT DEFAULT '',
			event_location TEXT DEFAULT '',
			reminder_days_before INTEGER,
			recurrence_pattern TEXT DEFAULT '',
			recurrence_day INTEGER DEFAULT 0,
			recurrence_time TEXT DEFAULT '',
			additional_times TEXT DEFAULT '[]',
			notification_ids TEXT DEFAULT '[]',
			reminder_active INTEGER DEFAULT 0,
			last_reminded_at DATETIME,
			reminder_completed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_reminder ON notes(is_reminder, reminder_active)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_event_date ON notes(event_date)`,
		`CREATE TABLE IF NOT EXISTS reminder_completions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			note_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			completed_date TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(note_id, completed_date),
			FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_user_date ON reminder_completions(user_id, completed_date)`,
		`CREATE TABLE IF NOT EXISTS scheduled_notifications (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			chat_id INTEGER NOT NULL,
			note_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT DEFAULT '',
			payload TEXT DEFAULT '{}',
			kind TEXT NOT NULL,
			fire_at DATETIME,
			schedule TEXT DEFAULT '',
			next_run DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sched_next_run ON scheduled_notifications(next_run)`,
		`CREATE INDEX IF NOT EXISTS idx_sched_note ON scheduled_notifications(note_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Users ===

type User struct {
	ID         int64
	TelegramID int64
	Name       string
	CreatedAt  time.Time
}

func (s *Storage) CreateUser(u *User) error {
	res, err := s.db.Exec(
		`INSERT INTO users (telegram_id, name) VALUES (?, ?)`,
		u.TelegramID, u.Name,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, _ = res.LastInsertId()
	return nil
}

func (s *Storage) GetUserByTelegramID(telegramID int64) (*User, error) {
	row := s.db.QueryRow(
		`SELECT id, telegram_id, name, created_at FROM users WHERE telegram_id = ?`,
		telegramID,
	)
	u := &User{}
	err := row.Scan(&u.ID, &u.TelegramID, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Storage) GetUserByID(id int64) (*User, error) {
	row := s.db.QueryRow(
		`SELECT id, telegram_id, name, created_at FROM users WHERE id = ?`,
		id,
	)
	u := &User{}
	err := row.Scan(&u.ID, &u.TelegramID, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Storage) ListUsers() ([]*User, error) {
	rows, err := s.db.Query(`SELECT id, telegram_id, name, created_at FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Name, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// === Notes ===

const noteColumns = `id, user_id, transcript, parsed_data, tags, note_type,
	is_reminder, reminder_type, event_date, event_location, reminder_days_before,
	recurrence_pattern, recurrence_day, recurrence_time, additional_times,
	notification_ids, reminder_active, last_reminded_at, reminder_completed_at, created_at`

func (s *Storage) CreateNote(n *domain.Note) error {
	res, err := s.db.Exec(
		`INSERT INTO notes (user_id, transcript, parsed_data, tags, note_type,
			is_reminder, reminder_type, event_date, event_location, reminder_days_before,
			recurrence_pattern, recurrence_day, recurrence_time, additional_times,
			notification_ids, reminder_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.Transcript, n.ParsedData, encodeStrings(n.Tags), string(n.Type),
		n.IsReminder, string(n.ReminderType), n.EventDate, n.EventLocation, daysBeforeValue(n.DaysBefore),
		string(n.Pattern), n.RecurrenceDay, n.RecurrenceTime, encodeStrings(n.AdditionalTimes),
		encodeStrings(n.NotificationIDs), n.ReminderActive,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	n.ID, _ = res.LastInsertId()
	n.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetNote(id int64) (*domain.Note, error) {
	row := s.db.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// UpdateNoteReminder rewrites every reminder-related column of a note in one
// statement. Scheduling and edit paths always replace the whole descriptor
// rather than patching single columns.
func (s *Storage) UpdateNoteReminder(n *domain.Note) error {
	_, err := s.db.Exec(
		`UPDATE notes SET parsed_data = ?, tags = ?, note_type = ?,
			is_reminder = ?, reminder_type = ?, event_date = ?, event_location = ?,
			reminder_days_before = ?, recurrence_pattern = ?, recurrence_day = ?,
			recurrence_time = ?, additional_times = ?, notification_ids = ?,
			reminder_active = ?, last_reminded_at = ?, reminder_completed_at = ?
		WHERE id = ?`,
		n.ParsedData, encodeStrings(n.Tags), string(n.Type),
		n.IsReminder, string(n.ReminderType), n.EventDate, n.EventLocation,
		daysBeforeValue(n.DaysBefore), string(n.Pattern), n.RecurrenceDay,
		n.RecurrenceTime, encodeStrings(n.AdditionalTimes), encodeStrings(n.NotificationIDs),
		n.ReminderActive, n.LastRemindedAt, n.ReminderCompletedAt,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("update note reminder: %w", err)
	}
	return nil
}

func (s *Storage) SetNotificationIDs(noteID int64, ids []string) error {
	_, err := s.db.Exec(
		`UPDATE notes SET notification_ids = ? WHERE id = ?`,
		encodeStrings(ids), noteID,
	)
	if err != nil {
		return fmt.Errorf("set notification ids: %w", err)
	}
	return nil
}

func (s *Storage) SetReminderCompleted(noteID int64, completedAt *time.Time, active bool) error {
	_, err := s.db.Exec(
		`UPDATE notes SET reminder_completed_at = ?, reminder_active = ? WHERE id = ?`,
		completedAt, active, noteID,
	)
	if err != nil {
		return fmt.Errorf("set reminder completed: %w", err)
	}
	return nil
}

func (s *Storage) SetLastRemindedAt(noteID int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE notes SET last_reminded_at = ? WHERE id = ?`, at, noteID)
	if err != nil {
		return fmt.Errorf("set last reminded at: %w", err)
	}
	return nil
}

func (s *Storage) DeleteNote(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM reminder_completions WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("delete completions: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// ListActiveReminders returns every active reminder note for a user.
func (s *Storage) ListActiveReminders(userID int64) ([]*domain.Note, error) {
	return s.queryNotes(
		`SELECT `+noteColumns+` FROM notes
		WHERE user_id = ? AND is_reminder = 1 AND reminder_active = 1
		ORDER BY id`, userID)
}

// ListAllActiveReminders returns active reminders across all users, for the
// reconciliation pass.
func (s *Storage) ListAllActiveReminders() ([]*domain.Note, error) {
	return s.queryNotes(
		`SELECT ` + noteColumns + ` FROM notes
		WHERE is_reminder = 1 AND reminder_active = 1
		ORDER BY id`)
}

// ListUnscheduledTasks returns dateless task notes, optionally filtered to
// those not yet completed.
func (s *Storage) ListUnscheduledTasks(userID int64, includeDone bool) ([]*domain.Note, error) {
	q := `SELECT ` + noteColumns + ` FROM notes
		WHERE user_id = ? AND note_type = 'task' AND is_reminder = 0`
	if !includeDone {
		q += ` AND reminder_completed_at IS NULL`
	}
	q += ` ORDER BY id`
	return s.queryNotes(q, userID)
}

// ListTasksCompletedBetween returns unscheduled tasks completed inside the
// given half-open interval.
func (s *Storage) ListTasksCompletedBetween(userID int64, dayStart, dayEnd time.Time) ([]*domain.Note, error) {
	return s.queryNotes(
		`SELECT `+noteColumns+` FROM notes
		WHERE user_id = ? AND note_type = 'task' AND is_reminder = 0
			AND reminder_completed_at >= ? AND reminder_completed_at < ?
		ORDER BY id`, userID, dayStart, dayEnd)
}

// ListOneTimeCompletedBetween returns one-time reminders completed inside the
// interval, including ones already flipped inactive.
func (s *Storage) ListOneTimeCompletedBetween(userID int64, dayStart, dayEnd time.Time) ([]*domain.Note, error) {
	return s.queryNotes(
		`SELECT `+noteColumns+` FROM notes
		WHERE user_id = ? AND is_reminder = 1 AND reminder_type = ?
			AND reminder_completed_at >= ? AND reminder_completed_at < ?
		ORDER BY id`, userID, string(domain.ReminderOneTime), dayStart, dayEnd)
}

// RolloverPendingReminders advances every stale, active, incomplete one-time
// reminder to today's date. Returns the number of notes touched; running it
// again with nothing overdue is a no-op.
func (s *Storage) RolloverPendingReminders(userID int64, today string) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE notes SET event_date = ?
		WHERE user_id = ? AND is_reminder = 1 AND reminder_active = 1
			AND reminder_type = ? AND reminder_completed_at IS NULL
			AND event_date != '' AND event_date < ?`,
		today, userID, string(domain.ReminderOneTime), today,
	)
	if err != nil {
		return 0, fmt.Errorf("rollover reminders: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Storage) queryNotes(query string, args ...any) ([]*domain.Note, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*domain.Note, error) {
	n := &domain.Note{}
	var (
		tags, noteType, reminderType, pattern string
		additionalTimes, notificationIDs      string
		daysBefore                            sql.NullInt64
		lastReminded, completed               sql.NullTime
	)
	err := row.Scan(
		&n.ID, &n.UserID, &n.Transcript, &n.ParsedData, &tags, &noteType,
		&n.IsReminder, &reminderType, &n.EventDate, &n.EventLocation, &daysBefore,
		&pattern, &n.RecurrenceDay, &n.RecurrenceTime, &additionalTimes,
		&notificationIDs, &n.ReminderActive, &lastReminded, &completed, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.Tags = decodeStrings(tags)
	n.Type = domain.NoteType(noteType)
	n.ReminderType = domain.ReminderType(reminderType)
	n.Pattern = domain.RecurrencePattern(pattern)
	n.AdditionalTimes = decodeStrings(additionalTimes)
	n.NotificationIDs = decodeStrings(notificationIDs)
	if daysBefore.Valid {
		v := int(daysBefore.Int64)
		n.DaysBefore = &v
	}
	if lastReminded.Valid {
		t := lastReminded.Time
		n.LastRemindedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		n.ReminderCompletedAt = &t
	}
	return n, nil
}

// === Reminder completions ===

func (s *Storage) UpsertCompletion(noteID, userID int64, completedDate string) error {
	_, err := s.db.Exec(
		`INSERT INTO reminder_completions (note_id, user_id, completed_date)
		VALUES (?, ?, ?)
		ON CONFLICT(note_id, completed_date) DO NOTHING`,
		noteID, userID, completedDate,
	)
	if err != nil {
		return fmt.Errorf("upsert completion: %w", err)
	}
	return nil
}

func (s *Storage) DeleteCompletion(noteID int64, completedDate string) error {
	_, err := s.db.Exec(
		`DELETE FROM reminder_completions WHERE note_id = ? AND completed_date = ?`,
		noteID, completedDate,
	)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func (s *Storage) HasCompletion(noteID int64, completedDate string) (bool, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*) FROM reminder_completions WHERE note_id = ? AND completed_date = ?`,
		noteID, completedDate,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("has completion: %w", err)
	}
	return count > 0, nil
}

func (s *Storage) ListCompletionsOn(userID int64, completedDate string) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT note_id FROM reminder_completions WHERE user_id = ? AND completed_date = ?`,
		userID, completedDate,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	done := make(map[int64]bool)
	for rows.Next() {
		var noteID int64
		if err := rows.Scan(&noteID); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		done[noteID] = true
	}
	return done, rows.Err()
}

// === Scheduled notifications ===

func (s *Storage) CreateScheduledNotification(n *domain.ScheduledNotification) error {
	payload, _ := json.Marshal(n.Payload)
	_, err := s.db.Exec(
		`INSERT INTO scheduled_notifications
			(id, user_id, chat_id, note_id, title, body, payload, kind, fire_at, schedule, next_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.ChatID, n.NoteID, n.Title, n.Body, string(payload),
		string(n.Kind), n.FireAt, n.Schedule, n.NextRun,
	)
	if err != nil {
		return fmt.Errorf("insert scheduled notification: %w", err)
	}
	return nil
}

func (s *Storage) DeleteScheduledNotification(id string) error {
	if _, err := s.db.Exec(`DELETE FROM scheduled_notifications WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete scheduled notification: %w", err)
	}
	return nil
}

func (s *Storage) DeleteAllScheduledNotifications() error {
	if _, err := s.db.Exec(`DELETE FROM scheduled_notifications`); err != nil {
		return fmt.Errorf("delete scheduled notifications: %w", err)
	}
	return nil
}

func (s *Storage) ListDueNotifications(now time.Time) ([]*domain.ScheduledNotification, error) {
	return s.queryScheduled(
		`SELECT id, user_id, chat_id, note_id, title, body, payload, kind, fire_at, schedule, next_run, created_at
		FROM scheduled_notifications WHERE next_run <= ? ORDER BY next_run`, now)
}

func (s *Storage) ListScheduledNotifications() ([]*domain.ScheduledNotification, error) {
	return s.queryScheduled(
		`SELECT id, user_id, chat_id, note_id, title, body, payload, kind, fire_at, schedule, next_run, created_at
		FROM scheduled_notifications ORDER BY next_run`)
}

func (s *Storage) UpdateNotificationNextRun(id string, nextRun time.Time) error {
	if _, err := s.db.Exec(
		`UPDATE scheduled_notifications SET next_run = ? WHERE id = ?`, nextRun, id,
	); err != nil {
		return fmt.Errorf("update next run: %w", err)
	}
	return nil
}

func (s *Storage) queryScheduled(query string, args ...any) ([]*domain.ScheduledNotification, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scheduled notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledNotification
	for rows.Next() {
		n := &domain.ScheduledNotification{}
		var (
			payload, kind string
			fireAt        sql.NullTime
		)
		err := rows.Scan(&n.ID, &n.UserID, &n.ChatID, &n.NoteID, &n.Title, &n.Body,
			&payload, &kind, &fireAt, &n.Schedule, &n.NextRun, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan scheduled notification: %w", err)
		}
		n.Kind = domain.NotificationKind(kind)
		if fireAt.Valid {
			t := fireAt.Time
			n.FireAt = &t
		}
		if payload != "" && payload != "{}" {
			_ = json.Unmarshal([]byte(payload), &n.Payload)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// === helpers ===

func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func daysBeforeValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
