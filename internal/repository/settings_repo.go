package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cpaportal/internal/database"
)

// ReminderTemplateKey holds the HTML body used for document reminder emails
const ReminderTemplateKey = "reminder_email_template"

// DefaultReminderTemplate is used when no template has been stored
const DefaultReminderTemplate = "<p>This is a friendly reminder to upload your tax documents to the client portal.</p>"

type SettingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting retrieves a setting value by key. A missing key yields "", nil.
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT setting_value FROM settings WHERE setting_key = ?`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	query := r.db.Dialect.UpsertSettingQuery()
	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// ReminderTemplate returns the stored reminder email body
func (r *SettingsRepository) ReminderTemplate(ctx context.Context) (string, error) {
	value, err := r.GetSetting(ctx, ReminderTemplateKey)
	if err != nil {
		return "", err
	}
	if value == "" {
		return DefaultReminderTemplate, nil
	}
	return value, nil
}

// SetReminderTemplate stores the reminder email body
func (r *SettingsRepository) SetReminderTemplate(ctx context.Context, template string) error {
	return r.SetSetting(ctx, ReminderTemplateKey, template)
}
