package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"cpaportal/internal/models"
	"cpaportal/internal/repository"
)

const backupVersion = "1.0"

// BackupData is the portable account export
type BackupData struct {
	Version          string          `json:"version"`
	ExportedAt       time.Time       `json:"exported_at"`
	Accounts         []AccountBackup `json:"accounts"`
	ReminderTemplate string          `json:"reminder_template"`
}

// AccountBackup is one account with its roles. Password hashes travel so
// restored accounts can sign in; token and session state never does.
type AccountBackup struct {
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	EmailConfirmed bool      `json:"email_confirmed"`
	IsActive       bool      `json:"is_active"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"created_at"`
}

// ImportResult counts what an import did
type ImportResult struct {
	Imported int
	Skipped  int
}

// BackupService exports and restores portal accounts
type BackupService struct {
	users    *repository.UserRepository
	settings *repository.SettingsRepository
}

// NewBackupService creates a new backup service
func NewBackupService(users *repository.UserRepository, settings *repository.SettingsRepository) *BackupService {
	return &BackupService{users: users, settings: settings}
}

// Export collects every account and the reminder template
func (s *BackupService) Export(ctx context.Context) (*BackupData, error) {
	byID := make(map[int64]*AccountBackup)
	var order []int64

	for _, role := range []models.Role{models.RoleAdmin, models.RoleClient} {
		users, err := s.users.ListByRole(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("failed to export %s accounts: %w", role, err)
		}
		for _, u := range users {
			acct, ok := byID[u.ID]
			if !ok {
				acct = &AccountBackup{
					Email:          u.Email,
					PasswordHash:   u.PasswordHash,
					FirstName:      u.FirstName,
					LastName:       u.LastName,
					Phone:          u.Phone,
					EmailConfirmed: u.EmailConfirmed,
					IsActive:       u.IsActive,
					CreatedAt:      u.CreatedAt,
				}
				byID[u.ID] = acct
				order = append(order, u.ID)
			}
			acct.Roles = append(acct.Roles, string(role))
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	template, err := s.settings.ReminderTemplate(ctx)
	if err != nil {
		return nil, err
	}

	backup := &BackupData{
		Version:          backupVersion,
		ExportedAt:       time.Now().UTC(),
		ReminderTemplate: template,
	}
	for _, id := range order {
		backup.Accounts = append(backup.Accounts, *byID[id])
	}
	return backup, nil
}

// ExportToWriter writes the export as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup, err := s.Export(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported %d accounts", len(backup.Accounts))
	return nil
}

// ImportFromReader merges a backup into the store. Accounts whose email is
// already registered are skipped and left untouched.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	result := &ImportResult{}
	for _, acct := range backup.Accounts {
		imported, err := s.importAccount(ctx, acct)
		if err != nil {
			return result, fmt.Errorf("failed to import %s: %w", acct.Email, err)
		}
		if imported {
			result.Imported++
		} else {
			result.Skipped++
		}
	}

	if backup.ReminderTemplate != "" {
		if err := s.settings.SetReminderTemplate(ctx, backup.ReminderTemplate); err != nil {
			return result, err
		}
	}

	log.Printf("Import complete: %d imported, %d skipped", result.Imported, result.Skipped)
	return result, nil
}

func (s *BackupService) importAccount(ctx context.Context, acct AccountBackup) (bool, error) {
	roles := make([]models.Role, 0, len(acct.Roles))
	for _, name := range acct.Roles {
		role, err := models.ParseRole(name)
		if err != nil {
			return false, err
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = append(roles, models.RoleClient)
	}

	user := &models.User{
		PasswordHash:   acct.PasswordHash,
		FirstName:      acct.FirstName,
		LastName:       acct.LastName,
		Phone:          acct.Phone,
		EmailConfirmed: acct.EmailConfirmed,
		IsActive:       acct.IsActive,
	}
	user.SetEmail(acct.Email)

	if err := s.users.CreateWithRole(ctx, user, roles[0]); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	for _, role := range roles[1:] {
		if err := s.users.AddToRole(ctx, user.ID, role); err != nil {
			return true, err
		}
	}
	return true, nil
}
