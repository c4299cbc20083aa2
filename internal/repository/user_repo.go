package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cpaportal/internal/database"
	"cpaportal/internal/models"
)

// UserRepository is the credential store: accounts and role memberships
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, normalized_email, user_name, normalized_user_name, password_hash,
	first_name, last_name, phone, email_confirmed, is_active, failed_login_count, lockout_end,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var lockoutEnd sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.NormalizedEmail,
		&user.UserName,
		&user.NormalizedUserName,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.EmailConfirmed,
		&user.IsActive,
		&user.FailedLoginCount,
		&lockoutEnd,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockoutEnd.Valid {
		t := lockoutEnd.Time
		user.LockoutEnd = &t
	}
	return user, nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	roles, err := r.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return user, nil
}

// FindByEmail retrieves a user by email address, case-insensitively.
// It returns nil, nil when no account exists.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "normalized_email = ?", models.NormalizeEmail(email))
}

// FindByID retrieves a user by ID. It returns nil, nil when no account exists.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// CreateWithRole inserts a new account together with its initial role in a
// single transaction, so an account never exists without a role.
func (r *UserRepository) CreateWithRole(ctx context.Context, user *models.User, role models.Role) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		if err := addToRole(ctx, tx, user.ID, role); err != nil {
			return err
		}
		user.Roles = []models.Role{role}
		return nil
	})
}

func insertUser(ctx context.Context, q database.DBTX, user *models.User) error {
	now := time.Now().UTC()
	user.SetEmail(user.Email)

	query := `
		INSERT INTO users (email, normalized_email, user_name, normalized_user_name, password_hash,
			first_name, last_name, phone, email_confirmed, is_active, failed_login_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`
	id, err := q.ExecReturningID(ctx, query,
		user.Email, user.NormalizedEmail, user.UserName, user.NormalizedUserName, user.PasswordHash,
		user.FirstName, user.LastName, user.Phone, user.EmailConfirmed, user.IsActive, now, now)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// Update writes identity and profile fields. Email and user name are always
// written together with their normalized forms.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.SetEmail(user.Email)
	now := time.Now().UTC()

	query := `
		UPDATE users
		SET email = ?, normalized_email = ?, user_name = ?, normalized_user_name = ?,
			first_name = ?, last_name = ?, phone = ?, email_confirmed = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		user.Email, user.NormalizedEmail, user.UserName, user.NormalizedUserName,
		user.FirstName, user.LastName, user.Phone, user.EmailConfirmed, user.IsActive, now, user.ID)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	user.UpdatedAt = now
	return nil
}

// SetPassword replaces the password hash and clears any lockout
func (r *UserRepository) SetPassword(ctx context.Context, userID int64, passwordHash string) error {
	return setPassword(ctx, r.db, userID, passwordHash)
}

func setPassword(ctx context.Context, q database.DBTX, userID int64, passwordHash string) error {
	if passwordHash == "" {
		return errors.New("password hash must not be empty")
	}
	query := `
		UPDATE users
		SET password_hash = ?, failed_login_count = 0, lockout_end = NULL, updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query, passwordHash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to set password: user %d not found", userID)
	}
	return nil
}

// RecordLoginFailure increments the failed-attempt counter. Once it reaches
// maxFailed the account is locked until now+lockout and the counter restarts.
// It reports whether this failure locked the account.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, userID int64, maxFailed int, lockout time.Duration, now time.Time) (bool, error) {
	locked := false
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET failed_login_count = failed_login_count + 1 WHERE id = ?", userID); err != nil {
			return fmt.Errorf("failed to record login failure: %w", err)
		}

		var count int
		if err := tx.QueryRowContext(ctx,
			"SELECT failed_login_count FROM users WHERE id = ?", userID).Scan(&count); err != nil {
			return fmt.Errorf("failed to read login failures: %w", err)
		}

		if maxFailed <= 0 || count < maxFailed {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET failed_login_count = 0, lockout_end = ? WHERE id = ?",
			now.Add(lockout).UTC(), userID); err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		locked = true
		return nil
	})
	return locked, err
}

// ResetLoginFailures clears the failed-attempt counter and any lockout
func (r *UserRepository) ResetLoginFailures(ctx context.Context, userID int64) error {
	query := "UPDATE users SET failed_login_count = 0, lockout_end = NULL WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}

// AddToRole grants a role; granting an already-held role is a no-op
func (r *UserRepository) AddToRole(ctx context.Context, userID int64, role models.Role) error {
	return addToRole(ctx, r.db, userID, role)
}

func addToRole(ctx context.Context, q database.DBTX, userID int64, role models.Role) error {
	_, err := q.ExecContext(ctx, "INSERT INTO user_roles (user_id, role) VALUES (?, ?)", userID, string(role))
	if database.IsUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to add role: %w", err)
	}
	return nil
}

// IsInRole reports whether the user holds role
func (r *UserRepository) IsInRole(ctx context.Context, userID int64, role models.Role) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?"
	if err := r.db.QueryRowContext(ctx, query, userID, string(role)).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// GetRoles lists the user's roles
func (r *UserRepository) GetRoles(ctx context.Context, userID int64) ([]models.Role, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT role FROM user_roles WHERE user_id = ? ORDER BY role", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		role, err := models.ParseRole(name)
		if err != nil {
			// Unknown roles grant nothing
			continue
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// ListByRole returns all accounts holding role, newest first
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id IN (SELECT user_id FROM user_roles WHERE role = ?)
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}
