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

// SessionRepository stores server-side login sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, persistent, created_at, last_seen_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.Persistent,
		session.CreatedAt.UTC(), session.LastSeenAt.UTC(), session.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. It returns nil, nil when none exists.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, persistent, created_at, last_seen_at, expires_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.Persistent,
		&session.CreatedAt,
		&session.LastSeenAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Touch records activity and moves the session expiry
func (r *SessionRepository) Touch(ctx context.Context, id string, lastSeen, expiresAt time.Time) error {
	query := "UPDATE sessions SET last_seen_at = ?, expires_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, lastSeen.UTC(), expiresAt.UTC(), id); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteForUser removes every session belonging to the user
func (r *SessionRepository) DeleteForUser(ctx context.Context, userID int64) error {
	return deleteSessionsForUser(ctx, r.db, userID)
}

func deleteSessionsForUser(ctx context.Context, q database.DBTX, userID int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
