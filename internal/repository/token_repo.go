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

// TokenRepository stores hashed invite and password-reset tokens
type TokenRepository struct {
	db *database.DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a new token and revokes the user's older unconsumed tokens
// of the same purpose.
func (r *TokenRepository) Create(ctx context.Context, token *models.CredentialToken) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM credential_tokens WHERE user_id = ? AND purpose = ? AND consumed_at IS NULL",
			token.UserID, string(token.Purpose))
		if err != nil {
			return fmt.Errorf("failed to revoke previous tokens: %w", err)
		}

		query := `
			INSERT INTO credential_tokens (user_id, token_hash, purpose, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(ctx, query,
			token.UserID, token.TokenHash, string(token.Purpose), token.CreatedAt.UTC(), token.ExpiresAt.UTC())
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}

		token.ID = id
		return nil
	})
}

// FindByHash looks up a token by the hash of its value.
// It returns nil, nil when no token matches.
func (r *TokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.CredentialToken, error) {
	query := `
		SELECT id, user_id, token_hash, purpose, created_at, expires_at, consumed_at
		FROM credential_tokens
		WHERE token_hash = ?
	`
	token := &models.CredentialToken{}
	var purpose string
	var consumedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&purpose,
		&token.CreatedAt,
		&token.ExpiresAt,
		&consumedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token.Purpose = models.TokenPurpose(purpose)
	if consumedAt.Valid {
		t := consumedAt.Time
		token.ConsumedAt = &t
	}
	return token, nil
}

// ConsumeWithPassword marks the token consumed and writes the new password
// hash in one transaction. The user's other outstanding tokens and all of
// the user's sessions are removed in the same transaction. ErrNotConsumable
// is returned, and nothing is written, when the token was consumed or
// expired concurrently.
func (r *TokenRepository) ConsumeWithPassword(ctx context.Context, token *models.CredentialToken, passwordHash string, now time.Time) error {
	now = now.UTC()
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE credential_tokens
			SET consumed_at = ?
			WHERE id = ? AND user_id = ? AND consumed_at IS NULL AND expires_at > ?
		`, now, token.ID, token.UserID, now)
		if err != nil {
			return fmt.Errorf("failed to consume token: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read consume result: %w", err)
		}
		if n == 0 {
			return ErrNotConsumable
		}

		if err := setPassword(ctx, tx, token.UserID, passwordHash); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM credential_tokens WHERE user_id = ? AND id <> ? AND consumed_at IS NULL",
			token.UserID, token.ID); err != nil {
			return fmt.Errorf("failed to revoke outstanding tokens: %w", err)
		}

		if err := deleteSessionsForUser(ctx, tx, token.UserID); err != nil {
			return err
		}

		token.ConsumedAt = &now
		return nil
	})
}

// DeleteExpired removes tokens that expired before now, plus consumed ones
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM credential_tokens WHERE expires_at <= ? OR consumed_at IS NOT NULL", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return result.RowsAffected()
}
