package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"cpaportal/internal/models"
	"cpaportal/internal/repository"
)

const tokenBytes = 32

// TokenService issues and validates single-use invite and reset tokens.
// Only a hash of each token value is persisted.
type TokenService struct {
	store    TokenStore
	lifespan time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service whose tokens expire lifespan after issue
func NewTokenService(store TokenStore, lifespan time.Duration) *TokenService {
	return &TokenService{
		store:    store,
		lifespan: lifespan,
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// Lifespan returns how long issued tokens stay valid
func (s *TokenService) Lifespan() time.Duration {
	return s.lifespan
}

// Issue creates a token for the user and returns its URL-safe value.
// Older unconsumed tokens of the same purpose are revoked.
func (s *TokenService) Issue(ctx context.Context, userID int64, purpose models.TokenPurpose) (string, error) {
	value, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now()
	token := &models.CredentialToken{
		UserID:    userID,
		TokenHash: hashToken(value),
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifespan),
	}
	if err := s.store.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return value, nil
}

// Validate checks that value is an unexpired, unconsumed token owned by
// userID and issued for one of purposes. Every failure is ErrInvalidToken.
func (s *TokenService) Validate(ctx context.Context, userID int64, value string, purposes ...models.TokenPurpose) (*models.CredentialToken, error) {
	if value == "" {
		return nil, ErrInvalidToken
	}

	token, err := s.store.FindByHash(ctx, hashToken(value))
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if token == nil || token.UserID != userID {
		return nil, ErrInvalidToken
	}
	if token.IsConsumed() || token.IsExpired(s.now()) {
		return nil, ErrInvalidToken
	}
	if !purposeAllowed(token.Purpose, purposes) {
		return nil, ErrInvalidToken
	}

	return token, nil
}

// ConsumeWithPassword marks the token consumed and stores the new password
// hash atomically. A token consumed or expired in the meantime yields
// ErrInvalidToken and leaves the password unchanged.
func (s *TokenService) ConsumeWithPassword(ctx context.Context, token *models.CredentialToken, passwordHash string) error {
	err := s.store.ConsumeWithPassword(ctx, token, passwordHash, s.now())
	if errors.Is(err, repository.ErrNotConsumable) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to consume token: %w", err)
	}
	return nil
}

// CleanupExpired removes expired and consumed tokens
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup tokens: %w", err)
	}
	return n, nil
}

func purposeAllowed(purpose models.TokenPurpose, allowed []models.TokenPurpose) bool {
	for _, p := range allowed {
		if p == purpose {
			return true
		}
	}
	return false
}

// generateToken generates a cryptographically secure random token
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
