package service

import (
	"context"
	"time"

	"cpaportal/internal/models"
)

// CredentialStore persists portal accounts and their role memberships
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	CreateWithRole(ctx context.Context, user *models.User, role models.Role) error
	Update(ctx context.Context, user *models.User) error
	SetPassword(ctx context.Context, userID int64, passwordHash string) error
	AddToRole(ctx context.Context, userID int64, role models.Role) error
	IsInRole(ctx context.Context, userID int64, role models.Role) (bool, error)
	RecordLoginFailure(ctx context.Context, userID int64, maxFailed int, lockout time.Duration, now time.Time) (bool, error)
	ResetLoginFailures(ctx context.Context, userID int64) error
}

// SessionStore persists login sessions
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Touch(ctx context.Context, id string, lastSeen, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenStore persists hashed credential tokens. ConsumeWithPassword must
// return repository.ErrNotConsumable when the conditional consume matched
// no row.
type TokenStore interface {
	Create(ctx context.Context, token *models.CredentialToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.CredentialToken, error)
	ConsumeWithPassword(ctx context.Context, token *models.CredentialToken, passwordHash string, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Notifier delivers account emails. Implementations wrap delivery failures
// that are safe to ignore with ErrTransient.
type Notifier interface {
	SendInviteEmail(ctx context.Context, toEmail, callbackURL string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, callbackURL string) error
	SendGenericEmail(ctx context.Context, toEmail, subject, htmlBody string) error
}

// Identity is the authenticated caller of an operation
type Identity struct {
	Session *models.Session
	User    *models.User
}
