package models

import (
	"strings"
	"time"
)

// User represents a portal account (client or administrator)
type User struct {
	ID                 int64
	Email              string
	NormalizedEmail    string
	UserName           string
	NormalizedUserName string
	PasswordHash       string
	FirstName          string
	LastName           string
	Phone              string
	EmailConfirmed     bool
	IsActive           bool
	FailedLoginCount   int
	LockoutEnd         *time.Time
	Roles              []Role
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NormalizeEmail returns the canonical form used for uniqueness checks
func NormalizeEmail(email string) string {
	return strings.ToUpper(strings.TrimSpace(email))
}

// SetEmail updates the email and keeps the user name and both normalized
// columns in lockstep with it.
func (u *User) SetEmail(email string) {
	email = strings.TrimSpace(email)
	u.Email = email
	u.UserName = email
	u.NormalizedEmail = NormalizeEmail(email)
	u.NormalizedUserName = u.NormalizedEmail
}

// HasPassword reports whether the account has a usable password
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsLockedOut reports whether the account is locked at the given time
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && now.Before(*u.LockoutEnd)
}

// HasRole reports whether the user holds the given role
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// DisplayName returns "First Last", falling back to the email address
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Initials returns up to two upper-case initials for avatars
func (u *User) Initials() string {
	var b strings.Builder
	for _, part := range []string{u.FirstName, u.LastName} {
		part = strings.TrimSpace(part)
		if part != "" {
			b.WriteString(strings.ToUpper(part[:1]))
		}
	}
	return b.String()
}

// Session represents an authenticated browser session
type Session struct {
	ID         string
	UserID     int64
	Persistent bool
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenPurpose identifies which flow a credential token was issued for
type TokenPurpose string

const (
	PurposeInvite TokenPurpose = "invite"
	PurposeReset  TokenPurpose = "reset"
)

// CredentialToken is a single-use, time-boxed token for invite and password
// reset flows. Only the SHA-256 hash of the token value is kept.
type CredentialToken struct {
	ID         int64
	UserID     int64
	TokenHash  string
	Purpose    TokenPurpose
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsExpired checks if the token has expired
func (t *CredentialToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsConsumed reports whether the token has already been used
func (t *CredentialToken) IsConsumed() bool {
	return t.ConsumedAt != nil
}
