package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cpaportal/internal/models"
	"cpaportal/internal/repository"
	"cpaportal/internal/security"
	"cpaportal/internal/validation"
)

// AuthConfig holds the account policy knobs
type AuthConfig struct {
	AppBaseURL      string
	SessionDuration time.Duration
	MaxFailedLogins int
	LockoutDuration time.Duration
}

// ProfileUpdate carries the editable identity fields of an account
type ProfileUpdate struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// AuthService handles the account lifecycle: login, invites, password
// setup and recovery, profile edits and sessions.
type AuthService struct {
	users    CredentialStore
	sessions SessionStore
	tokens   *TokenService
	notifier Notifier
	cfg      AuthConfig
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users CredentialStore, sessions SessionStore, tokens *TokenService, notifier Notifier, cfg AuthConfig) *AuthService {
	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Login verifies credentials and creates a session
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*models.Session, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive || !user.HasPassword() {
		return nil, nil, ErrInvalidCredentials
	}

	now := s.now()
	if user.IsLockedOut(now) {
		return nil, nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		locked, err := s.users.RecordLoginFailure(ctx, user.ID, s.cfg.MaxFailedLogins, s.cfg.LockoutDuration, now)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to record login failure: %w", err)
		}
		if locked {
			log.Printf("Account %d locked out until %s", user.ID, now.Add(s.cfg.LockoutDuration).Format(time.RFC3339))
		}
		return nil, nil, ErrInvalidCredentials
	}

	if user.FailedLoginCount > 0 || user.LockoutEnd != nil {
		if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
			return nil, nil, fmt.Errorf("failed to reset login failures: %w", err)
		}
	}

	session, err := s.createSession(ctx, user.ID, rememberMe)
	if err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

// RedirectAfterLogin picks where a freshly authenticated user lands: a local
// returnURL when given, else the dashboard of the user's primary role.
func RedirectAfterLogin(user *models.User, returnURL string) string {
	if security.IsLocalURL(returnURL) {
		return security.LocalPath(returnURL)
	}
	return DashboardFor(user)
}

// DashboardFor returns the dashboard path for the user's primary role
func DashboardFor(user *models.User) string {
	role, ok := models.PrimaryRole(user.Roles)
	if !ok {
		role = models.RoleClient
	}
	return role.DashboardPath()
}

// ValidateSession resolves a session id to its identity. Sessions past the
// halfway point of their window are extended; renewed reports whether that
// happened so the caller can reissue a persistent cookie.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (id *Identity, renewed bool, err error) {
	if sessionID == "" {
		return nil, false, ErrSessionNotFound
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, false, ErrSessionNotFound
	}

	now := s.now()
	if session.IsExpired(now) {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, false, ErrSessionExpired
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		_ = s.sessions.Delete(ctx, sessionID)
		return nil, false, ErrSessionNotFound
	}

	if session.ExpiresAt.Sub(now) < s.cfg.SessionDuration/2 {
		expiresAt := now.Add(s.cfg.SessionDuration)
		if err := s.sessions.Touch(ctx, session.ID, now, expiresAt); err != nil {
			return nil, false, fmt.Errorf("failed to extend session: %w", err)
		}
		session.LastSeenAt = now
		session.ExpiresAt = expiresAt
		renewed = true
	}

	return &Identity{Session: session, User: user}, renewed, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// RefreshSession replaces the session with a new one for the same user so
// that anything bound to the old id stops working.
func (s *AuthService) RefreshSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	fresh, err := s.createSession(ctx, session.UserID, session.Persistent)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("failed to delete old session: %w", err)
	}
	return fresh, nil
}

// InviteUser creates a client account without a password and emails the
// invitee a set-password link.
func (s *AuthService) InviteUser(ctx context.Context, email, firstName, lastName string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidateName("first_name", firstName); err != nil {
		return nil, err
	}
	if err := validation.ValidateName("last_name", lastName); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	user := &models.User{
		FirstName:      strings.TrimSpace(firstName),
		LastName:       strings.TrimSpace(lastName),
		EmailConfirmed: true,
		IsActive:       true,
	}
	user.SetEmail(email)

	if err := s.users.CreateWithRole(ctx, user, models.RoleClient); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(ctx, user.ID, models.PurposeInvite)
	if err != nil {
		return nil, err
	}

	callback := s.callbackURL("SetPassword", user.ID, token)
	if err := s.notify(s.notifier.SendInviteEmail(ctx, user.Email, callback)); err != nil {
		return nil, fmt.Errorf("failed to send invite email: %w", err)
	}

	log.Printf("Invited user %d", user.ID)
	return user, nil
}

// SetPassword completes an invite (or reset) by setting the first password
// and signing the user in with a browser-session cookie.
func (s *AuthService) SetPassword(ctx context.Context, userID int64, token, newPassword string) (*models.Session, *models.User, error) {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return nil, nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidToken
	}

	tok, err := s.tokens.Validate(ctx, userID, token, models.PurposeInvite, models.PurposeReset)
	if err != nil {
		return nil, nil, err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.tokens.ConsumeWithPassword(ctx, tok, hash); err != nil {
		return nil, nil, err
	}
	user.PasswordHash = hash

	session, err := s.createSession(ctx, user.ID, false)
	if err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

// ForgotPassword emails a reset link when the address belongs to a confirmed
// account. The result is the same whether or not the account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.EmailConfirmed || !user.IsActive {
		return nil
	}

	token, err := s.tokens.Issue(ctx, user.ID, models.PurposeReset)
	if err != nil {
		return err
	}

	callback := s.callbackURL("ResetPassword", user.ID, token)
	if err := s.notify(s.notifier.SendPasswordResetEmail(ctx, user.Email, callback)); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	return nil
}

// ResetPassword sets a new password using a reset token. Every session of
// the user is ended; the user must sign in again.
func (s *AuthService) ResetPassword(ctx context.Context, userID int64, code, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return ErrInvalidToken
	}

	tok, err := s.tokens.Validate(ctx, userID, code, models.PurposeReset)
	if err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.tokens.ConsumeWithPassword(ctx, tok, hash)
}

// ChangePassword verifies the current password, stores the new one and
// rotates the caller's session. Other sessions of the user are ended.
func (s *AuthService) ChangePassword(ctx context.Context, id *Identity, oldPassword, newPassword string) (*models.Session, error) {
	user, err := s.checkPasswordChange(ctx, id, oldPassword, newPassword)
	if err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.DeleteForUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to end sessions: %w", err)
	}
	return s.createSession(ctx, user.ID, id.Session.Persistent)
}

// VerifyPasswordChange runs the checks of ChangePassword without writing
// anything, so a caller can validate a password change before other edits.
func (s *AuthService) VerifyPasswordChange(ctx context.Context, id *Identity, oldPassword, newPassword string) error {
	_, err := s.checkPasswordChange(ctx, id, oldPassword, newPassword)
	return err
}

func (s *AuthService) checkPasswordChange(ctx context.Context, id *Identity, oldPassword, newPassword string) (*models.User, error) {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if !security.CheckPassword(oldPassword, user.PasswordHash) {
		return nil, ErrWrongOldPassword
	}
	return user, nil
}

// UpdateProfile edits the caller's identity fields and rotates the session.
// Email and user name always change together.
func (s *AuthService) UpdateProfile(ctx context.Context, id *Identity, update ProfileUpdate) (*models.Session, *models.User, error) {
	if err := validation.ValidateEmail(update.Email); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateName("first_name", update.FirstName); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateName("last_name", update.LastName); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidatePhone(update.Phone); err != nil {
		return nil, nil, err
	}

	user, err := s.users.FindByID(ctx, id.User.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrNotFound
	}

	if models.NormalizeEmail(update.Email) != user.NormalizedEmail {
		existing, err := s.users.FindByEmail(ctx, update.Email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil && existing.ID != user.ID {
			return nil, nil, ErrDuplicateEmail
		}
		user.SetEmail(update.Email)
	}

	phone := strings.TrimSpace(update.Phone)
	if phone != user.Phone {
		user.Phone = phone
	}
	user.FirstName = strings.TrimSpace(update.FirstName)
	user.LastName = strings.TrimSpace(update.LastName)

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, ErrDuplicateEmail
		}
		return nil, nil, fmt.Errorf("failed to update user: %w", err)
	}

	session, err := s.RefreshSession(ctx, id.Session)
	if err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

// CleanupExpired removes expired sessions and credential tokens
func (s *AuthService) CleanupExpired(ctx context.Context) error {
	sessions, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	tokens, err := s.tokens.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if sessions > 0 || tokens > 0 {
		log.Printf("Cleanup removed %d sessions and %d credential tokens", sessions, tokens)
	}
	return nil
}

func (s *AuthService) createSession(ctx context.Context, userID int64, persistent bool) (*models.Session, error) {
	now := s.now()
	session := &models.Session{
		ID:         security.GenerateSessionID(),
		UserID:     userID,
		Persistent: persistent,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(s.cfg.SessionDuration),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// callbackURL builds {base}/Account/{action}?userId={id}&code={token}
func (s *AuthService) callbackURL(action string, userID int64, token string) string {
	q := url.Values{}
	q.Set("userId", strconv.FormatInt(userID, 10))
	q.Set("code", token)
	return s.cfg.AppBaseURL + "/Account/" + action + "?" + q.Encode()
}

// notify swallows transient delivery failures so the flow still completes
func (s *AuthService) notify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransient) {
		log.Printf("Email delivery failed, continuing: %v", err)
		return nil
	}
	return err
}
