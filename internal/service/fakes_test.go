package service

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"cpaportal/internal/models"
	"cpaportal/internal/repository"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[int64]*models.User)}
}

func (f *fakeUsers) copyOf(u *models.User) *models.User {
	c := *u
	c.Roles = append([]models.Role(nil), u.Roles...)
	return &c
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	norm := models.NormalizeEmail(email)
	for _, u := range f.byID {
		if u.NormalizedEmail == norm {
			return f.copyOf(u), nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return f.copyOf(u), nil
	}
	return nil, nil
}

func (f *fakeUsers) CreateWithRole(ctx context.Context, user *models.User, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.SetEmail(user.Email)
	for _, u := range f.byID {
		if u.NormalizedEmail == user.NormalizedEmail {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	user.Roles = []models.Role{role}
	f.byID[user.ID] = f.copyOf(user)
	return nil
}

func (f *fakeUsers) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.ID != user.ID && u.NormalizedEmail == user.NormalizedEmail {
			return repository.ErrDuplicate
		}
	}
	stored := f.byID[user.ID]
	updated := f.copyOf(user)
	updated.PasswordHash = stored.PasswordHash
	f.byID[user.ID] = updated
	return nil
}

func (f *fakeUsers) SetPassword(ctx context.Context, userID int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[userID].PasswordHash = passwordHash
	return nil
}

func (f *fakeUsers) AddToRole(ctx context.Context, userID int64, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[userID]
	if !u.HasRole(role) {
		u.Roles = append(u.Roles, role)
	}
	return nil
}

func (f *fakeUsers) IsInRole(ctx context.Context, userID int64, role models.Role) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[userID].HasRole(role), nil
}

func (f *fakeUsers) RecordLoginFailure(ctx context.Context, userID int64, maxFailed int, lockout time.Duration, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[userID]
	u.FailedLoginCount++
	if maxFailed > 0 && u.FailedLoginCount >= maxFailed {
		end := now.Add(lockout)
		u.LockoutEnd = &end
		u.FailedLoginCount = 0
		return true, nil
	}
	return false, nil
}

func (f *fakeUsers) ResetLoginFailures(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID[userID]
	u.FailedLoginCount = 0
	u.LockoutEnd = nil
	return nil
}

func (f *fakeUsers) passwordHash(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].PasswordHash
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]*models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[string]*models.Session)}
}

func (f *fakeSessions) Create(ctx context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *session
	f.byID[session.ID] = &c
	return nil
}

func (f *fakeSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (f *fakeSessions) Touch(ctx context.Context, id string, lastSeen, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok {
		s.LastSeenAt = lastSeen
		s.ExpiresAt = expiresAt
	}
	return nil
}

func (f *fakeSessions) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeSessions) DeleteForUser(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteForUser(userID)
	return nil
}

func (f *fakeSessions) deleteForUser(userID int64) {
	for id, s := range f.byID {
		if s.UserID == userID {
			delete(f.byID, id)
		}
	}
}

func (f *fakeSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.byID {
		if s.IsExpired(now) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) countForUser(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.byID {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

// fakeTokens mirrors the SQL store: consumption, the password write and
// session cleanup happen under one lock.
type fakeTokens struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*models.CredentialToken
	users    *fakeUsers
	sessions *fakeSessions
}

func newFakeTokens(users *fakeUsers, sessions *fakeSessions) *fakeTokens {
	return &fakeTokens{byID: make(map[int64]*models.CredentialToken), users: users, sessions: sessions}
}

func (f *fakeTokens) Create(ctx context.Context, token *models.CredentialToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.byID {
		if t.UserID == token.UserID && t.Purpose == token.Purpose && !t.IsConsumed() {
			delete(f.byID, id)
		}
	}
	f.nextID++
	token.ID = f.nextID
	c := *token
	f.byID[token.ID] = &c
	return nil
}

func (f *fakeTokens) FindByHash(ctx context.Context, tokenHash string) (*models.CredentialToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.byID {
		if t.TokenHash == tokenHash {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeTokens) ConsumeWithPassword(ctx context.Context, token *models.CredentialToken, passwordHash string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[token.ID]
	if !ok || t.UserID != token.UserID || t.IsConsumed() || t.IsExpired(now) {
		return repository.ErrNotConsumable
	}
	consumed := now
	t.ConsumedAt = &consumed
	for id, other := range f.byID {
		if other.UserID == t.UserID && id != t.ID && !other.IsConsumed() {
			delete(f.byID, id)
		}
	}
	if err := f.users.SetPassword(ctx, t.UserID, passwordHash); err != nil {
		return err
	}
	f.sessions.mu.Lock()
	f.sessions.deleteForUser(t.UserID)
	f.sessions.mu.Unlock()
	return nil
}

func (f *fakeTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.byID {
		if t.IsExpired(now) || t.IsConsumed() {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

type sentEmail struct {
	Kind     string
	To       string
	URL      string
	Subject  string
	HTMLBody string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeNotifier) record(e sentEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return f.err
}

func (f *fakeNotifier) SendInviteEmail(ctx context.Context, toEmail, callbackURL string) error {
	return f.record(sentEmail{Kind: "invite", To: toEmail, URL: callbackURL})
}

func (f *fakeNotifier) SendPasswordResetEmail(ctx context.Context, toEmail, callbackURL string) error {
	return f.record(sentEmail{Kind: "reset", To: toEmail, URL: callbackURL})
}

func (f *fakeNotifier) SendGenericEmail(ctx context.Context, toEmail, subject, htmlBody string) error {
	return f.record(sentEmail{Kind: "generic", To: toEmail, Subject: subject, HTMLBody: htmlBody})
}

func (f *fakeNotifier) emails() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	auth     *AuthService
	tokens   *TokenService
	users    *fakeUsers
	sessions *fakeSessions
	store    *fakeTokens
	notifier *fakeNotifier
	clock    *fakeClock
}

const testBaseURL = "https://portal.example.com"

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakeUsers()
	sessions := newFakeSessions()
	store := newFakeTokens(users, sessions)
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	tokens := NewTokenService(store, 24*time.Hour)
	tokens.SetClock(clock.Now)

	auth := NewAuthService(users, sessions, tokens, notifier, AuthConfig{
		AppBaseURL:      testBaseURL + "/",
		SessionDuration: 14 * 24 * time.Hour,
		MaxFailedLogins: 3,
		LockoutDuration: 30 * time.Minute,
	})
	auth.SetClock(clock.Now)

	return &authFixture{
		auth:     auth,
		tokens:   tokens,
		users:    users,
		sessions: sessions,
		store:    store,
		notifier: notifier,
		clock:    clock,
	}
}

// callbackParams extracts userId and code from an emailed link
func callbackParams(t *testing.T, link string) (path, userID, code string) {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("invalid callback url %q: %v", link, err)
	}
	return u.Path, u.Query().Get("userId"), u.Query().Get("code")
}
