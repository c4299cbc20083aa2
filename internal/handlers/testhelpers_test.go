package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cpaportal/internal/database"
	"cpaportal/internal/models"
	"cpaportal/internal/repository"
	"cpaportal/internal/security"
	"cpaportal/internal/service"
)

const testSecret = "test-secret"

type sentMail struct {
	Kind    string
	To      string
	URL     string
	Subject string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) record(m sentMail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

func (n *recordingNotifier) SendInviteEmail(ctx context.Context, toEmail, callbackURL string) error {
	return n.record(sentMail{Kind: "invite", To: toEmail, URL: callbackURL})
}

func (n *recordingNotifier) SendPasswordResetEmail(ctx context.Context, toEmail, callbackURL string) error {
	return n.record(sentMail{Kind: "reset", To: toEmail, URL: callbackURL})
}

func (n *recordingNotifier) SendGenericEmail(ctx context.Context, toEmail, subject, htmlBody string) error {
	return n.record(sentMail{Kind: "generic", To: toEmail, Subject: subject})
}

func (n *recordingNotifier) mails() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sent...)
}

type testApp struct {
	server   *httptest.Server
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	notifier *recordingNotifier
	csrf     *security.CSRFGenerator
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWithLimit(t, 1000)
}

func newTestAppWithLimit(t *testing.T, loginLimit int) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(filepath.Join("..", "..", "migrations")))

	templates, err := LoadTemplates(filepath.Join("..", "templates"))
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	settings := repository.NewSettingsRepository(db)
	notifier := &recordingNotifier{}

	tokens := service.NewTokenService(repository.NewTokenRepository(db), 24*time.Hour)
	auth := service.NewAuthService(users, sessions, tokens, notifier, service.AuthConfig{
		AppBaseURL:      "http://portal.test",
		SessionDuration: 14 * 24 * time.Hour,
		MaxFailedLogins: 5,
		LockoutDuration: 30 * time.Minute,
	})
	dashboards := service.NewDashboardService(service.NewMockDocumentProvider(), settings, notifier)
	backups := service.NewBackupService(users, settings)

	csrf := security.NewCSRFGenerator(testSecret)
	render := NewRenderer(templates, security.NewFlashSigner(testSecret), csrf)
	app := &Handlers{
		Middleware: NewMiddleware(auth, csrf, security.NewRateLimiter(loginLimit, time.Minute)),
		Account:    NewAccountHandler(auth, render),
		Admin:      NewAdminHandler(auth, dashboards, backups, render),
		Client:     NewClientHandler(auth, dashboards, render),
		Home:       NewHomeHandler(render),
	}

	server := httptest.NewServer(app.Routes(""))
	t.Cleanup(server.Close)

	return &testApp{
		server:   server,
		users:    users,
		sessions: sessions,
		notifier: notifier,
		csrf:     csrf,
	}
}

// seedUser creates an active, confirmed account with a password
func (a *testApp) seedUser(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		PasswordHash:   hash,
		FirstName:      "Test",
		LastName:       string(role),
		EmailConfirmed: true,
		IsActive:       true,
	}
	user.SetEmail(email)
	require.NoError(t, a.users.CreateWithRole(context.Background(), user, role))
	return user
}

// browser is a cookie-keeping client that does not follow redirects
type browser struct {
	t      *testing.T
	app    *testApp
	client *http.Client
}

func (a *testApp) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		app: a,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.app.server.URL + path)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.app.server.URL+path, form)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

// postWithCSRF adds the CSRF token bound to the browser's current session
func (b *browser) postWithCSRF(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	token, err := b.app.csrf.GenerateToken(b.sessionID())
	require.NoError(b.t, err)
	form.Set(CSRFFormField, token)
	return b.post(path, form)
}

func (b *browser) sessionID() string {
	u, _ := url.Parse(b.app.server.URL)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	return ""
}

func (b *browser) login(email, password string) *http.Response {
	b.t.Helper()
	resp, _ := b.post("/Account/Login", url.Values{"email": {email}, "password": {password}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode, "login should redirect")
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// relativeLink strips scheme and host from an emailed link
func relativeLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.RequestURI()
}

func linkParams(t *testing.T, link string) (userID, code string) {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("userId"), u.Query().Get("code")
}

func location(resp *http.Response) string {
	return resp.Header.Get("Location")
}
