package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpaportal/internal/models"
)

func signedInClient(t *testing.T, app *testApp) *browser {
	t.Helper()
	app.seedUser(t, "client@firm.test", "clientpass", models.RoleClient)
	b := app.newBrowser(t)
	b.login("client@firm.test", "clientpass")
	return b
}

func TestClientDashboard_Renders(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	resp, body := b.get("/ClientPortal/Dashboard")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome, Test Client")
	assert.Contains(t, body, "Schedule_K1.pdf")
	assert.Contains(t, body, "client@firm.test")
}

func TestClientUpdateProfile_EmailAndPhone(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	resp, _ := b.postWithCSRF("/ClientPortal/UpdateProfile", url.Values{
		"email": {"renamed@firm.test"},
		"phone": {"555-010-0300"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/ClientPortal/Dashboard", location(resp))

	_, body := b.get("/ClientPortal/Dashboard")
	assert.Contains(t, body, MsgProfileUpdated)
	assert.Contains(t, body, "renamed@firm.test")

	app.newBrowser(t).login("renamed@firm.test", "clientpass")
}

func TestClientUpdateProfile_WithPasswordChange(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	resp, _ := b.postWithCSRF("/ClientPortal/UpdateProfile", url.Values{
		"email":            {"client@firm.test"},
		"current_password": {"wrong"},
		"new_password":     {"updated-pass"},
		"confirm_password": {"updated-pass"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := b.get("/ClientPortal/Dashboard")
	assert.Contains(t, body, MsgIncorrectPassword)

	resp, _ = b.postWithCSRF("/ClientPortal/UpdateProfile", url.Values{
		"email":            {"client@firm.test"},
		"current_password": {"clientpass"},
		"new_password":     {"updated-pass"},
		"confirm_password": {"updated-pass"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = b.get("/ClientPortal/Dashboard")
	assert.Contains(t, body, MsgProfileUpdated)

	app.newBrowser(t).login("client@firm.test", "updated-pass")
}

func TestClientUpdateProfile_RejectedEmailKeepsPassword(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "other@firm.test", "otherpass", models.RoleClient)
	b := signedInClient(t, app)

	resp, _ := b.postWithCSRF("/ClientPortal/UpdateProfile", url.Values{
		"email":            {"other@firm.test"},
		"current_password": {"clientpass"},
		"new_password":     {"updated-pass"},
		"confirm_password": {"updated-pass"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := b.get("/ClientPortal/Dashboard")
	assert.Contains(t, body, MsgEmailInUse)

	resp, body = app.newBrowser(t).post("/Account/Login", url.Values{"email": {"client@firm.test"}, "password": {"updated-pass"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, MsgInvalidLogin)

	app.newBrowser(t).login("client@firm.test", "clientpass")
}

func TestClientUpdateProfile_WrongPasswordKeepsEmail(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	resp, _ := b.postWithCSRF("/ClientPortal/UpdateProfile", url.Values{
		"email":            {"renamed@firm.test"},
		"current_password": {"wrong"},
		"new_password":     {"updated-pass"},
		"confirm_password": {"updated-pass"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := b.get("/ClientPortal/Dashboard")
	assert.Contains(t, body, MsgIncorrectPassword)
	assert.Contains(t, body, "client@firm.test")
	assert.NotContains(t, body, "renamed@firm.test")
}

func TestClientIndex(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.newBrowser(t).get("/ClientPortal")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Log in to the portal")

	b := signedInClient(t, app)
	resp, _ = b.get("/ClientPortal")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/ClientPortal/Dashboard", location(resp))
}

func TestClientLogoutAlias(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	resp, _ := b.get("/ClientPortal/Logout")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", location(resp))

	resp, _ = b.get("/ClientPortal/Dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, location(resp), "/Account/Login")
}

func TestClientUploadFile(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	token, err := app.csrf.GenerateToken(b.sessionID())
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("documentType", "W2"))
	part, err := mw.CreateFormFile("file", "w2.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/ClientPortal/UploadFile", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(CSRFHeaderName, token)

	resp, err := b.client.Do(req)
	require.NoError(t, err)
	result := decodeJSON(t, readBody(t, resp))

	assert.Equal(t, true, result["success"])
	assert.Equal(t, MsgUploadSucceeded, result["message"])
}

func TestClientUploadFile_TooLarge(t *testing.T) {
	limit := maxUploadBytes
	maxUploadBytes = 1024
	t.Cleanup(func() { maxUploadBytes = limit })

	app := newTestApp(t)
	b := signedInClient(t, app)

	token, err := app.csrf.GenerateToken(b.sessionID())
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "scan.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, app.server.URL+"/ClientPortal/UploadFile", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(CSRFHeaderName, token)

	resp, err := b.client.Do(req)
	require.NoError(t, err)
	result := decodeJSON(t, readBody(t, resp))

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, MsgUploadTooLarge, result["message"])
}

func TestClientUploadFile_MissingFile(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	_, body := b.postWithCSRF("/ClientPortal/UploadFile", url.Values{"documentType": {"W2"}})
	result := decodeJSON(t, body)

	assert.Equal(t, false, result["success"])
	assert.Equal(t, MsgUploadFailed, result["message"])
}

func TestClientUpdateNotificationSettings(t *testing.T) {
	app := newTestApp(t)
	b := signedInClient(t, app)

	_, body := b.postWithCSRF("/ClientPortal/UpdateNotificationSettings", url.Values{"smsNotifications": {"on"}})

	assert.Equal(t, MsgSettingsUpdated, decodeJSON(t, body)["message"])
}

func TestAdminWithoutClientRoleCannotUseClientPortal(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	resp, _ := b.get("/ClientPortal/Dashboard")

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/Account/AccessDenied", location(resp))
}
