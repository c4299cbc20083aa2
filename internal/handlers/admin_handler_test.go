package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpaportal/internal/models"
)

func signedInAdmin(t *testing.T, app *testApp) *browser {
	t.Helper()
	app.seedUser(t, "admin@firm.test", "adminpass", models.RoleAdmin)
	b := app.newBrowser(t)
	b.login("admin@firm.test", "adminpass")
	return b
}

func decodeJSON(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &out), body)
	return out
}

func TestAdminDashboard_Renders(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	resp, body := b.get("/Admin/Dashboard")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome, Test Admin")
	assert.Contains(t, body, "John Doe")
	assert.Contains(t, body, "friendly reminder")
}

func TestAdminGetClientDocuments(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	_, body := b.postWithCSRF("/Admin/GetClientDocuments", url.Values{"clientId": {"2"}})
	result := decodeJSON(t, body)
	assert.Equal(t, true, result["success"])
	client := result["client"].(map[string]interface{})
	assert.Equal(t, "Jane Smith", client["name"])
	assert.NotEmpty(t, result["documents"])

	_, body = b.postWithCSRF("/Admin/GetClientDocuments", url.Values{"clientId": {"404"}})
	result = decodeJSON(t, body)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, MsgClientNotFound, result["message"])
}

func TestAdminGetCategoryDocuments(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	_, body := b.postWithCSRF("/Admin/GetCategoryDocuments", url.Values{
		"clientId": {"1"},
		"category": {"W2"},
		"years":    {"2024", "2023"},
	})
	result := decodeJSON(t, body)

	assert.Equal(t, true, result["success"])
	docs := result["documents"].([]interface{})
	require.NotEmpty(t, docs)
	assert.Equal(t, "W2_Document_1.pdf", docs[0].(map[string]interface{})["fileName"])
}

func TestAdminSendReminder(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	_, body := b.postWithCSRF("/Admin/SendReminder", url.Values{
		"clientIds":    {"1", "3"},
		"emailContent": {""},
	})
	result := decodeJSON(t, body)

	assert.Equal(t, true, result["success"])
	assert.Equal(t, "Reminders sent to 2 clients", result["message"])

	mails := app.notifier.mails()
	require.Len(t, mails, 2)
	assert.Equal(t, "generic", mails[0].Kind)
	assert.ElementsMatch(t, []string{"john.doe@email.com", "mike.johnson@email.com"}, []string{mails[0].To, mails[1].To})
}

func TestAdminUpdateEmailTemplate(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	_, body := b.postWithCSRF("/Admin/UpdateEmailTemplate", url.Values{"template": {""}})
	assert.Equal(t, false, decodeJSON(t, body)["success"])

	_, body = b.postWithCSRF("/Admin/UpdateEmailTemplate", url.Values{"template": {"<p>Please upload your W2.</p>"}})
	result := decodeJSON(t, body)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, MsgTemplateUpdated, result["message"])

	_, page := b.get("/Admin/Dashboard")
	assert.Contains(t, page, "Please upload your W2.")
}

func TestAdminUpdateNotificationSettings(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	_, body := b.postWithCSRF("/Admin/UpdateNotificationSettings", url.Values{"emailNotifications": {"true"}})
	result := decodeJSON(t, body)

	assert.Equal(t, true, result["success"])
	assert.Equal(t, MsgSettingsUpdated, result["message"])
}

func TestAdminJSONEndpointsRequireCSRF(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	resp, _ := b.post("/Admin/SendReminder", url.Values{"clientIds": {"1"}})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, app.notifier.mails())
}

func TestAdminUpdateProfile(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "other@firm.test", "otherpass", models.RoleClient)
	b := signedInAdmin(t, app)
	before := b.sessionID()

	resp, body := b.postWithCSRF("/Admin/UpdateProfile", url.Values{
		"email":      {"OTHER@firm.test"},
		"first_name": {"Ada"},
		"last_name":  {"Admin"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, MsgEmailInUse)

	resp, _ = b.postWithCSRF("/Admin/UpdateProfile", url.Values{
		"email":      {"ada@firm.test"},
		"phone":      {"+1 555 010 0200"},
		"first_name": {"Ada"},
		"last_name":  {"Admin"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/Admin/Dashboard", location(resp))
	assert.NotEqual(t, before, b.sessionID(), "session should rotate")

	_, body = b.get("/Admin/Dashboard")
	assert.Contains(t, body, MsgProfileUpdated)
	assert.Contains(t, body, "Welcome, Ada Admin")

	user, err := app.users.FindByEmail(context.Background(), "ADA@FIRM.TEST")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ada@firm.test", user.UserName)
	assert.Equal(t, "+1 555 010 0200", user.Phone)
}

func TestAdminExportAccounts(t *testing.T) {
	app := newTestApp(t)
	app.seedUser(t, "client@firm.test", "clientpass", models.RoleClient)
	b := signedInAdmin(t, app)

	resp, body := b.get("/Admin/ExportAccounts")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	result := decodeJSON(t, body)
	assert.Len(t, result["accounts"], 2)
}

func TestAdminIndexAndLogoutAlias(t *testing.T) {
	app := newTestApp(t)
	b := signedInAdmin(t, app)

	resp, _ := b.get("/Admin")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/Admin/Dashboard", location(resp))

	resp, _ = b.get("/Admin/Logout")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", location(resp))
	assert.Empty(t, b.sessionID())
}
