package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cpaportal/internal/service"
	"cpaportal/internal/validation"
)

// AdminHandler handles the administrator dashboard and its JSON endpoints
type AdminHandler struct {
	authService      *service.AuthService
	dashboardService *service.DashboardService
	backupService    *service.BackupService
	render           *Renderer
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *service.AuthService, dashboardService *service.DashboardService, backupService *service.BackupService, render *Renderer) *AdminHandler {
	return &AdminHandler{
		authService:      authService,
		dashboardService: dashboardService,
		backupService:    backupService,
		render:           render,
	}
}

// Index redirects to the admin dashboard
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/Admin/Dashboard", http.StatusSeeOther)
}

// Dashboard shows uploads, clients and the reminder template
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	dashboard, err := h.dashboardService.AdminDashboard(r.Context(), user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading admin dashboard", err)
		return
	}

	h.render.Render(w, r, "admin_dashboard.tmpl", &AdminDashboardViewData{
		Page:      Page{Title: "Admin Dashboard"},
		Dashboard: dashboard,
	})
}

// EditProfile shows the administrator's profile form
func (h *AdminHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	h.render.Render(w, r, "edit_profile.tmpl", &EditProfileViewData{
		Page:      Page{Title: "Edit Profile"},
		Email:     user.Email,
		Phone:     user.Phone,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// UpdateProfile saves the administrator's profile
func (h *AdminHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	id := GetIdentityFromContext(r.Context())
	update := service.ProfileUpdate{
		Email:     strings.TrimSpace(r.FormValue("email")),
		Phone:     strings.TrimSpace(r.FormValue("phone")),
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
	}

	session, _, err := h.authService.UpdateProfile(r.Context(), id, update)
	if err != nil {
		msg, ok := formError(err)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error updating admin profile", err)
			return
		}
		h.render.Render(w, r, "edit_profile.tmpl", &EditProfileViewData{
			Page:      Page{Title: "Edit Profile", Error: msg},
			Email:     update.Email,
			Phone:     update.Phone,
			FirstName: update.FirstName,
			LastName:  update.LastName,
		})
		return
	}

	setSessionCookie(w, r, session)
	h.render.SetFlash(w, r, FlashSuccess, MsgProfileUpdated)
	http.Redirect(w, r, "/Admin/Dashboard", http.StatusSeeOther)
}

// GetClientDocuments returns a client's document categories
func (h *AdminHandler) GetClientDocuments(w http.ResponseWriter, r *http.Request) {
	clientID, err := strconv.Atoi(r.FormValue("clientId"))
	if err != nil {
		writeJSON(w, http.StatusOK, jsonResult{Success: false, Message: MsgClientNotFound})
		return
	}

	client, docs, err := h.dashboardService.ClientDocuments(r.Context(), clientID)
	if err != nil {
		respondWithJSONError(w, "Error loading client documents", err)
		return
	}
	if client == nil {
		writeJSON(w, http.StatusOK, jsonResult{Success: false, Message: MsgClientNotFound})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"client":    client,
		"documents": docs,
	})
}

// GetCategoryDocuments lists a client's documents in one category
func (h *AdminHandler) GetCategoryDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResult{Success: false, Message: ErrInvalidFormData})
		return
	}

	clientID, err := strconv.Atoi(r.FormValue("clientId"))
	if err != nil {
		writeJSON(w, http.StatusOK, jsonResult{Success: false, Message: MsgClientNotFound})
		return
	}
	years := parseInts(r.Form["years"])

	docs, err := h.dashboardService.CategoryDocuments(r.Context(), clientID, r.FormValue("category"), years)
	if err != nil {
		respondWithJSONError(w, "Error loading category documents", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"documents": docs,
	})
}

// SendReminder emails the selected clients a document reminder
func (h *AdminHandler) SendReminder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, jsonResult{Success: false, Message: ErrInvalidFormData})
		return
	}

	clientIDs := parseInts(r.Form["clientIds"])
	sent, err := h.dashboardService.SendReminders(r.Context(), clientIDs, strings.TrimSpace(r.FormValue("emailContent")))
	if err != nil {
		respondWithJSONError(w, "Error sending reminders", err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResult{
		Success: true,
		Message: fmt.Sprintf("Reminders sent to %d clients", sent),
	})
}

// UpdateEmailTemplate stores the reminder email body
func (h *AdminHandler) UpdateEmailTemplate(w http.ResponseWriter, r *http.Request) {
	err := h.dashboardService.UpdateReminderTemplate(r.Context(), r.FormValue("template"))
	if err != nil {
		var vErr validation.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusOK, jsonResult{Success: false, Message: vErr.Message})
			return
		}
		respondWithJSONError(w, "Error updating email template", err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResult{Success: true, Message: MsgTemplateUpdated})
}

// UpdateNotificationSettings acknowledges the admin notification toggles
func (h *AdminHandler) UpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	settings := parseNotificationSettings(r)
	log.Printf("Admin %d notification settings: %+v", GetUserFromContext(r.Context()).ID, settings)
	writeJSON(w, http.StatusOK, jsonResult{Success: true, Message: MsgSettingsUpdated})
}

// ExportAccounts downloads every account as JSON
func (h *AdminHandler) ExportAccounts(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("cpaportal_accounts_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.backupService.ExportToWriter(r.Context(), w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export accounts", "Error exporting accounts", err)
		return
	}

	log.Printf("Accounts exported by admin user %d", user.ID)
}

// parseInts reads integers from repeated or comma-separated form values,
// skipping anything that does not parse.
func parseInts(values []string) []int {
	var out []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}
