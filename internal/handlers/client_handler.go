package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"cpaportal/internal/models"
	"cpaportal/internal/service"
	"cpaportal/internal/validation"
)

var maxUploadBytes int64 = 32 << 20

// ClientHandler handles the client portal
type ClientHandler struct {
	authService      *service.AuthService
	dashboardService *service.DashboardService
	render           *Renderer
}

// NewClientHandler creates a new client handler
func NewClientHandler(authService *service.AuthService, dashboardService *service.DashboardService, render *Renderer) *ClientHandler {
	return &ClientHandler{
		authService:      authService,
		dashboardService: dashboardService,
		render:           render,
	}
}

// Index sends signed-in users to their dashboard and shows the portal
// landing page to everyone else.
func (h *ClientHandler) Index(w http.ResponseWriter, r *http.Request) {
	if user := GetUserFromContext(r.Context()); user != nil {
		http.Redirect(w, r, service.DashboardFor(user), http.StatusSeeOther)
		return
	}
	h.render.Render(w, r, "client_portal.tmpl", &MessageViewData{Page: Page{Title: "Client Portal"}})
}

// Dashboard shows the client's recent uploads and profile
func (h *ClientHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	dashboard, err := h.dashboardService.ClientDashboard(r.Context(), user)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error loading client dashboard", err)
		return
	}

	h.render.Render(w, r, "client_dashboard.tmpl", &ClientDashboardViewData{
		Page:      Page{Title: "Client Portal"},
		Dashboard: dashboard,
		Email:     user.Email,
		Phone:     user.Phone,
	})
}

// LimitUploadBody caps the request body before anything reads the form,
// including the CSRF check.
func LimitUploadBody(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		next(w, r)
	}
}

// UploadFile accepts a document upload. Files are not stored yet.
func (h *ClientHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, jsonResult{Success: false, Message: MsgUploadTooLarge})
			return
		}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusOK, jsonResult{Success: false, Message: MsgUploadFailed})
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeJSON(w, http.StatusOK, jsonResult{Success: false, Message: MsgUploadFailed})
		return
	}

	log.Printf("Client %d uploaded %q (%s, %d bytes)", GetUserFromContext(r.Context()).ID, header.Filename, r.FormValue("documentType"), header.Size)
	writeJSON(w, http.StatusOK, jsonResult{Success: true, Message: MsgUploadSucceeded})
}

// UpdateProfile saves the client's email and phone, and changes the password
// when a new one is given. Every check runs before the first write so a
// rejected request leaves both the profile and the password untouched.
func (h *ClientHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	id := GetIdentityFromContext(r.Context())
	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	if newPassword != "" {
		if err := validation.ValidatePasswordConfirmation(newPassword, r.FormValue("confirm_password")); err != nil {
			h.profileError(w, r, err)
			return
		}
		if err := h.authService.VerifyPasswordChange(r.Context(), id, currentPassword, newPassword); err != nil {
			h.profileError(w, r, err)
			return
		}
	}

	session, user, err := h.authService.UpdateProfile(r.Context(), id, service.ProfileUpdate{
		Email:     strings.TrimSpace(r.FormValue("email")),
		Phone:     strings.TrimSpace(r.FormValue("phone")),
		FirstName: id.User.FirstName,
		LastName:  id.User.LastName,
	})
	if err != nil {
		h.profileError(w, r, err)
		return
	}

	if newPassword != "" {
		setSessionCookie(w, r, session)
		session, err = h.authService.ChangePassword(r.Context(), &service.Identity{Session: session, User: user}, currentPassword, newPassword)
		if err != nil {
			h.profileError(w, r, err)
			return
		}
	}

	setSessionCookie(w, r, session)
	h.render.SetFlash(w, r, FlashSuccess, MsgProfileUpdated)
	http.Redirect(w, r, "/ClientPortal/Dashboard", http.StatusSeeOther)
}

// UpdateNotificationSettings acknowledges the client notification toggles
func (h *ClientHandler) UpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	settings := parseNotificationSettings(r)
	log.Printf("Client %d notification settings: %+v", GetUserFromContext(r.Context()).ID, settings)
	writeJSON(w, http.StatusOK, jsonResult{Success: true, Message: MsgSettingsUpdated})
}

func (h *ClientHandler) profileError(w http.ResponseWriter, r *http.Request, err error) {
	msg, ok := formError(err)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error updating client profile", err)
		return
	}
	h.render.SetFlash(w, r, FlashError, msg)
	http.Redirect(w, r, "/ClientPortal/Dashboard", http.StatusSeeOther)
}

func parseNotificationSettings(r *http.Request) models.NotificationSettings {
	return models.NotificationSettings{
		EmailNotifications:         isChecked(r.FormValue("emailNotifications")),
		SMSNotifications:           isChecked(r.FormValue("smsNotifications")),
		FileProcessedNotifications: isChecked(r.FormValue("fileProcessedNotifications")),
		TaxDeadlineReminders:       isChecked(r.FormValue("taxDeadlineReminders")),
		AppointmentReminders:       isChecked(r.FormValue("appointmentReminders")),
	}
}
