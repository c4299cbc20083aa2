package handlers

import (
	"net/http"

	"cpaportal/internal/models"
)

// Handlers groups the HTTP handlers that make up the site
type Handlers struct {
	Middleware *Middleware
	Account    *AccountHandler
	Admin      *AdminHandler
	Client     *ClientHandler
	Home       *HomeHandler
}

// Routes registers every route on a new ServeMux. Static files are served
// from staticPath when it is non-empty.
func (h *Handlers) Routes(staticPath string) *http.ServeMux {
	m := h.Middleware
	mux := http.NewServeMux()

	if staticPath != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticPath))))
	}
	mux.HandleFunc("GET /healthz", Healthz)

	// Public pages
	mux.HandleFunc("GET /", m.OptionalAuth(h.Home.Index))
	mux.HandleFunc("GET /Home/AboutUs", m.OptionalAuth(h.Home.AboutUs))
	mux.HandleFunc("GET /Home/Services", m.OptionalAuth(h.Home.Services))
	mux.HandleFunc("GET /Home/ClientPortal", m.OptionalAuth(h.Home.ClientPortal))
	mux.HandleFunc("GET /Home/ContactUs", m.OptionalAuth(h.Home.ShowContactUs))
	mux.HandleFunc("POST /Home/ContactUs", m.RateLimit(m.OptionalAuth(h.Home.ContactUs)))

	// Account flows
	mux.HandleFunc("GET /Account/Login", m.OptionalAuth(h.Account.ShowLogin))
	mux.HandleFunc("POST /Account/Login", m.RateLimit(h.Account.Login))
	mux.HandleFunc("GET /Account/SetPassword", h.Account.ShowSetPassword)
	mux.HandleFunc("POST /Account/SetPassword", m.RateLimit(h.Account.SetPassword))
	mux.HandleFunc("GET /Account/ForgotPassword", h.Account.ShowForgotPassword)
	mux.HandleFunc("POST /Account/ForgotPassword", m.RateLimit(h.Account.ForgotPassword))
	mux.HandleFunc("GET /Account/ForgotPasswordConfirmation", h.Account.ForgotPasswordConfirmation)
	mux.HandleFunc("GET /Account/ResetPassword", h.Account.ShowResetPassword)
	mux.HandleFunc("POST /Account/ResetPassword", m.RateLimit(h.Account.ResetPassword))
	mux.HandleFunc("GET /Account/ResetPasswordConfirmation", h.Account.ResetPasswordConfirmation)

	// Signed-in account routes
	mux.HandleFunc("GET /Account/Logout", m.RequireAuth(h.Account.Logout))
	mux.HandleFunc("GET /Account/ChangePassword", m.RequireAuth(h.Account.ShowChangePassword))
	mux.HandleFunc("POST /Account/ChangePassword", m.RequireAuth(m.CSRFProtect(h.Account.ChangePassword)))
	mux.HandleFunc("GET /Account/AccessDenied", m.RequireAuth(h.Account.AccessDenied))
	mux.HandleFunc("GET /Admin/Logout", m.RequireAuth(h.Account.Logout))
	mux.HandleFunc("GET /ClientPortal/Logout", m.RequireAuth(h.Account.Logout))

	// Admin routes
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireRole(models.RoleAdmin, m.CSRFProtect(next))
	}
	mux.HandleFunc("GET /Account/InviteUser", admin(h.Account.ShowInviteUser))
	mux.HandleFunc("POST /Account/InviteUser", admin(h.Account.InviteUser))
	mux.HandleFunc("GET /Admin", admin(h.Admin.Index))
	mux.HandleFunc("GET /Admin/Dashboard", admin(h.Admin.Dashboard))
	mux.HandleFunc("GET /Admin/EditProfile", admin(h.Admin.EditProfile))
	mux.HandleFunc("POST /Admin/UpdateProfile", admin(h.Admin.UpdateProfile))
	mux.HandleFunc("GET /Admin/ExportAccounts", admin(h.Admin.ExportAccounts))
	mux.HandleFunc("POST /Admin/GetClientDocuments", admin(h.Admin.GetClientDocuments))
	mux.HandleFunc("POST /Admin/GetCategoryDocuments", admin(h.Admin.GetCategoryDocuments))
	mux.HandleFunc("POST /Admin/SendReminder", admin(h.Admin.SendReminder))
	mux.HandleFunc("POST /Admin/UpdateEmailTemplate", admin(h.Admin.UpdateEmailTemplate))
	mux.HandleFunc("POST /Admin/UpdateNotificationSettings", admin(h.Admin.UpdateNotificationSettings))

	// Client portal routes
	client := func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireRole(models.RoleClient, m.CSRFProtect(next))
	}
	mux.HandleFunc("GET /ClientPortal", m.OptionalAuth(h.Client.Index))
	mux.HandleFunc("GET /ClientPortal/Dashboard", client(h.Client.Dashboard))
	mux.HandleFunc("POST /ClientPortal/UploadFile", LimitUploadBody(client(h.Client.UploadFile)))
	mux.HandleFunc("POST /ClientPortal/UpdateProfile", client(h.Client.UpdateProfile))
	mux.HandleFunc("POST /ClientPortal/UpdateNotificationSettings", client(h.Client.UpdateNotificationSettings))

	return mux
}
