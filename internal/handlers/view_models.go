package handlers

import (
	"html/template"
	"log"
	"net/http"
	"time"

	"cpaportal/internal/models"
	"cpaportal/internal/security"
	"cpaportal/internal/service"
)

// Flash is a one-shot message carried across a redirect
type Flash struct {
	Kind    string
	Message string
}

// Page holds the fields every layout needs
type Page struct {
	Title     string
	User      *models.User
	IsAdmin   bool
	CSRFToken string
	Flash     *Flash
	Error     string
}

func (p *Page) page() *Page { return p }

type pageData interface {
	page() *Page
}

type LoginViewData struct {
	Page
	Email      string
	RememberMe bool
	ReturnURL  string
}

type InviteUserViewData struct {
	Page
	Email     string
	FirstName string
	LastName  string
}

type SetPasswordViewData struct {
	Page
	UserID string
	Code   string
}

type ForgotPasswordViewData struct {
	Page
	Email string
}

type ResetPasswordViewData struct {
	Page
	UserID string
	Code   string
	Email  string
}

type ChangePasswordViewData struct {
	Page
}

type MessageViewData struct {
	Page
	Heading string
	Message string
}

type AdminDashboardViewData struct {
	Page
	Dashboard *service.AdminDashboard
}

type EditProfileViewData struct {
	Page
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

type ClientDashboardViewData struct {
	Page
	Dashboard *service.ClientDashboard
	Email     string
	Phone     string
}

type HomeViewData struct {
	Page
	Testimonials []models.Testimonial
}

type ServicesViewData struct {
	Page
	Services []models.ServiceOffering
}

type ContactViewData struct {
	Page
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// Renderer executes page templates and fills in the shared layout fields
type Renderer struct {
	templates *template.Template
	flash     *security.FlashSigner
	csrf      *security.CSRFGenerator
}

// NewRenderer creates a new renderer
func NewRenderer(templates *template.Template, flash *security.FlashSigner, csrf *security.CSRFGenerator) *Renderer {
	return &Renderer{templates: templates, flash: flash, csrf: csrf}
}

// Render writes the named template with status 200
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	rd.RenderStatus(w, r, http.StatusOK, name, data)
}

// RenderStatus writes the named template with the given status
func (rd *Renderer) RenderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	p := data.page()
	if id := GetIdentityFromContext(r.Context()); id != nil {
		p.User = id.User
		p.IsAdmin = id.User.HasRole(models.RoleAdmin)
		if token, err := rd.csrf.GenerateToken(id.Session.ID); err == nil {
			p.CSRFToken = token
		}
	}
	if p.Flash == nil {
		p.Flash = rd.popFlash(w, r)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := rd.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s template: %v", name, err)
	}
}

// SetFlash stores a message to show on the next rendered page
func (rd *Renderer) SetFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	value, err := rd.flash.Sign(kind, message)
	if err != nil {
		log.Printf("Error signing flash message: %v", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(5 * time.Minute),
	})
}

func (rd *Renderer) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, security.CreateDeleteCookie(r, FlashCookieName))

	kind, message, err := rd.flash.Verify(cookie.Value)
	if err != nil {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}
