package handlers

import (
	"net/http"
	"strings"

	"cpaportal/internal/models"
	"cpaportal/internal/validation"
)

var testimonials = []models.Testimonial{
	{
		Name:    "Sarah Johnson",
		Company: "Johnson Enterprises",
		Message: "Their expertise in tax planning saved our company thousands. The attention to detail is exceptional.",
		Rating:  5,
	},
	{
		Name:    "Michael Chen",
		Company: "Tech Startup Inc.",
		Message: "Professional, reliable, and always available when we need guidance. Highly recommended!",
		Rating:  5,
	},
	{
		Name:    "Lisa Rodriguez",
		Company: "Rodriguez Consulting",
		Message: "Outstanding service and clear communication. Complex tax matters finally make sense.",
		Rating:  5,
	},
}

var serviceOfferings = []models.ServiceOffering{
	{
		Title:       "Tax Preparation & Planning",
		Icon:        "fas fa-calculator",
		Description: "Comprehensive tax preparation for individuals and businesses, including strategic tax planning to minimize your tax liability and maximize deductions.",
	},
	{
		Title:       "Bookkeeping Services",
		Icon:        "fas fa-book",
		Description: "Professional bookkeeping services to keep your financial records accurate and up-to-date, including QuickBooks setup and training.",
	},
	{
		Title:       "Financial Consulting",
		Icon:        "fas fa-chart-line",
		Description: "Expert financial advice and consulting services to help you make informed business decisions and achieve your financial goals.",
	},
	{
		Title:       "Audit & Assurance",
		Icon:        "fas fa-shield-alt",
		Description: "Independent audit and assurance services to provide confidence in your financial statements and compliance with regulations.",
	},
	{
		Title:       "Business Formation",
		Icon:        "fas fa-building",
		Description: "Guidance on business structure selection, incorporation services, and ongoing compliance requirements for new businesses.",
	},
	{
		Title:       "Payroll Services",
		Icon:        "fas fa-users",
		Description: "Complete payroll processing services including tax withholdings, direct deposits, and quarterly reporting.",
	},
}

// HomeHandler serves the public marketing pages
type HomeHandler struct {
	render *Renderer
}

// NewHomeHandler creates a new home handler
func NewHomeHandler(render *Renderer) *HomeHandler {
	return &HomeHandler{render: render}
}

// Index renders the landing page
func (h *HomeHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render.Render(w, r, "home.tmpl", &HomeViewData{
		Page:         Page{Title: "Home"},
		Testimonials: testimonials,
	})
}

// AboutUs renders the about page
func (h *HomeHandler) AboutUs(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "about.tmpl", &MessageViewData{Page: Page{Title: "About Us"}})
}

// Services renders the services page
func (h *HomeHandler) Services(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "services.tmpl", &ServicesViewData{
		Page:     Page{Title: "Services"},
		Services: serviceOfferings,
	})
}

// ClientPortal renders the portal landing page with the login link
func (h *HomeHandler) ClientPortal(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "client_portal.tmpl", &MessageViewData{Page: Page{Title: "Client Portal"}})
}

// ShowContactUs renders the contact form
func (h *HomeHandler) ShowContactUs(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "contact.tmpl", &ContactViewData{Page: Page{Title: "Contact Us"}})
}

// ContactUs validates the contact form. Messages are acknowledged but not stored.
func (h *HomeHandler) ContactUs(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	data := &ContactViewData{
		Page:    Page{Title: "Contact Us"},
		Name:    strings.TrimSpace(r.FormValue("name")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Phone:   strings.TrimSpace(r.FormValue("phone")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}

	if err := validateContact(data); err != nil {
		msg, _ := formError(err)
		data.Error = msg
		h.render.Render(w, r, "contact.tmpl", data)
		return
	}

	h.render.SetFlash(w, r, FlashSuccess, MsgContactThanks)
	http.Redirect(w, r, "/Home/ContactUs", http.StatusSeeOther)
}

func validateContact(data *ContactViewData) error {
	if err := validation.ValidateRequired("name", data.Name, validation.MaxNameLength); err != nil {
		return err
	}
	if err := validation.ValidateEmail(data.Email); err != nil {
		return err
	}
	if err := validation.ValidateRequired("phone", data.Phone, 0); err != nil {
		return err
	}
	if err := validation.ValidatePhone(data.Phone); err != nil {
		return err
	}
	if err := validation.ValidateRequired("subject", data.Subject, validation.MaxNameLength); err != nil {
		return err
	}
	return validation.ValidateRequired("message", data.Message, validation.MaxMessageLength)
}
