package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketingPages(t *testing.T) {
	app := newTestApp(t)
	b := app.newBrowser(t)

	tests := []struct {
		path string
		want string
	}{
		{"/", "Michael Chen"},
		{"/Home/AboutUs", "About Us"},
		{"/Home/Services", "Payroll Services"},
		{"/Home/ClientPortal", "Log in to the portal"},
		{"/Home/ContactUs", "Contact Us"},
	}

	for _, tt := range tests {
		resp, body := b.get(tt.path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, tt.path)
		assert.Contains(t, body, tt.want, tt.path)
	}

	resp, _ := b.get("/no-such-page")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContactUs(t *testing.T) {
	app := newTestApp(t)
	b := app.newBrowser(t)

	form := url.Values{
		"name":    {"Pat Doe"},
		"email":   {"not-an-email"},
		"phone":   {"555-010-0100"},
		"subject": {"Tax question"},
		"message": {"Do I need to file?"},
	}
	resp, body := b.post("/Home/ContactUs", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "invalid email format")
	assert.Contains(t, body, "Pat Doe")

	form.Set("email", "pat@example.com")
	resp, _ = b.post("/Home/ContactUs", form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/Home/ContactUs", location(resp))

	_, body = b.get("/Home/ContactUs")
	assert.Contains(t, body, "Thank you for your message.")
}

func TestValidateContact(t *testing.T) {
	valid := ContactViewData{
		Name:    "Pat Doe",
		Email:   "pat@example.com",
		Phone:   "555-010-0100",
		Subject: "Tax question",
		Message: "Hello",
	}
	assert.NoError(t, validateContact(&valid))

	tests := []struct {
		name   string
		mutate func(*ContactViewData)
	}{
		{"missing name", func(d *ContactViewData) { d.Name = "" }},
		{"bad email", func(d *ContactViewData) { d.Email = "nope" }},
		{"missing phone", func(d *ContactViewData) { d.Phone = "" }},
		{"bad phone", func(d *ContactViewData) { d.Phone = "call me" }},
		{"missing subject", func(d *ContactViewData) { d.Subject = "" }},
		{"missing message", func(d *ContactViewData) { d.Message = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			assert.Error(t, validateContact(&d))
		})
	}
}
