package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"cpaportal/internal/security"
	"cpaportal/internal/service"
	"cpaportal/internal/validation"
)

// AccountHandler handles sign-in and the credential flows under /Account
type AccountHandler struct {
	authService *service.AuthService
	render      *Renderer
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *service.AuthService, render *Renderer) *AccountHandler {
	return &AccountHandler{
		authService: authService,
		render:      render,
	}
}

// ShowLogin renders the login page, or sends a signed-in user to their dashboard
func (h *AccountHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if user := GetUserFromContext(r.Context()); user != nil {
		http.Redirect(w, r, service.DashboardFor(user), http.StatusSeeOther)
		return
	}

	h.render.Render(w, r, "login.tmpl", &LoginViewData{
		Page:      Page{Title: "Log in"},
		ReturnURL: r.URL.Query().Get("ReturnUrl"),
	})
}

// Login handles login form submission
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	rememberMe := isChecked(r.FormValue("remember_me"))
	returnURL := r.FormValue("return_url")
	if returnURL == "" {
		returnURL = r.URL.Query().Get("ReturnUrl")
	}

	session, user, err := h.authService.Login(r.Context(), email, password, rememberMe)
	if err != nil {
		msg, ok := formError(err)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error during login", err)
			return
		}
		h.render.Render(w, r, "login.tmpl", &LoginViewData{
			Page:       Page{Title: "Log in", Error: msg},
			Email:      email,
			RememberMe: rememberMe,
			ReturnURL:  returnURL,
		})
		return
	}

	h.endCurrentSession(r)
	setSessionCookie(w, r, session)
	http.Redirect(w, r, service.RedirectAfterLogin(user, returnURL), http.StatusSeeOther)
}

// Logout ends the current session
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.endCurrentSession(r)
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowInviteUser renders the invite form
func (h *AccountHandler) ShowInviteUser(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "invite_user.tmpl", &InviteUserViewData{
		Page: Page{Title: "Invite Client"},
	})
}

// InviteUser creates a client account and emails the set-password link
func (h *AccountHandler) InviteUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	data := &InviteUserViewData{
		Page:      Page{Title: "Invite Client"},
		Email:     strings.TrimSpace(r.FormValue("email")),
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
	}

	if _, err := h.authService.InviteUser(r.Context(), data.Email, data.FirstName, data.LastName); err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			data.Error = MsgInviteEmailInUse
			h.render.Render(w, r, "invite_user.tmpl", data)
			return
		}
		msg, ok := formError(err)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error inviting user", err)
			return
		}
		data.Error = msg
		h.render.Render(w, r, "invite_user.tmpl", data)
		return
	}

	h.render.SetFlash(w, r, FlashSuccess, fmt.Sprintf("Invitation email sent to %s", data.Email))
	http.Redirect(w, r, "/Account/InviteUser", http.StatusSeeOther)
}

// ShowSetPassword renders the form behind an invite link
func (h *AccountHandler) ShowSetPassword(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	code := r.URL.Query().Get("code")
	if userID == "" || code == "" {
		http.Redirect(w, r, "/Account/Login", http.StatusSeeOther)
		return
	}

	h.render.Render(w, r, "set_password.tmpl", &SetPasswordViewData{
		Page:   Page{Title: "Set Password"},
		UserID: userID,
		Code:   code,
	})
}

// SetPassword stores the first password and signs the user in
func (h *AccountHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	data := &SetPasswordViewData{
		Page:   Page{Title: "Set Password"},
		UserID: r.FormValue("user_id"),
		Code:   r.FormValue("code"),
	}
	password := r.FormValue("password")

	fail := func(err error) {
		msg, ok := formError(err)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error setting password", err)
			return
		}
		data.Error = msg
		h.render.Render(w, r, "set_password.tmpl", data)
	}

	if err := validation.ValidatePasswordConfirmation(password, r.FormValue("confirm_password")); err != nil {
		fail(err)
		return
	}
	userID, err := strconv.ParseInt(data.UserID, 10, 64)
	if err != nil {
		fail(service.ErrInvalidToken)
		return
	}

	session, user, err := h.authService.SetPassword(r.Context(), userID, data.Code, password)
	if err != nil {
		fail(err)
		return
	}

	h.endCurrentSession(r)
	setSessionCookie(w, r, session)
	http.Redirect(w, r, service.DashboardFor(user), http.StatusSeeOther)
}

// ShowForgotPassword renders the forgot-password form
func (h *AccountHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "forgot_password.tmpl", &ForgotPasswordViewData{
		Page: Page{Title: "Forgot your password?"},
	})
}

// ForgotPassword sends a reset link. The response never reveals whether the
// address has an account.
func (h *AccountHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	if err := h.authService.ForgotPassword(r.Context(), email); err != nil {
		var vErr validation.ValidationError
		if errors.As(err, &vErr) {
			h.render.Render(w, r, "forgot_password.tmpl", &ForgotPasswordViewData{
				Page:  Page{Title: "Forgot your password?", Error: vErr.Message},
				Email: email,
			})
			return
		}
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error requesting password reset", err)
		return
	}

	http.Redirect(w, r, "/Account/ForgotPasswordConfirmation", http.StatusSeeOther)
}

// ForgotPasswordConfirmation tells the user to check their inbox
func (h *AccountHandler) ForgotPasswordConfirmation(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "message.tmpl", &MessageViewData{
		Page:    Page{Title: "Forgot password confirmation"},
		Heading: "Check your email",
		Message: "If an account exists for that address, we have sent a link to reset your password.",
	})
}

// ShowResetPassword renders the form behind a reset link
func (h *AccountHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	code := r.URL.Query().Get("code")
	if userID == "" || code == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.render.Render(w, r, "reset_password.tmpl", &ResetPasswordViewData{
		Page:   Page{Title: "Reset password"},
		UserID: userID,
		Code:   code,
	})
}

// ResetPassword sets a new password from a reset link. The user signs in
// again afterwards.
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	data := &ResetPasswordViewData{
		Page:   Page{Title: "Reset password"},
		UserID: r.FormValue("user_id"),
		Code:   r.FormValue("code"),
		Email:  strings.TrimSpace(r.FormValue("email")),
	}
	password := r.FormValue("password")

	err := validation.ValidatePasswordConfirmation(password, r.FormValue("confirm_password"))
	if err == nil {
		userID, parseErr := strconv.ParseInt(data.UserID, 10, 64)
		if parseErr != nil {
			err = service.ErrInvalidToken
		} else {
			err = h.authService.ResetPassword(r.Context(), userID, data.Code, password)
		}
	}
	if err != nil {
		msg, ok := formError(err)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error resetting password", err)
			return
		}
		data.Error = msg
		h.render.Render(w, r, "reset_password.tmpl", data)
		return
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	http.Redirect(w, r, "/Account/ResetPasswordConfirmation", http.StatusSeeOther)
}

// ResetPasswordConfirmation confirms the reset and links to the login page
func (h *AccountHandler) ResetPasswordConfirmation(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "message.tmpl", &MessageViewData{
		Page:    Page{Title: "Reset password confirmation"},
		Heading: "Password reset",
		Message: "Your password has been reset. Please log in with your new password.",
	})
}

// ShowChangePassword renders the change-password form
func (h *AccountHandler) ShowChangePassword(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "change_password.tmpl", &ChangePasswordViewData{
		Page: Page{Title: "Change Password"},
	})
}

// ChangePassword replaces the signed-in user's password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	id := GetIdentityFromContext(r.Context())
	newPassword := r.FormValue("new_password")

	err := validation.ValidatePasswordConfirmation(newPassword, r.FormValue("confirm_password"))
	if err == nil {
		session, changeErr := h.authService.ChangePassword(r.Context(), id, r.FormValue("old_password"), newPassword)
		if changeErr == nil {
			setSessionCookie(w, r, session)
			h.render.SetFlash(w, r, FlashSuccess, MsgPasswordChanged)
			http.Redirect(w, r, service.DashboardFor(id.User), http.StatusSeeOther)
			return
		}
		err = changeErr
	}

	msg, ok := formError(err)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error changing password", err)
		return
	}
	h.render.Render(w, r, "change_password.tmpl", &ChangePasswordViewData{
		Page: Page{Title: "Change Password", Error: msg},
	})
}

// AccessDenied tells a signed-in user the page needs another role
func (h *AccountHandler) AccessDenied(w http.ResponseWriter, r *http.Request) {
	h.render.RenderStatus(w, r, http.StatusForbidden, "message.tmpl", &MessageViewData{
		Page:    Page{Title: "Access denied"},
		Heading: "Access denied",
		Message: "You do not have access to this resource.",
	})
}

// endCurrentSession deletes the session named by the request cookie, if any
func (h *AccountHandler) endCurrentSession(r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
		log.Printf("Error ending session: %v", err)
	}
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
