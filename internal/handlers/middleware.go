package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"cpaportal/internal/models"
	"cpaportal/internal/security"
	"cpaportal/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const IdentityContextKey ContextKey = "identity"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService  *service.AuthService
	csrf         *security.CSRFGenerator
	loginLimiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, loginLimiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService:  authService,
		csrf:         csrf,
		loginLimiter: loginLimiter,
	}
}

// resolveIdentity returns the identity behind the session cookie, or nil.
// Invalid cookies are cleared and renewed persistent sessions get a fresh
// cookie expiry.
func (m *Middleware) resolveIdentity(w http.ResponseWriter, r *http.Request) *service.Identity {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	id, renewed, err := m.authService.ValidateSession(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, service.ErrSessionNotFound) && !errors.Is(err, service.ErrSessionExpired) {
			log.Printf("Error validating session: %v", err)
		}
		http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
		return nil
	}

	if renewed && id.Session.Persistent {
		setSessionCookie(w, r, id.Session)
	}
	return id
}

// OptionalAuth attaches the identity to the context when a valid session exists
func (m *Middleware) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id := m.resolveIdentity(w, r); id != nil {
			r = r.WithContext(context.WithValue(r.Context(), IdentityContextKey, id))
		}
		next(w, r)
	}
}

// RequireAuth is middleware that requires a valid session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := m.resolveIdentity(w, r)
		if id == nil {
			http.Redirect(w, r, "/Account/Login?ReturnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, id)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole requires a session whose account holds role
func (m *Middleware) RequireRole(role models.Role, next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		id := GetIdentityFromContext(r.Context())
		if !id.User.HasRole(role) {
			http.Redirect(w, r, "/Account/AccessDenied", http.StatusSeeOther)
			return
		}
		next(w, r)
	})
}

// CSRFProtect rejects state-changing requests from a signed-in session that
// lack the session's CSRF token. It must run inside RequireAuth or OptionalAuth.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next(w, r)
			return
		}

		id := GetIdentityFromContext(r.Context())
		if id == nil {
			next(w, r)
			return
		}

		token := r.Header.Get(CSRFHeaderName)
		if token == "" {
			token = r.FormValue(CSRFFormField)
		}
		if !m.csrf.ValidateToken(id.Session.ID, token) {
			log.Printf("CSRF validation failed for %s %s (user %d)", r.Method, r.URL.Path, id.User.ID)
			http.Error(w, ErrInvalidCSRFToken, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// RateLimit throttles POSTs per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && m.loginLimiter != nil {
			ip := security.GetClientIP(r)
			if !m.loginLimiter.Allow(ip) {
				log.Printf("Rate limit exceeded for %s on %s", ip, r.URL.Path)
				http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
				return
			}
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetIdentityFromContext retrieves the session and user from the request context
func GetIdentityFromContext(ctx context.Context) *service.Identity {
	id, ok := ctx.Value(IdentityContextKey).(*service.Identity)
	if !ok {
		return nil
	}
	return id
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	if id := GetIdentityFromContext(ctx); id != nil {
		return id.User
	}
	return nil
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, session *models.Session) {
	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt, session.Persistent))
}
