package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/middleware"
	"gym_backoffice_echo/internal/services"
	"gym_backoffice_echo/internal/session"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	accounts     *services.AccountService
	sessions     *session.Manager
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *services.AccountService, sessions *session.Manager, secureCookie bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, secureCookie: secureCookie}
}

// HandleLogin checks DNI and password and starts a session
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.accounts.Authenticate(c.Request().Context(), req.DNI, req.Password)
	if err != nil {
		return toHTTPError(err)
	}

	token, sess, err := h.sessions.Issue(user)
	if err != nil {
		return toHTTPError(err)
	}

	// Set HTTP-Only Cookie
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, LoginResponse{Token: token, User: sess})
}

// Me returns the logged-in user
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, session.FromContext(c))
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	middleware.ClearSessionCookie(c)

	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}
