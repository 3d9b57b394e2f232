package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/models"
	"gym_backoffice_echo/internal/services"
	"gym_backoffice_echo/internal/session"
)

// UserLoader fetches the account behind a session
type UserLoader interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// RequireAuth returns a middleware that verifies the session token, taken
// from the Authorization header or the session cookie, and checks it
// against the current account. Deleted accounts are logged out and a
// changed role applies from the next request.
func RequireAuth(manager *session.Manager, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request())
			if token == "" {
				cookie, err := c.Cookie(session.CookieName)
				if err != nil || cookie.Value == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "Please log in to continue.")
				}
				token = cookie.Value
			}

			sess, err := manager.Parse(token)
			if err != nil {
				// Invalid session, clear cookie
				ClearSessionCookie(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "Session expired, please log in again.")
			}

			user, err := users.GetUser(c.Request().Context(), sess.UserID)
			if errors.Is(err, services.ErrUserNotFound) {
				ClearSessionCookie(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "Session expired, please log in again.")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}

			// Set user info in context for downstream handlers
			session.Store(c, sess.Refreshed(user))

			return next(c)
		}
	}
}

// RequireRole rejects sessions whose role is not one of roles
func RequireRole(roles ...models.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := session.FromContext(c)
			if sess == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Please log in to continue.")
			}
			for _, r := range roles {
				if sess.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "You don't have permission to access this resource.")
		}
	}
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return ""
	}
	return strings.TrimSpace(token)
}
