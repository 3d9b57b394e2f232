package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string      `json:"error"`
	Conflicts []string    `json:"conflicts,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// DetailedError lets a handler attach structured detail to an HTTP error
type DetailedError struct {
	Message   string
	Conflicts []string
	Details   interface{}
}

// CustomErrorHandler creates a custom error handler for Echo
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := ErrorResponse{}

	// Check if it's an Echo HTTPError
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code

		switch msg := he.Message.(type) {
		case string:
			body.Error = msg
		case DetailedError:
			body.Error = msg.Message
			body.Conflicts = msg.Conflicts
			body.Details = msg.Details
		case *DetailedError:
			body.Error = msg.Message
			body.Conflicts = msg.Conflicts
			body.Details = msg.Details
		}
	}

	// Set default message if no custom message provided
	if body.Error == "" {
		switch code {
		case http.StatusNotFound:
			body.Error = "The resource you're looking for doesn't exist."
		case http.StatusForbidden:
			body.Error = "You don't have permission to access this resource."
		case http.StatusUnauthorized:
			body.Error = "Please log in to continue."
		case http.StatusBadRequest:
			body.Error = "The request could not be processed."
		default:
			body.Error = "Something went wrong. Please try again later."
		}
	}

	// Internal errors are logged, never echoed
	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
