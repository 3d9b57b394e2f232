package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/middleware"
	"gym_backoffice_echo/internal/services"
	"gym_backoffice_echo/internal/session"
)

// CustomValidator plugs go-playground/validator into Echo
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports fields by their JSON names
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// bindAndValidate decodes the request body into dst and validates it
func bindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return echo.NewHTTPError(http.StatusBadRequest, middleware.DetailedError{
			Message: "Validation failed",
			Details: fields,
		})
	}
	return nil
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return uint(id), nil
}

// scopeOf limits trainers to their own socios
func scopeOf(c echo.Context) services.Scope {
	return services.Scope{TrainerID: session.FromContext(c).TrainerScope()}
}

// toHTTPError maps service errors onto HTTP status codes
func toHTTPError(err error) error {
	var dup *services.DuplicatePeriodError
	if errors.As(err, &dup) {
		return echo.NewHTTPError(http.StatusConflict, middleware.DetailedError{
			Message:   dup.Error(),
			Conflicts: dup.Socios,
		})
	}

	var unknown *services.UnknownSociosError
	if errors.As(err, &unknown) {
		return echo.NewHTTPError(http.StatusBadRequest, middleware.DetailedError{
			Message: unknown.Error(),
			Details: map[string][]uint{"socioIds": unknown.IDs},
		})
	}

	switch {
	case errors.Is(err, services.ErrInvalidPeriod),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrNoSocios),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrPasswordRequired),
		errors.Is(err, services.ErrTrainerNotFound):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrShareNotFound),
		errors.Is(err, services.ErrSocioNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPaymentAlreadyPaid),
		errors.Is(err, services.ErrShareInUse),
		errors.Is(err, services.ErrSocioHasPayments),
		errors.Is(err, services.ErrDNITaken),
		errors.Is(err, services.ErrGenerationInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
}
