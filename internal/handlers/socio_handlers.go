package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/services"
)

type SocioHandler struct {
	directory *services.DirectoryService
}

func NewSocioHandler(directory *services.DirectoryService) *SocioHandler {
	return &SocioHandler{directory: directory}
}

// ListSocios returns the socios visible to the caller, alphabetically
func (h *SocioHandler) ListSocios(c echo.Context) error {
	socios, err := h.directory.ListSocios(c.Request().Context(), scopeOf(c), c.QueryParam("search"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, socios)
}

func (h *SocioHandler) GetSocio(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	socio, err := h.directory.GetSocio(c.Request().Context(), id, scopeOf(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, socio)
}

func (h *SocioHandler) StoreSocio(c echo.Context) error {
	in, err := bindSocio(c)
	if err != nil {
		return err
	}
	socio, err := h.directory.CreateSocio(c.Request().Context(), in, scopeOf(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, socio)
}

func (h *SocioHandler) UpdateSocio(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	in, err := bindSocio(c)
	if err != nil {
		return err
	}
	socio, err := h.directory.UpdateSocio(c.Request().Context(), id, in, scopeOf(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, socio)
}

func (h *SocioHandler) DeleteSocio(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.directory.DeleteSocio(c.Request().Context(), id, scopeOf(c)); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTrainers feeds the trainer selector
func (h *SocioHandler) ListTrainers(c echo.Context) error {
	trainers, err := h.directory.ListTrainers(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, trainers)
}

func bindSocio(c echo.Context) (services.SocioInput, error) {
	var req SocioRequest
	if err := bindAndValidate(c, &req); err != nil {
		return services.SocioInput{}, err
	}
	birth, err := time.Parse(dateLayout, req.BirthDate)
	if err != nil {
		return services.SocioInput{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid fechaNacimiento")
	}
	return services.SocioInput{
		Surname:   req.Surname,
		GivenName: req.GivenName,
		BirthDate: birth,
		TrainerID: req.TrainerID,
	}, nil
}
