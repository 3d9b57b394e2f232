package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/services"
)

type ShareHandler struct {
	catalog *services.CatalogService
}

func NewShareHandler(catalog *services.CatalogService) *ShareHandler {
	return &ShareHandler{catalog: catalog}
}

// ListShares returns the fee tiers, most recent quote date first
func (h *ShareHandler) ListShares(c echo.Context) error {
	shares, err := h.catalog.ListShares(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, shares)
}

func (h *ShareHandler) GetShare(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	share, err := h.catalog.GetShare(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, share)
}

func (h *ShareHandler) StoreShare(c echo.Context) error {
	in, err := bindShare(c)
	if err != nil {
		return err
	}
	share, err := h.catalog.CreateShare(c.Request().Context(), in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, share)
}

func (h *ShareHandler) UpdateShare(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	in, err := bindShare(c)
	if err != nil {
		return err
	}
	share, err := h.catalog.UpdateShare(c.Request().Context(), id, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, share)
}

func (h *ShareHandler) DeleteShare(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteShare(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func bindShare(c echo.Context) (services.ShareInput, error) {
	var req ShareRequest
	if err := bindAndValidate(c, &req); err != nil {
		return services.ShareInput{}, err
	}
	quoteDate, err := time.Parse(dateLayout, req.QuoteDate)
	if err != nil {
		return services.ShareInput{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid quoteDate")
	}
	return services.ShareInput{
		Amount:     req.Amount,
		NumberDays: req.NumberDays,
		QuoteDate:  quoteDate,
	}, nil
}
