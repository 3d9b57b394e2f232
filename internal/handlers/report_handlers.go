package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Summary returns the totals of one period, overall and per trainer
func (h *ReportHandler) Summary(c echo.Context) error {
	year, errY := strconv.Atoi(c.QueryParam("year"))
	month, errM := strconv.Atoi(c.QueryParam("month"))
	if errY != nil || errM != nil {
		return toHTTPError(services.ErrInvalidPeriod)
	}

	report, err := h.reports.Summary(c.Request().Context(), year, month)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}
