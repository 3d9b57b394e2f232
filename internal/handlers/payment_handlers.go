package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"gym_backoffice_echo/internal/models"
	"gym_backoffice_echo/internal/services"
)

type PaymentHandler struct {
	ledger *services.LedgerService
}

func NewPaymentHandler(ledger *services.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// ListPayments returns payments with filtering and sorting
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	q := services.PaymentQuery{
		Scope:  scopeOf(c),
		Search: c.QueryParam("search"),
	}

	// Most recent period first by default
	switch c.QueryParam("order") {
	case "", "desc":
	case "asc":
		q.Ascending = true
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "order must be asc or desc")
	}

	yearStr, monthStr := c.QueryParam("year"), c.QueryParam("month")
	if yearStr != "" || monthStr != "" {
		year, errY := strconv.Atoi(yearStr)
		month, errM := strconv.Atoi(monthStr)
		period := models.Period{Year: year, Month: month}
		if errY != nil || errM != nil || !period.Valid() {
			return toHTTPError(services.ErrInvalidPeriod)
		}
		q.Period = &period
	}

	payments, err := h.ledger.List(c.Request().Context(), q)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, payments)
}

// GeneratePayments creates one unpaid payment per socio for a period
func (h *PaymentHandler) GeneratePayments(c echo.Context) error {
	var req GeneratePaymentsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.ledger.Generate(c.Request().Context(), services.GenerateRequest{
		Year:     req.Year,
		Month:    req.Month,
		ShareID:  req.ShareID,
		SocioIDs: req.SocioIDs,
		Scope:    scopeOf(c),
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

// TogglePaid flips the paid flag of a payment
func (h *PaymentHandler) TogglePaid(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	payment, err := h.ledger.Toggle(c.Request().Context(), id, scopeOf(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// ReassignShare changes the share of an unpaid payment
func (h *PaymentHandler) ReassignShare(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req ReassignShareRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.ledger.ReassignShare(c.Request().Context(), id, req.ShareID, scopeOf(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// DeletePayment removes a payment permanently
func (h *PaymentHandler) DeletePayment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.ledger.Delete(c.Request().Context(), id, scopeOf(c)); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
