package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gym_backoffice_echo/internal/models"
)

var (
	ErrInvalidPeriod        = errors.New("invalid billing period: month must be 1-12 and year positive")
	ErrInvalidAmount        = errors.New("amount and number of days must not be negative")
	ErrNoSocios             = errors.New("no socios to bill")
	ErrShareNotFound        = errors.New("share not found")
	ErrSocioNotFound        = errors.New("socio not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTrainerNotFound      = errors.New("trainer not found")
	ErrDuplicatePeriod      = errors.New("payment already exists for period")
	ErrPaymentAlreadyPaid   = errors.New("payment is already paid, its share cannot be changed")
	ErrShareInUse           = errors.New("share is referenced by payments")
	ErrSocioHasPayments     = errors.New("socio has payments")
	ErrDNITaken             = errors.New("dni already registered")
	ErrInvalidRole          = errors.New("invalid role")
	ErrPasswordRequired     = errors.New("password is required")
	ErrInvalidCredentials   = errors.New("invalid dni or password")
	ErrGenerationInProgress = errors.New("another generation for this period is in progress")
)

// DuplicatePeriodError rejects a whole generation batch. Socios holds the
// display names of the socios that already have a payment for Period.
type DuplicatePeriodError struct {
	Period models.Period
	Socios []string
}

func newDuplicatePeriodError(period models.Period, existing []models.Payment) *DuplicatePeriodError {
	names := make([]string, 0, len(existing))
	for _, p := range existing {
		if p.Socio != nil {
			names = append(names, p.Socio.FullName())
		}
	}
	sort.Strings(names)
	return &DuplicatePeriodError{Period: period, Socios: names}
}

func (e *DuplicatePeriodError) Error() string {
	if len(e.Socios) == 0 {
		return fmt.Sprintf("payments already exist for %s", e.Period)
	}
	return fmt.Sprintf("payments already exist for %s: %s", e.Period, strings.Join(e.Socios, "; "))
}

func (e *DuplicatePeriodError) Is(target error) bool {
	return target == ErrDuplicatePeriod
}

// UnknownSociosError lists requested socio IDs that do not resolve
type UnknownSociosError struct {
	IDs []uint
}

func (e *UnknownSociosError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("socios not found: %s", strings.Join(parts, ", "))
}

func (e *UnknownSociosError) Unwrap() error {
	return ErrSocioNotFound
}
