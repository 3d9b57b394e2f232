// Package listing holds the search and ordering rules applied to socio,
// share and payment lists before they are returned to the client.
package listing

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"gym_backoffice_echo/internal/models"
)

// MatchesSocio reports whether term matches the socio's name (in either
// "surname given" or "given surname" order) or the trainer's username.
// The comparison is case-insensitive; an empty term matches everything.
func MatchesSocio(socio *models.Socio, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	if socio == nil {
		return false
	}

	names := []string{
		socio.Surname + " " + socio.GivenName,
		socio.GivenName + " " + socio.Surname,
	}
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), term) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(socio.TrainerUsername()), term)
}

// FilterSocios returns the socios matching term, preserving order
func FilterSocios(socios []models.Socio, term string) []models.Socio {
	out := make([]models.Socio, 0, len(socios))
	for i := range socios {
		if MatchesSocio(&socios[i], term) {
			out = append(out, socios[i])
		}
	}
	return out
}

// FilterPayments returns the payments whose socio matches term, preserving order
func FilterPayments(payments []models.Payment, term string) []models.Payment {
	out := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if MatchesSocio(p.Socio, term) {
			out = append(out, p)
		}
	}
	return out
}

// SortPaymentsByPeriod orders payments by year*12+month. Payments sharing a
// period keep their relative order.
func SortPaymentsByPeriod(payments []models.Payment, ascending bool) {
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i].Period().Ordinal(), payments[j].Period().Ordinal()
		if ascending {
			return a < b
		}
		return a > b
	})
}

// SortSharesByQuoteDate puts the most recently effective share first
func SortSharesByQuoteDate(shares []models.Share) {
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].QuoteDate.After(shares[j].QuoteDate)
	})
}

// SortSociosAlphabetically orders socios by "surname given" using Spanish
// collation, ignoring case.
func SortSociosAlphabetically(socios []models.Socio) {
	// Collators keep internal buffers and are not safe for concurrent use.
	c := collate.New(language.Spanish, collate.IgnoreCase)
	sort.SliceStable(socios, func(i, j int) bool {
		return c.CompareString(socios[i].SortName(), socios[j].SortName()) < 0
	})
}
