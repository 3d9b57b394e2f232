package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gym_backoffice_echo/internal/models"
)

// UnassignedTrainer names the bucket of socios without a trainer
const UnassignedTrainer = "unassigned"

// Totals are the figures reported for one group of payments
type Totals struct {
	TotalSocios    int             `json:"totalSocios"`
	ExpectedTotal  decimal.Decimal `json:"expectedTotal"`
	PaidCount      int             `json:"paidCount"`
	CollectedTotal decimal.Decimal `json:"collectedTotal"`
}

// GeneralSummary holds the totals of a whole period
type GeneralSummary struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Totals
}

// TrainerSummary holds the totals of the socios assigned to one trainer.
// TrainerID is nil for the unassigned bucket.
type TrainerSummary struct {
	TrainerID   *uint  `json:"trainerId"`
	TrainerName string `json:"trainerName"`
	Totals
}

// Report is the period summary, overall and per trainer
type Report struct {
	General   GeneralSummary   `json:"general"`
	ByTrainer []TrainerSummary `json:"byTrainer"`
}

// ReportService aggregates the ledger. It never writes.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Summary reports on the payments of one period
func (s *ReportService) Summary(ctx context.Context, year, month int) (*Report, error) {
	period := models.Period{Year: year, Month: month}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Preload("Socio.Trainer").
		Preload("Share").
		Where("year = ? AND month = ?", year, month).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("load payments for %s: %w", period, err)
	}

	report := Aggregate(period, payments)
	return &report, nil
}

type tally struct {
	socios    map[uint]bool
	expected  decimal.Decimal
	paid      int
	collected decimal.Decimal
}

func newTally() *tally {
	return &tally{socios: make(map[uint]bool), expected: decimal.Zero, collected: decimal.Zero}
}

func (t *tally) add(p models.Payment) {
	amount := decimal.Zero
	if p.Share != nil {
		amount = p.Share.Amount
	}
	t.socios[p.SocioID] = true
	t.expected = t.expected.Add(amount)
	if p.IsPaid {
		t.paid++
		t.collected = t.collected.Add(amount)
	}
}

func (t *tally) totals() Totals {
	return Totals{
		TotalSocios:    len(t.socios),
		ExpectedTotal:  t.expected,
		PaidCount:      t.paid,
		CollectedTotal: t.collected,
	}
}

// Aggregate computes the report of period from its payments. Payments of
// other periods are ignored. Trainer rows are sorted by name with the
// unassigned bucket last.
func Aggregate(period models.Period, payments []models.Payment) Report {
	general := newTally()
	byTrainer := make(map[uint]*tally)
	names := make(map[uint]string)

	for _, p := range payments {
		if p.Period() != period {
			continue
		}
		general.add(p)

		var trainerID uint
		if p.Socio != nil && p.Socio.TrainerID != nil {
			trainerID = *p.Socio.TrainerID
			names[trainerID] = p.Socio.TrainerUsername()
		}
		t, ok := byTrainer[trainerID]
		if !ok {
			t = newTally()
			byTrainer[trainerID] = t
		}
		t.add(p)
	}

	rows := make([]TrainerSummary, 0, len(byTrainer))
	for id, t := range byTrainer {
		row := TrainerSummary{TrainerName: UnassignedTrainer, Totals: t.totals()}
		if id != 0 {
			id := id
			row.TrainerID = &id
			row.TrainerName = names[id]
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if (a.TrainerID == nil) != (b.TrainerID == nil) {
			return b.TrainerID == nil
		}
		if a.TrainerName != b.TrainerName {
			return a.TrainerName < b.TrainerName
		}
		if a.TrainerID == nil {
			return false
		}
		return *a.TrainerID < *b.TrainerID
	})

	return Report{
		General: GeneralSummary{
			Year:   period.Year,
			Month:  period.Month,
			Totals: general.totals(),
		},
		ByTrainer: rows,
	}
}
