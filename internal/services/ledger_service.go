package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gym_backoffice_echo/internal/listing"
	"gym_backoffice_echo/internal/metrics"
	"gym_backoffice_echo/internal/models"
)

// Scope restricts what a caller can see. A zero TrainerID means the whole
// directory; otherwise only socios assigned to that trainer and their payments.
type Scope struct {
	TrainerID uint
}

func (s Scope) restricted() bool {
	return s.TrainerID != 0
}

// LedgerService owns payment records
type LedgerService struct {
	db      *gorm.DB
	cache   *Cache
	metrics *metrics.Ledger
	now     func() time.Time
}

func NewLedgerService(db *gorm.DB, cache *Cache, m *metrics.Ledger) *LedgerService {
	return &LedgerService{db: db, cache: cache, metrics: m, now: time.Now}
}

// WithClock replaces the clock used to stamp payment dates
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// GenerateRequest asks for one unpaid payment per socio for a period.
// An empty SocioIDs means every socio visible in Scope.
type GenerateRequest struct {
	Year     int
	Month    int
	ShareID  uint
	SocioIDs []uint
	Scope    Scope
}

// GenerateResult is the outcome of a successful generation
type GenerateResult struct {
	BatchID  string           `json:"batchId"`
	Payments []models.Payment `json:"payments"`
}

// Generate creates the payments of a period for a set of socios. If any socio
// already has a payment for the period nothing is created and a
// *DuplicatePeriodError naming the conflicting socios is returned.
func (s *LedgerService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	period := models.Period{Year: req.Year, Month: req.Month}
	if !period.Valid() {
		return nil, ErrInvalidPeriod
	}

	db := s.db.WithContext(ctx)

	var share models.Share
	if err := db.First(&share, req.ShareID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("load share: %w", err)
	}

	socios, err := resolveSocios(db, req.SocioIDs, req.Scope)
	if err != nil {
		return nil, err
	}
	if len(socios) == 0 {
		return nil, ErrNoSocios
	}
	socioIDs := make([]uint, len(socios))
	for i, so := range socios {
		socioIDs[i] = so.ID
	}

	unlock, err := s.cache.LockPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	defer unlock()

	batchID := uuid.NewString()
	payments := make([]models.Payment, len(socios))
	for i, so := range socios {
		payments[i] = models.Payment{
			SocioID: so.ID,
			ShareID: share.ID,
			Year:    period.Year,
			Month:   period.Month,
			IsPaid:  false,
			BatchID: batchID,
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		existing, err := findPeriodPayments(tx, socioIDs, period)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return newDuplicatePeriodError(period, existing)
		}
		return tx.Create(&payments).Error
	})
	if err != nil {
		var dup *DuplicatePeriodError
		if errors.As(err, &dup) {
			s.metrics.Conflict()
			return nil, dup
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race against a concurrent generation; name who got there first.
			s.metrics.Conflict()
			return nil, raceConflict(db, socioIDs, period)
		}
		return nil, fmt.Errorf("create payments: %w", err)
	}

	for i := range payments {
		payments[i].Socio = &socios[i]
		payments[i].Share = &share
	}

	s.cache.Invalidate(ctx, EntityPayments)
	s.metrics.Generated(len(payments))
	log.Printf("Generated %d payments for %s with share %d (batch %s)", len(payments), period, share.ID, batchID)

	return &GenerateResult{BatchID: batchID, Payments: payments}, nil
}

// Toggle flips the paid flag. Becoming paid stamps the payment date with the
// current time; becoming unpaid clears it. Nothing else changes.
func (s *LedgerService) Toggle(ctx context.Context, id uint, scope Scope) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scopePayments(tx, scope).First(&payment, id).Error; err != nil {
			return err
		}

		payment.IsPaid = !payment.IsPaid
		if payment.IsPaid {
			now := s.now()
			payment.PaymentDate = &now
		} else {
			payment.PaymentDate = nil
		}

		return tx.Model(&payment).Updates(map[string]interface{}{
			"is_paid":      payment.IsPaid,
			"payment_date": payment.PaymentDate,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("toggle payment %d: %w", id, err)
	}

	s.cache.Invalidate(ctx, EntityPayments)
	s.metrics.Toggled(payment.IsPaid)
	return &payment, nil
}

// ReassignShare points an unpaid payment at another share. Paid payments are
// rejected with ErrPaymentAlreadyPaid and left untouched.
func (s *LedgerService) ReassignShare(ctx context.Context, id, shareID uint, scope Scope) (*models.Payment, error) {
	var payment models.Payment
	var share models.Share
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scopePayments(tx, scope).First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if payment.IsPaid {
			return ErrPaymentAlreadyPaid
		}
		if err := tx.First(&share, shareID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShareNotFound
			}
			return err
		}

		// Re-check the paid flag in the write itself.
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND is_paid = ?", payment.ID, false).
			Update("share_id", share.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPaymentAlreadyPaid
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrPaymentAlreadyPaid) || errors.Is(err, ErrShareNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reassign share of payment %d: %w", id, err)
	}

	payment.ShareID = share.ID
	payment.Share = &share

	s.cache.Invalidate(ctx, EntityPayments)
	s.metrics.Reassigned()
	return &payment, nil
}

// Delete removes a payment permanently
func (s *LedgerService) Delete(ctx context.Context, id uint, scope Scope) error {
	res := scopePayments(s.db.WithContext(ctx), scope).Delete(&models.Payment{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete payment %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrPaymentNotFound
	}

	s.cache.Invalidate(ctx, EntityPayments)
	s.metrics.Deleted()
	return nil
}

// PaymentQuery filters and orders a payment listing
type PaymentQuery struct {
	Scope     Scope
	Search    string
	Ascending bool
	Period    *models.Period
}

// List returns payments with their socio, trainer and share projections,
// most recent period first unless Ascending is set.
func (s *LedgerService) List(ctx context.Context, q PaymentQuery) ([]models.Payment, error) {
	all, err := LoadFeed(ctx, s.cache, EntityPayments, func() ([]models.Payment, error) {
		var payments []models.Payment
		err := s.db.WithContext(ctx).
			Preload("Socio.Trainer").
			Preload("Share").
			Order("id").
			Find(&payments).Error
		return payments, err
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	out := make([]models.Payment, 0, len(all))
	for _, p := range all {
		if q.Scope.restricted() && (p.Socio == nil || !p.Socio.AssignedTo(q.Scope.TrainerID)) {
			continue
		}
		if q.Period != nil && p.Period() != *q.Period {
			continue
		}
		out = append(out, p)
	}

	out = listing.FilterPayments(out, q.Search)
	listing.SortPaymentsByPeriod(out, q.Ascending)
	return out, nil
}

// resolveSocios loads the requested socios in request order, collapsing
// repeated IDs. Socios outside scope are reported as unknown.
func resolveSocios(db *gorm.DB, ids []uint, scope Scope) ([]models.Socio, error) {
	q := db.Model(&models.Socio{})
	if scope.restricted() {
		q = q.Where("trainer_id = ?", scope.TrainerID)
	}

	var socios []models.Socio
	if len(ids) == 0 {
		if err := q.Order("id").Find(&socios).Error; err != nil {
			return nil, fmt.Errorf("load socios: %w", err)
		}
		return socios, nil
	}

	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	if err := q.Where("id IN ?", unique).Find(&socios).Error; err != nil {
		return nil, fmt.Errorf("load socios: %w", err)
	}

	byID := make(map[uint]models.Socio, len(socios))
	for _, so := range socios {
		byID[so.ID] = so
	}

	ordered := make([]models.Socio, 0, len(unique))
	var missing []uint
	for _, id := range unique {
		so, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, so)
	}
	if len(missing) > 0 {
		return nil, &UnknownSociosError{IDs: missing}
	}
	return ordered, nil
}

// raceConflict builds the duplicate error after the unique index rejected
// an insert. When the conflicting socios cannot be read back the error
// still reports the period.
func raceConflict(db *gorm.DB, socioIDs []uint, period models.Period) *DuplicatePeriodError {
	existing, err := findPeriodPayments(db, socioIDs, period)
	if err != nil {
		log.Printf("Could not name socios already billed for %s: %v", period, err)
	}
	return newDuplicatePeriodError(period, existing)
}

func findPeriodPayments(db *gorm.DB, socioIDs []uint, period models.Period) ([]models.Payment, error) {
	var existing []models.Payment
	err := db.Preload("Socio").
		Where("socio_id IN ? AND year = ? AND month = ?", socioIDs, period.Year, period.Month).
		Find(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("check existing payments: %w", err)
	}
	return existing, nil
}

func scopePayments(db *gorm.DB, scope Scope) *gorm.DB {
	if !scope.restricted() {
		return db
	}
	socios := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Socio{}).
		Select("id").
		Where("trainer_id = ?", scope.TrainerID)
	return db.Where("socio_id IN (?)", socios)
}
