package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gym_backoffice_echo/internal/listing"
	"gym_backoffice_echo/internal/models"
)

// CatalogService manages fee tiers (shares)
type CatalogService struct {
	db    *gorm.DB
	cache *Cache
}

func NewCatalogService(db *gorm.DB, cache *Cache) *CatalogService {
	return &CatalogService{db: db, cache: cache}
}

// ShareInput carries the editable fields of a share
type ShareInput struct {
	Amount     decimal.Decimal
	NumberDays int
	QuoteDate  time.Time
}

func (in ShareInput) validate() error {
	if in.Amount.IsNegative() || in.NumberDays < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ListShares returns all shares, most recent quote date first
func (s *CatalogService) ListShares(ctx context.Context) ([]models.Share, error) {
	shares, err := LoadFeed(ctx, s.cache, EntityShares, func() ([]models.Share, error) {
		var shares []models.Share
		err := s.db.WithContext(ctx).Order("id").Find(&shares).Error
		return shares, err
	})
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	listing.SortSharesByQuoteDate(shares)
	return shares, nil
}

func (s *CatalogService) GetShare(ctx context.Context, id uint) (*models.Share, error) {
	var share models.Share
	if err := s.db.WithContext(ctx).First(&share, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShareNotFound
		}
		return nil, fmt.Errorf("get share %d: %w", id, err)
	}
	return &share, nil
}

func (s *CatalogService) CreateShare(ctx context.Context, in ShareInput) (*models.Share, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	share := models.Share{
		Amount:     in.Amount,
		NumberDays: in.NumberDays,
		QuoteDate:  in.QuoteDate,
	}
	if err := s.db.WithContext(ctx).Create(&share).Error; err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}

	s.cache.Invalidate(ctx, EntityShares)
	return &share, nil
}

// UpdateShare edits a share in place. Payments keep referencing it, so a new
// amount shows up wherever the share is displayed but no payment is rewritten.
func (s *CatalogService) UpdateShare(ctx context.Context, id uint, in ShareInput) (*models.Share, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	share, err := s.GetShare(ctx, id)
	if err != nil {
		return nil, err
	}

	share.Amount = in.Amount
	share.NumberDays = in.NumberDays
	share.QuoteDate = in.QuoteDate
	err = s.db.WithContext(ctx).Model(share).Select("amount", "number_days", "quote_date").Updates(share).Error
	if err != nil {
		return nil, fmt.Errorf("update share %d: %w", id, err)
	}

	s.cache.Invalidate(ctx, EntityShares)
	return share, nil
}

// DeleteShare removes a share no payment references. The check and the
// delete share one transaction; on Postgres the payments foreign key
// rejects a payment pointed at the share in between.
func (s *CatalogService) DeleteShare(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var share models.Share
		if err := tx.First(&share, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrShareNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Payment{}).Where("share_id = ?", share.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("count payments: %w", err)
		}
		if count > 0 {
			return ErrShareInUse
		}
		return tx.Delete(&models.Share{}, share.ID).Error
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrShareNotFound), errors.Is(err, ErrShareInUse):
		return err
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrShareInUse
	default:
		return fmt.Errorf("delete share %d: %w", id, err)
	}

	s.cache.Invalidate(ctx, EntityShares)
	return nil
}
