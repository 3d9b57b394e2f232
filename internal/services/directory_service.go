package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gym_backoffice_echo/internal/listing"
	"gym_backoffice_echo/internal/models"
)

// DirectoryService manages socios and the trainer feed
type DirectoryService struct {
	db    *gorm.DB
	cache *Cache
}

func NewDirectoryService(db *gorm.DB, cache *Cache) *DirectoryService {
	return &DirectoryService{db: db, cache: cache}
}

// SocioInput carries the editable fields of a socio
type SocioInput struct {
	Surname   string
	GivenName string
	BirthDate time.Time
	TrainerID *uint
}

// ListSocios returns the socios visible in scope matching search, alphabetically
func (s *DirectoryService) ListSocios(ctx context.Context, scope Scope, search string) ([]models.Socio, error) {
	all, err := LoadFeed(ctx, s.cache, EntitySocios, func() ([]models.Socio, error) {
		var socios []models.Socio
		err := s.db.WithContext(ctx).Preload("Trainer").Order("id").Find(&socios).Error
		return socios, err
	})
	if err != nil {
		return nil, fmt.Errorf("list socios: %w", err)
	}

	visible := make([]models.Socio, 0, len(all))
	for _, so := range all {
		if scope.restricted() && !so.AssignedTo(scope.TrainerID) {
			continue
		}
		visible = append(visible, so)
	}

	visible = listing.FilterSocios(visible, search)
	listing.SortSociosAlphabetically(visible)
	return visible, nil
}

// GetSocio returns one socio with its trainer
func (s *DirectoryService) GetSocio(ctx context.Context, id uint, scope Scope) (*models.Socio, error) {
	var socio models.Socio
	q := s.db.WithContext(ctx).Preload("Trainer")
	if scope.restricted() {
		q = q.Where("trainer_id = ?", scope.TrainerID)
	}
	if err := q.First(&socio, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSocioNotFound
		}
		return nil, fmt.Errorf("get socio %d: %w", id, err)
	}
	return &socio, nil
}

// CreateSocio adds a socio. Trainers can only create socios assigned to themselves.
func (s *DirectoryService) CreateSocio(ctx context.Context, in SocioInput, scope Scope) (*models.Socio, error) {
	if scope.restricted() {
		in.TrainerID = &scope.TrainerID
	}
	if err := s.checkTrainer(ctx, in.TrainerID); err != nil {
		return nil, err
	}

	socio := models.Socio{
		Surname:   in.Surname,
		GivenName: in.GivenName,
		BirthDate: in.BirthDate,
		TrainerID: in.TrainerID,
	}
	if err := s.db.WithContext(ctx).Create(&socio).Error; err != nil {
		return nil, fmt.Errorf("create socio: %w", err)
	}

	s.cache.Invalidate(ctx, EntitySocios)
	return s.GetSocio(ctx, socio.ID, Scope{})
}

// UpdateSocio replaces the editable fields of a socio
func (s *DirectoryService) UpdateSocio(ctx context.Context, id uint, in SocioInput, scope Scope) (*models.Socio, error) {
	socio, err := s.GetSocio(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if scope.restricted() {
		in.TrainerID = &scope.TrainerID
	}
	if err := s.checkTrainer(ctx, in.TrainerID); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&models.Socio{ID: socio.ID}).Updates(map[string]interface{}{
		"surname":    in.Surname,
		"given_name": in.GivenName,
		"birth_date": in.BirthDate,
		"trainer_id": in.TrainerID,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update socio %d: %w", id, err)
	}

	s.cache.Invalidate(ctx, EntitySocios)
	return s.GetSocio(ctx, id, Scope{})
}

// DeleteSocio removes a socio that has no payments. The check and the
// delete share one transaction; on Postgres the payments foreign key
// rejects a payment generated in between.
func (s *DirectoryService) DeleteSocio(ctx context.Context, id uint, scope Scope) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if scope.restricted() {
			q = q.Where("trainer_id = ?", scope.TrainerID)
		}
		var socio models.Socio
		if err := q.First(&socio, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSocioNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Payment{}).Where("socio_id = ?", socio.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("count payments: %w", err)
		}
		if count > 0 {
			return ErrSocioHasPayments
		}
		return tx.Delete(&models.Socio{}, socio.ID).Error
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrSocioNotFound), errors.Is(err, ErrSocioHasPayments):
		return err
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrSocioHasPayments
	default:
		return fmt.Errorf("delete socio %d: %w", id, err)
	}

	s.cache.Invalidate(ctx, EntitySocios)
	return nil
}

// ListTrainers returns the accounts that can be assigned socios
func (s *DirectoryService) ListTrainers(ctx context.Context) ([]models.Trainer, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.UserRoleTrainer).
		Order("username").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list trainers: %w", err)
	}

	trainers := make([]models.Trainer, len(users))
	for i, u := range users {
		trainers[i] = u.AsTrainer()
	}
	return trainers, nil
}

func (s *DirectoryService) checkTrainer(ctx context.Context, trainerID *uint) error {
	if trainerID == nil {
		return nil
	}
	var user models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.UserRoleTrainer).
		First(&user, *trainerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTrainerNotFound
		}
		return fmt.Errorf("check trainer %d: %w", *trainerID, err)
	}
	return nil
}
