package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gym_backoffice_echo/internal/models"
)

// AccountService manages back-office users and checks their credentials
type AccountService struct {
	db    *gorm.DB
	cache *Cache
}

func NewAccountService(db *gorm.DB, cache *Cache) *AccountService {
	return &AccountService{db: db, cache: cache}
}

// UserInput carries the editable fields of a user. An empty Password on
// update keeps the current one.
type UserInput struct {
	Username string
	DNI      int64
	Password string
	Role     models.UserRole
}

func (s *AccountService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := LoadFeed(ctx, s.cache, EntityUsers, func() ([]models.User, error) {
		var users []models.User
		err := s.db.WithContext(ctx).Order("username").Find(&users).Error
		return users, err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AccountService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *AccountService) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		DNI:          in.DNI,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDNITaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.cache.Invalidate(ctx, EntityUsers)
	return &user, nil
}

// UpdateUser edits a user. Demoting a trainer releases the socios assigned to them.
func (s *AccountService) UpdateUser(ctx context.Context, id uint, in UserInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"username": in.Username,
		"dni":      in.DNI,
		"role":     in.Role,
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{ID: user.ID}).Updates(updates).Error; err != nil {
			return err
		}
		if user.IsTrainer() && in.Role != models.UserRoleTrainer {
			return releaseSocios(tx, user.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDNITaken
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}

	s.cache.Invalidate(ctx, EntityUsers)
	return s.GetUser(ctx, id)
}

// DeleteUser removes a user permanently and clears the trainer of their socios
func (s *AccountService) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := releaseSocios(tx, user.ID); err != nil {
			return err
		}
		// Hard delete so the DNI can be registered again.
		return tx.Unscoped().Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	s.cache.Invalidate(ctx, EntityUsers)
	return nil
}

// Authenticate returns the user owning dni when password matches
func (s *AccountService) Authenticate(ctx context.Context, dni int64, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("dni = ?", dni).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by dni: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// EnsureAdmin creates an administrative account when no administrator exists yet
func (s *AccountService) EnsureAdmin(ctx context.Context, username string, dni int64, password string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count).Error
	if err != nil {
		return fmt.Errorf("count administrators: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = s.CreateUser(ctx, UserInput{
		Username: username,
		DNI:      dni,
		Password: password,
		Role:     models.UserRoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("bootstrap administrator: %w", err)
	}

	log.Printf("Created initial administrator %s", username)
	return nil
}

func releaseSocios(tx *gorm.DB, trainerID uint) error {
	return tx.Model(&models.Socio{}).
		Where("trainer_id = ?", trainerID).
		Update("trainer_id", nil).Error
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
