package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym_backoffice_echo/internal/models"
	dbtest "gym_backoffice_echo/internal/testutil"
)

func TestAccountService_CreateAndAuthenticate(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	svc := NewAccountService(db, nil)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, UserInput{Username: "lucia", DNI: 30123456, Password: "s3cret", Role: models.UserRoleTrainer})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.True(t, user.IsTrainer())

	got, err := svc.Authenticate(ctx, 30123456, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, 30123456, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, 11111111, "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccountService_CreateValidation(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	svc := NewAccountService(db, nil)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, UserInput{Username: "x", DNI: 1, Password: "p", Role: "GERENTE"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.CreateUser(ctx, UserInput{Username: "x", DNI: 1, Role: models.UserRoleAdmin})
	assert.ErrorIs(t, err, ErrPasswordRequired)

	_, err = svc.CreateUser(ctx, UserInput{Username: "x", DNI: 1, Password: "p", Role: models.UserRoleAdmin})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, UserInput{Username: "y", DNI: 1, Password: "p", Role: models.UserRoleTrainer})
	assert.ErrorIs(t, err, ErrDNITaken)
}

func TestAccountService_UpdateUser(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	svc := NewAccountService(db, nil)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, UserInput{Username: "lucia", DNI: 30123456, Password: "first", Role: models.UserRoleTrainer})
	require.NoError(t, err)
	socio := dbtest.CreateSocio(t, db, "Paz", "Eva", &user.ID)

	// Empty password keeps the current one
	updated, err := svc.UpdateUser(ctx, user.ID, UserInput{Username: "lucía", DNI: 30123456, Role: models.UserRoleTrainer})
	require.NoError(t, err)
	assert.Equal(t, "lucía", updated.Username)
	_, err = svc.Authenticate(ctx, 30123456, "first")
	assert.NoError(t, err)

	_, err = svc.UpdateUser(ctx, user.ID, UserInput{Username: "lucía", DNI: 30123456, Password: "second", Role: models.UserRoleAdmin})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, 30123456, "second")
	assert.NoError(t, err)

	// No longer a trainer, so the socio is released
	var stored models.Socio
	require.NoError(t, db.First(&stored, socio.ID).Error)
	assert.Nil(t, stored.TrainerID)

	_, err = svc.UpdateUser(ctx, 999, UserInput{Username: "x", DNI: 5, Role: models.UserRoleAdmin})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAccountService_DeleteUserReleasesSocios(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	svc := NewAccountService(db, nil)
	ctx := context.Background()

	trainer := dbtest.CreateTrainer(t, db, "marcos", 20333444)
	socio := dbtest.CreateSocio(t, db, "Paz", "Eva", &trainer.ID)

	require.NoError(t, svc.DeleteUser(ctx, trainer.ID))

	var stored models.Socio
	require.NoError(t, db.First(&stored, socio.ID).Error)
	assert.Nil(t, stored.TrainerID)

	assert.ErrorIs(t, svc.DeleteUser(ctx, trainer.ID), ErrUserNotFound)

	// The DNI is free again
	_, err := svc.CreateUser(ctx, UserInput{Username: "marcos", DNI: 20333444, Password: "p", Role: models.UserRoleTrainer})
	assert.NoError(t, err)
}

func TestAccountService_EnsureAdmin(t *testing.T) {
	db := dbtest.SetupTestDB(t)
	svc := NewAccountService(db, nil)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin", 1000, "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "other", 2000, "changeme"))

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.UserRoleAdmin, users[0].Role)
	assert.Equal(t, int64(1000), users[0].DNI)
}
