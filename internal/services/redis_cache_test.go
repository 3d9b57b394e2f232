package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym_backoffice_echo/internal/models"
	dbtest "gym_backoffice_echo/internal/testutil"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestLoadFeed_RedisHitAndMiss(t *testing.T) {
	rc, mr := newTestRedis(t)
	cache := NewCache(rc, time.Minute)
	ctx := context.Background()

	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"Alvarez, Ana"}, nil
	}

	got, err := LoadFeed(ctx, cache, EntitySocios, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alvarez, Ana"}, got)
	assert.True(t, mr.Exists("gym:feed:socios:0"))

	got, err = LoadFeed(ctx, cache, EntitySocios, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alvarez, Ana"}, got)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	_, err = LoadFeed(ctx, cache, EntitySocios, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidate_BumpsDependentGenerations(t *testing.T) {
	rc, mr := newTestRedis(t)
	cache := NewCache(rc, time.Minute)
	ctx := context.Background()

	cache.Invalidate(ctx, EntityUsers)
	for _, key := range []string{"gym:gen:users", "gym:gen:socios", "gym:gen:payments"} {
		v, err := mr.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, "1", v, key)
	}
	assert.False(t, mr.Exists("gym:gen:shares"))

	cache.Invalidate(ctx, EntityShares)
	v, err := mr.Get("gym:gen:payments")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	calls := 0
	load := func() (int, error) {
		calls++
		return calls, nil
	}
	first, err := LoadFeed(ctx, cache, EntityPayments, load)
	require.NoError(t, err)
	cache.Invalidate(ctx, EntitySocios)
	second, err := LoadFeed(ctx, cache, EntityPayments, load)
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestLoadFeed_LoadOverlappingInvalidateIsNotServed(t *testing.T) {
	rc, _ := newTestRedis(t)
	cache := NewCache(rc, time.Minute)
	ctx := context.Background()

	state := "unpaid"
	// The first load reads the database, then a toggle commits and
	// invalidates before the load writes its result.
	stale, err := LoadFeed(ctx, cache, EntityPayments, func() (string, error) {
		read := state
		state = "paid"
		cache.Invalidate(ctx, EntityPayments)
		return read, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "unpaid", stale)

	fresh, err := LoadFeed(ctx, cache, EntityPayments, func() (string, error) {
		return state, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", fresh)
}

func TestLedgerList_RoundTripsThroughRedis(t *testing.T) {
	rc, _ := newTestRedis(t)
	db := dbtest.SetupTestDB(t)
	ctx := context.Background()

	trainer := dbtest.CreateTrainer(t, db, "carla", 30111222)
	socio := dbtest.CreateSocio(t, db, "Alvarez", "Ana", &trainer.ID)
	share := dbtest.CreateShare(t, db, "25.50")
	ledger := NewLedgerService(db, NewCache(rc, time.Minute), nil).WithClock(func() time.Time { return fixedNow })

	res, err := ledger.Generate(ctx, GenerateRequest{Year: 2025, Month: 3, ShareID: share.ID})
	require.NoError(t, err)
	require.Len(t, res.Payments, 1)
	id := res.Payments[0].ID
	_, err = ledger.Toggle(ctx, id, Scope{})
	require.NoError(t, err)

	_, err = ledger.List(ctx, PaymentQuery{})
	require.NoError(t, err)

	// Written behind the cache's back, so the next list must come from Redis
	require.NoError(t, db.Model(&models.Payment{}).Where("id = ?", id).Update("batch_id", "changed").Error)

	cached, err := ledger.List(ctx, PaymentQuery{})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	p := cached[0]
	assert.Equal(t, res.BatchID, p.BatchID)
	assert.True(t, p.IsPaid)
	require.NotNil(t, p.PaymentDate)
	assert.True(t, p.PaymentDate.Equal(fixedNow), p.PaymentDate.String())
	require.NotNil(t, p.Share)
	assert.True(t, p.Share.Amount.Equal(decimal.RequireFromString("25.5")), p.Share.Amount.String())
	require.NotNil(t, p.Socio)
	assert.Equal(t, socio.ID, p.Socio.ID)
	require.NotNil(t, p.Socio.Trainer)
	assert.Equal(t, "carla", p.Socio.Trainer.Username)

	// Scope and trainer search still apply to the cached feed
	scoped, err := ledger.List(ctx, PaymentQuery{Scope: Scope{TrainerID: trainer.ID}, Search: "carla"})
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	_, err = ledger.Toggle(ctx, id, Scope{})
	require.NoError(t, err)
	fresh, err := ledger.List(ctx, PaymentQuery{})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.False(t, fresh[0].IsPaid)
	assert.Nil(t, fresh[0].PaymentDate)
	assert.Equal(t, "changed", fresh[0].BatchID)
}

func TestLockPeriod_Contention(t *testing.T) {
	rc, mr := newTestRedis(t)
	cache := NewCache(rc, time.Minute)
	ctx := context.Background()
	march := models.Period{Year: 2025, Month: 3}

	unlockFirst, err := cache.LockPeriod(ctx, march)
	require.NoError(t, err)

	_, err = cache.LockPeriod(ctx, march)
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	// Other periods are independent
	unlockApril, err := cache.LockPeriod(ctx, models.Period{Year: 2025, Month: 4})
	require.NoError(t, err)
	unlockApril()

	// The first holder outlives its lock and another instance takes it
	mr.FastForward(periodLockTTL + time.Second)
	unlockSecond, err := cache.LockPeriod(ctx, march)
	require.NoError(t, err)

	// A late release must not free the second holder's lock
	unlockFirst()
	_, err = cache.LockPeriod(ctx, march)
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	unlockSecond()
	unlock, err := cache.LockPeriod(ctx, march)
	require.NoError(t, err)
	unlock()
}

func TestGenerate_PeriodLockedElsewhere(t *testing.T) {
	rc, _ := newTestRedis(t)
	db := dbtest.SetupTestDB(t)
	ctx := context.Background()

	cache := NewCache(rc, time.Minute)
	share := dbtest.CreateShare(t, db, "10")
	dbtest.CreateSocio(t, db, "Alvarez", "Ana", nil)
	ledger := NewLedgerService(db, cache, nil)

	unlock, err := cache.LockPeriod(ctx, models.Period{Year: 2025, Month: 3})
	require.NoError(t, err)

	_, err = ledger.Generate(ctx, GenerateRequest{Year: 2025, Month: 3, ShareID: share.ID})
	assert.ErrorIs(t, err, ErrGenerationInProgress)
	assert.Equal(t, int64(0), countPayments(t, db))

	unlock()
	res, err := ledger.Generate(ctx, GenerateRequest{Year: 2025, Month: 3, ShareID: share.ID})
	require.NoError(t, err)
	assert.Len(t, res.Payments, 1)
}
