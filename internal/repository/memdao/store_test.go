package memdao

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropspot/dropspot-api/internal/repository/dao"
)

func seedDrop(t *testing.T, s *Store, stock int) dao.Drop {
	t.Helper()

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	drop, err := s.Drops().Insert(context.Background(), dao.Drop{
		Title:            "drop",
		ClaimWindowStart: start,
		ClaimWindowEnd:   start.Add(time.Hour),
		Stock:            stock,
	})
	require.NoError(t, err)

	return drop
}

func TestUserDAO(t *testing.T) {
	ctx := context.Background()
	users := NewStore().Users()

	created, err := users.Insert(ctx, dao.User{Email: "a@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.ID)

	_, err = users.Insert(ctx, dao.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, dao.ErrUserEmailExists)

	found, err := users.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = users.FindByID(ctx, 42)
	assert.ErrorIs(t, err, dao.ErrUserNotFound)
}

func TestClaimDAO_CommitsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	drop := seedDrop(t, s, 2)
	boom := errors.New("boom")

	err := s.Claims().WithDropLocked(ctx, drop.ID, func(tx dao.ClaimTx) error {
		require.NoError(t, tx.DecrementStock(ctx))
		_, err := tx.InsertClaim(ctx, dao.Claim{UserID: 1, Code: "c1"})
		require.NoError(t, err)
		assert.Equal(t, 1, tx.Drop().Stock)

		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := s.Drops().FindByID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Stock)
	_, err = s.Claims().FindByUserAndDrop(ctx, 1, drop.ID)
	assert.ErrorIs(t, err, dao.ErrClaimNotFound)

	err = s.Claims().WithDropLocked(ctx, drop.ID, func(tx dao.ClaimTx) error {
		if err := tx.DecrementStock(ctx); err != nil {
			return err
		}
		_, err := tx.InsertClaim(ctx, dao.Claim{UserID: 1, Code: "c1"})
		return err
	})
	require.NoError(t, err)

	stored, err = s.Drops().FindByID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)

	claim, err := s.Claims().FindByUserAndDrop(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, "c1", claim.Code)
	assert.Equal(t, drop.ID, claim.DropID)
}

func TestClaimDAO_Conflicts(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	drop := seedDrop(t, s, 5)

	insert := func(userID uint, code string) error {
		return s.Claims().WithDropLocked(ctx, drop.ID, func(tx dao.ClaimTx) error {
			_, err := tx.InsertClaim(ctx, dao.Claim{UserID: userID, Code: code})
			return err
		})
	}

	require.NoError(t, insert(1, "alpha"))
	assert.ErrorIs(t, insert(1, "beta"), dao.ErrAlreadyClaimed)
	assert.ErrorIs(t, insert(2, "alpha"), dao.ErrClaimCodeTaken)
	require.NoError(t, insert(2, "beta"))

	err := s.Claims().WithDropLocked(ctx, 99, func(tx dao.ClaimTx) error { return nil })
	assert.ErrorIs(t, err, dao.ErrDropNotFound)
}

func TestClaimDAO_DecrementStopsAtZero(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	drop := seedDrop(t, s, 1)

	err := s.Claims().WithDropLocked(ctx, drop.ID, func(tx dao.ClaimTx) error {
		require.NoError(t, tx.DecrementStock(ctx))
		return tx.DecrementStock(ctx)
	})
	assert.ErrorIs(t, err, dao.ErrOutOfStock)

	stored, err := s.Drops().FindByID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)
}

func TestDropDAO_DeleteWithClaims(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	drop := seedDrop(t, s, 1)
	other := seedDrop(t, s, 1)

	_, err := s.Waitlist().Insert(ctx, 1, other.ID)
	require.NoError(t, err)
	require.NoError(t, s.Claims().WithDropLocked(ctx, drop.ID, func(tx dao.ClaimTx) error {
		_, err := tx.InsertClaim(ctx, dao.Claim{UserID: 1, Code: "x"})
		return err
	}))

	_, err = s.Drops().Delete(ctx, drop.ID)
	assert.ErrorIs(t, err, dao.ErrDropHasClaims)

	_, err = s.Drops().Delete(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Waitlist().Len())

	_, err = s.Waitlist().Insert(ctx, 1, other.ID)
	assert.ErrorIs(t, err, dao.ErrDropNotFound)
}

func TestDropDAO_UpdateSerializesWithClaims(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	drop := seedDrop(t, s, 0)

	var (
		wg         sync.WaitGroup
		decrements atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Drops().Update(ctx, drop.ID, func(d dao.Drop) (dao.Drop, error) {
				d.Stock++
				return d, nil
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			err := s.Claims().WithDropLocked(ctx, drop.ID, func(tx dao.ClaimTx) error {
				return tx.DecrementStock(ctx)
			})
			if err == nil {
				decrements.Add(1)
			}
		}()
	}
	wg.Wait()

	stored, err := s.Drops().FindByID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 50-int(decrements.Load()), stored.Stock)
}
