package dao

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB is nil when Docker is not reachable; every test then skips.
var testDB *gorm.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Printf("docker unavailable, skipping postgres tests: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=dropspot",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=dropspot_test",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start postgres: %v", err)
	}
	_ = resource.Expire(180)

	dsn := fmt.Sprintf("host=localhost port=%s user=dropspot password=secret dbname=dropspot_test sslmode=disable TimeZone=UTC",
		resource.GetPort("5432/tcp"))

	pool.MaxWait = 2 * time.Minute
	if err = pool.Retry(func() error {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err = sqlDB.Ping(); err != nil {
			return err
		}

		testDB = db
		return nil
	}); err != nil {
		log.Fatalf("could not connect to postgres: %v", err)
	}

	if err = InitTables(testDB); err != nil {
		log.Fatalf("could not migrate: %v", err)
	}

	code := m.Run()

	if err = pool.Purge(resource); err != nil {
		log.Printf("could not purge postgres: %v", err)
	}

	os.Exit(code)
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testDB == nil {
		t.Skip("postgres is not available")
	}
	require.NoError(t, TruncateTables(testDB))

	return testDB
}

func insertDrop(t *testing.T, db *gorm.DB, stock int) Drop {
	t.Helper()

	start := time.Now().UTC().Add(-time.Hour)
	drop, err := NewDropDAO(db).Insert(context.Background(), Drop{
		Title:            "integration drop",
		ClaimWindowStart: start,
		ClaimWindowEnd:   start.Add(2 * time.Hour),
		Stock:            stock,
	})
	require.NoError(t, err)

	return drop
}

// claim performs the stock and duplicate checks the engine does, inside the drop lock.
func claim(ctx context.Context, d *ClaimDAO, userID, dropID uint, code string) error {
	return d.WithDropLocked(ctx, dropID, func(tx ClaimTx) error {
		if tx.Drop().Stock <= 0 {
			return ErrOutOfStock
		}
		exists, err := tx.ClaimExists(ctx, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyClaimed
		}
		if err = tx.DecrementStock(ctx); err != nil {
			return err
		}
		_, err = tx.InsertClaim(ctx, Claim{UserID: userID, Code: code, CreatedAt: time.Now().UTC()})
		return err
	})
}

func TestUserDAO_Insert(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	users := NewUserDAO(db)

	created, err := users.Insert(ctx, User{Email: "bob@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = users.Insert(ctx, User{Email: "bob@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, ErrUserEmailExists)

	found, err := users.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = users.FindByID(ctx, created.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDropDAO_StockCheckConstraint(t *testing.T) {
	db := setupDB(t)

	start := time.Now().UTC()
	_, err := NewDropDAO(db).Insert(context.Background(), Drop{
		Title:            "broken",
		ClaimWindowStart: start,
		ClaimWindowEnd:   start,
		Stock:            -1,
	})
	assert.Error(t, err)
}

func TestClaimDAO_ConcurrentClaims(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	claims := NewClaimDAO(db, 5*time.Second)
	drop := insertDrop(t, db, 5)

	const users = 30
	var (
		mu      sync.Mutex
		granted int
		out     int
	)

	var g errgroup.Group
	for i := 1; i <= users; i++ {
		userID := uint(i)
		g.Go(func() error {
			err := claim(ctx, claims, userID, drop.ID, fmt.Sprintf("code-%d", userID))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case errors.Is(err, ErrOutOfStock):
				out++
			default:
				return err
			}

			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 5, granted)
	assert.Equal(t, users-5, out)

	stored, err := NewDropDAO(db).FindByID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Stock)
}

func TestClaimDAO_UniqueIndexes(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	claims := NewClaimDAO(db, time.Second)
	drop := insertDrop(t, db, 5)

	insertOnly := func(userID uint, code string) error {
		return claims.WithDropLocked(ctx, drop.ID, func(tx ClaimTx) error {
			if err := tx.DecrementStock(ctx); err != nil {
				return err
			}
			_, err := tx.InsertClaim(ctx, Claim{UserID: userID, Code: code, CreatedAt: time.Now().UTC()})
			return err
		})
	}

	require.NoError(t, insertOnly(1, "alpha"))
	assert.ErrorIs(t, insertOnly(1, "beta"), ErrAlreadyClaimed)
	assert.ErrorIs(t, insertOnly(2, "alpha"), ErrClaimCodeTaken)

	// Both rejected attempts rolled back their decrement.
	stored, err := NewDropDAO(db).FindByID(ctx, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Stock)

	found, err := claims.FindByUserAndDrop(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", found.Code)

	_, err = claims.FindByUserAndDrop(ctx, 2, drop.ID)
	assert.ErrorIs(t, err, ErrClaimNotFound)

	err = claims.WithDropLocked(ctx, drop.ID+100, func(tx ClaimTx) error { return nil })
	assert.ErrorIs(t, err, ErrDropNotFound)
}

func TestClaimDAO_LockTimeout(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	drop := insertDrop(t, db, 1)

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- NewClaimDAO(db, 0).WithDropLocked(ctx, drop.ID, func(tx ClaimTx) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	err := NewClaimDAO(db, 100*time.Millisecond).WithDropLocked(ctx, drop.ID, func(tx ClaimTx) error {
		return nil
	})
	assert.ErrorIs(t, err, ErrTxConflict)

	close(release)
	require.NoError(t, <-done)
}

func TestWaitlistDAO(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	waitlist := NewWaitlistDAO(db)
	drop := insertDrop(t, db, 1)

	created, err := waitlist.Insert(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = waitlist.Insert(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := waitlist.Exists(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	removed, err := waitlist.Delete(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = waitlist.Delete(ctx, 1, drop.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = waitlist.Insert(ctx, 1, drop.ID+100)
	assert.ErrorIs(t, err, ErrDropNotFound)
}

func TestDropDAO_UpdateAndDelete(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	drops := NewDropDAO(db)
	claimed := insertDrop(t, db, 2)
	free := insertDrop(t, db, 2)

	updated, err := drops.Update(ctx, free.ID, func(d Drop) (Drop, error) {
		d.Stock = 7
		return d, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)

	list, err := drops.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, claimed.ID, list[0].ID)

	require.NoError(t, claim(ctx, NewClaimDAO(db, time.Second), 1, claimed.ID, "only"))

	_, err = drops.Delete(ctx, claimed.ID)
	assert.ErrorIs(t, err, ErrDropHasClaims)

	_, err = NewWaitlistDAO(db).Insert(ctx, 1, free.ID)
	require.NoError(t, err)
	_, err = drops.Delete(ctx, free.ID)
	require.NoError(t, err)

	_, err = drops.FindByID(ctx, free.ID)
	assert.ErrorIs(t, err, ErrDropNotFound)
	exists, err := NewWaitlistDAO(db).Exists(ctx, 1, free.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
