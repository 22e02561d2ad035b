package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropspot/dropspot-api/internal/config"
	"github.com/dropspot/dropspot-api/internal/domain"
	clockMocks "github.com/dropspot/dropspot-api/internal/pkg/clock/mocks"
	"github.com/dropspot/dropspot-api/internal/pkg/redeemcode"
	codeMocks "github.com/dropspot/dropspot-api/internal/pkg/redeemcode/mocks"
	"github.com/dropspot/dropspot-api/internal/repository"
	"github.com/dropspot/dropspot-api/internal/repository/memdao"
)

type ClaimEngineTestSuite struct {
	suite.Suite
	mockCtrl  *gomock.Controller
	mockClock *clockMocks.MockClock
	store     *memdao.Store
	drops     *DropService
	claimRepo *repository.ClaimRepository
	conf      *config.ClaimConfig
	engine    *ClaimEngine
	ctx       context.Context

	nowMu sync.Mutex
	now   time.Time

	windowStart time.Time
	windowEnd   time.Time
}

func TestClaimEngineTestSuite(t *testing.T) {
	suite.Run(t, new(ClaimEngineTestSuite))
}

func (s *ClaimEngineTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = clockMocks.NewMockClock(s.mockCtrl)
	s.mockClock.EXPECT().Now().DoAndReturn(s.currentTime).AnyTimes()

	s.store = memdao.NewStore()
	s.drops = NewDropService(repository.NewDropRepository(s.store.Drops()))
	s.claimRepo = repository.NewClaimRepository(s.store.Claims())
	s.conf = &config.ClaimConfig{
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
		Timeout:      5 * time.Second,
		MaxInFlight:  16,
	}
	s.engine = s.newEngine(s.claimRepo, redeemcode.New())
	s.ctx = context.Background()

	s.windowStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.windowEnd = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	s.setNow(s.windowStart.Add(30 * time.Minute))
}

func (s *ClaimEngineTestSuite) newEngine(repo ClaimRepository, codes redeemcode.Generator) *ClaimEngine {
	return NewClaimEngine(repo, s.conf, s.mockClock, codes, zap.NewNop())
}

func (s *ClaimEngineTestSuite) currentTime() time.Time {
	s.nowMu.Lock()
	defer s.nowMu.Unlock()

	return s.now
}

func (s *ClaimEngineTestSuite) setNow(now time.Time) {
	s.nowMu.Lock()
	defer s.nowMu.Unlock()

	s.now = now
}

func (s *ClaimEngineTestSuite) createDrop(stock int) domain.Drop {
	drop, err := s.drops.CreateDrop(s.ctx, domain.Drop{
		Title:            "Sneaker drop",
		ClaimWindowStart: s.windowStart,
		ClaimWindowEnd:   s.windowEnd,
		Stock:            stock,
	})
	s.Require().NoError(err)

	return drop
}

func (s *ClaimEngineTestSuite) stockOf(dropID uint) int {
	drop, err := s.drops.GetDrop(s.ctx, dropID)
	s.Require().NoError(err)

	return drop.Stock
}

func (s *ClaimEngineTestSuite) TestClaim_StockOfTwo() {
	drop := s.createDrop(2)

	first := s.engine.Claim(s.ctx, 1, drop.ID)
	s.Equal(domain.ClaimGranted, first.Outcome)
	s.Require().NotNil(first.Claim)
	s.NotEmpty(first.Claim.Code)
	s.Equal(uint(1), first.Claim.UserID)
	s.Equal(drop.ID, first.Claim.DropID)
	s.Equal(1, s.stockOf(drop.ID))

	again := s.engine.Claim(s.ctx, 1, drop.ID)
	s.Equal(domain.ClaimAlreadyClaimed, again.Outcome)
	s.Nil(again.Claim)
	s.Equal(1, s.stockOf(drop.ID))

	second := s.engine.Claim(s.ctx, 2, drop.ID)
	s.Equal(domain.ClaimGranted, second.Outcome)
	s.Equal(0, s.stockOf(drop.ID))
	s.NotEqual(first.Claim.Code, second.Claim.Code)

	third := s.engine.Claim(s.ctx, 3, drop.ID)
	s.Equal(domain.ClaimOutOfStock, third.Outcome)
	s.Equal(0, s.stockOf(drop.ID))
}

func (s *ClaimEngineTestSuite) TestClaim_DropNotFound() {
	result := s.engine.Claim(s.ctx, 1, 999)

	s.Equal(domain.ClaimDropNotFound, result.Outcome)
	s.Nil(result.Claim)
}

func (s *ClaimEngineTestSuite) TestClaim_WindowInThePast() {
	drop := s.createDrop(10)
	s.setNow(s.windowEnd.Add(24 * time.Hour))

	result := s.engine.Claim(s.ctx, 1, drop.ID)

	s.Equal(domain.ClaimWindowClosed, result.Outcome)
	s.Equal(10, s.stockOf(drop.ID))
}

func (s *ClaimEngineTestSuite) TestClaim_WindowBoundaries() {
	tests := []struct {
		name string
		now  time.Time
		want domain.ClaimOutcome
	}{
		{name: "just before start", now: s.windowStart.Add(-time.Nanosecond), want: domain.ClaimWindowClosed},
		{name: "exactly at start", now: s.windowStart, want: domain.ClaimGranted},
		{name: "exactly at end", now: s.windowEnd, want: domain.ClaimGranted},
		{name: "just after end", now: s.windowEnd.Add(time.Nanosecond), want: domain.ClaimWindowClosed},
		{name: "at start in another zone", now: s.windowStart.In(time.FixedZone("UTC+5", 5*3600)), want: domain.ClaimGranted},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			drop := s.createDrop(1)
			s.setNow(tt.now)

			result := s.engine.Claim(s.ctx, 1, drop.ID)
			s.Equal(tt.want, result.Outcome)
		})
	}
}

func (s *ClaimEngineTestSuite) TestClaim_OutOfStockBeforeAlreadyClaimed() {
	drop := s.createDrop(1)

	s.Equal(domain.ClaimGranted, s.engine.Claim(s.ctx, 1, drop.ID).Outcome)
	// Stock is checked first, so the holder of the last unit sees OutOfStock.
	s.Equal(domain.ClaimOutOfStock, s.engine.Claim(s.ctx, 1, drop.ID).Outcome)
}

func (s *ClaimEngineTestSuite) TestClaim_ConcurrentDistinctUsers() {
	const (
		stock = 10
		users = 60
	)
	drop := s.createDrop(stock)

	results := make([]domain.ClaimResult, users)
	var g errgroup.Group
	for i := 0; i < users; i++ {
		i := i
		g.Go(func() error {
			results[i] = s.engine.Claim(s.ctx, uint(i+1), drop.ID)
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	counts := make(map[domain.ClaimOutcome]int)
	codes := make(map[string]struct{})
	for _, r := range results {
		counts[r.Outcome]++
		if r.Granted() {
			codes[r.Claim.Code] = struct{}{}
		}
	}

	s.Equal(stock, counts[domain.ClaimGranted])
	s.Equal(users-stock, counts[domain.ClaimOutOfStock])
	s.Len(codes, stock)
	s.Equal(0, s.stockOf(drop.ID))
}

func (s *ClaimEngineTestSuite) TestClaim_ConcurrentSameUser() {
	const attempts = 25
	drop := s.createDrop(5)

	outcomes := make(chan domain.ClaimOutcome, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			outcomes <- s.engine.Claim(s.ctx, 7, drop.ID).Outcome
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	close(outcomes)

	counts := make(map[domain.ClaimOutcome]int)
	for o := range outcomes {
		counts[o]++
	}

	s.Equal(1, counts[domain.ClaimGranted])
	s.Equal(attempts-1, counts[domain.ClaimAlreadyClaimed])
	s.Equal(4, s.stockOf(drop.ID))
}

func (s *ClaimEngineTestSuite) TestClaim_CodesAreUniqueAcrossDrops() {
	codes := make(map[string]struct{})
	for d := 0; d < 5; d++ {
		drop := s.createDrop(20)
		for u := 1; u <= 20; u++ {
			result := s.engine.Claim(s.ctx, uint(u), drop.ID)
			s.Require().True(result.Granted())

			_, dup := codes[result.Claim.Code]
			s.Require().False(dup)
			codes[result.Claim.Code] = struct{}{}
		}
	}
}

func (s *ClaimEngineTestSuite) TestClaim_CodeCollisionIsRetried() {
	gen := codeMocks.NewMockGenerator(s.mockCtrl)
	gomock.InOrder(
		gen.EXPECT().NewCode().Return("code-a"),
		gen.EXPECT().NewCode().Return("code-a"),
		gen.EXPECT().NewCode().Return("code-b"),
	)
	engine := s.newEngine(s.claimRepo, gen)
	drop := s.createDrop(5)

	first := engine.Claim(s.ctx, 1, drop.ID)
	s.Require().True(first.Granted())
	s.Equal("code-a", first.Claim.Code)

	second := engine.Claim(s.ctx, 2, drop.ID)
	s.Require().True(second.Granted())
	s.Equal("code-b", second.Claim.Code)
	s.Equal(3, s.stockOf(drop.ID))
}

func (s *ClaimEngineTestSuite) TestClaim_CodeCollisionExhaustsRetries() {
	gen := codeMocks.NewMockGenerator(s.mockCtrl)
	gen.EXPECT().NewCode().Return("same").Times(1 + s.conf.MaxAttempts)
	engine := s.newEngine(s.claimRepo, gen)
	drop := s.createDrop(5)

	s.Require().True(engine.Claim(s.ctx, 1, drop.ID).Granted())

	result := engine.Claim(s.ctx, 2, drop.ID)
	s.Equal(domain.ClaimInternalError, result.Outcome)
	s.Equal(4, s.stockOf(drop.ID))

	_, err := engine.GetClaim(s.ctx, 2, drop.ID)
	s.ErrorIs(err, ErrClaimNotFound)
}

func (s *ClaimEngineTestSuite) TestClaim_StorageFailureLeavesNoTrace() {
	engine := s.newEngine(&faultyClaimRepo{
		ClaimRepository: s.claimRepo,
		insertErr:       errors.New("connection reset by peer"),
	}, redeemcode.New())
	drop := s.createDrop(3)

	result := engine.Claim(s.ctx, 1, drop.ID)

	s.Equal(domain.ClaimInternalError, result.Outcome)
	s.Nil(result.Claim)
	s.Equal(3, s.stockOf(drop.ID))

	claims, err := engine.ListClaims(s.ctx, 1)
	s.Require().NoError(err)
	s.Empty(claims)
}

func (s *ClaimEngineTestSuite) TestClaim_TransientConflictIsRetried() {
	repo := &faultyClaimRepo{
		ClaimRepository: s.claimRepo,
		conflicts:       s.conf.MaxAttempts - 1,
	}
	engine := s.newEngine(repo, redeemcode.New())
	drop := s.createDrop(3)

	result := engine.Claim(s.ctx, 1, drop.ID)

	s.True(result.Granted())
	s.Equal(2, s.stockOf(drop.ID))
	s.Equal(s.conf.MaxAttempts, repo.calls)
}

func (s *ClaimEngineTestSuite) TestClaim_TransientConflictExhaustsRetries() {
	repo := &faultyClaimRepo{
		ClaimRepository: s.claimRepo,
		conflicts:       s.conf.MaxAttempts,
	}
	engine := s.newEngine(repo, redeemcode.New())
	drop := s.createDrop(3)

	result := engine.Claim(s.ctx, 1, drop.ID)

	s.Equal(domain.ClaimInternalError, result.Outcome)
	s.Equal(3, s.stockOf(drop.ID))
}

func (s *ClaimEngineTestSuite) TestClaim_IgnoresCallerCancellation() {
	drop := s.createDrop(1)
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	result := s.engine.Claim(ctx, 1, drop.ID)

	s.True(result.Granted())
	s.Equal(0, s.stockOf(drop.ID))
}

func (s *ClaimEngineTestSuite) TestGetAndListClaims() {
	first := s.createDrop(1)
	second := s.createDrop(1)

	_, err := s.engine.GetClaim(s.ctx, 1, first.ID)
	s.ErrorIs(err, ErrClaimNotFound)

	a := s.engine.Claim(s.ctx, 1, first.ID)
	b := s.engine.Claim(s.ctx, 1, second.ID)
	s.Require().True(a.Granted())
	s.Require().True(b.Granted())

	got, err := s.engine.GetClaim(s.ctx, 1, first.ID)
	s.Require().NoError(err)
	s.Equal(a.Claim.Code, got.Code)

	claims, err := s.engine.ListClaims(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(claims, 2)
	s.Equal(first.ID, claims[0].DropID)
	s.Equal(second.ID, claims[1].DropID)

	others, err := s.engine.ListClaims(s.ctx, 2)
	s.Require().NoError(err)
	s.Empty(others)
}

// faultyClaimRepo injects storage failures around a real repository.
type faultyClaimRepo struct {
	*repository.ClaimRepository

	mu        sync.Mutex
	calls     int
	conflicts int
	insertErr error
}

func (r *faultyClaimRepo) WithDropLocked(ctx context.Context, dropID uint, fn func(tx repository.ClaimTx) error) error {
	r.mu.Lock()
	r.calls++
	conflict := r.calls <= r.conflicts
	r.mu.Unlock()

	if conflict {
		return fmt.Errorf("r.dao.WithDropLocked -> %w", repository.ErrTxConflict)
	}

	return r.ClaimRepository.WithDropLocked(ctx, dropID, func(tx repository.ClaimTx) error {
		return fn(&faultyClaimTx{ClaimTx: tx, insertErr: r.insertErr})
	})
}

type faultyClaimTx struct {
	repository.ClaimTx
	insertErr error
}

func (t *faultyClaimTx) InsertClaim(ctx context.Context, claim domain.Claim) (domain.Claim, error) {
	if t.insertErr != nil {
		return domain.Claim{}, t.insertErr
	}

	return t.ClaimTx.InsertClaim(ctx, claim)
}
