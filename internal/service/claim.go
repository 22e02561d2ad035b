package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/dropspot/dropspot-api/internal/config"
	"github.com/dropspot/dropspot-api/internal/domain"
	"github.com/dropspot/dropspot-api/internal/pkg/clock"
	"github.com/dropspot/dropspot-api/internal/pkg/redeemcode"
	"github.com/dropspot/dropspot-api/internal/repository"
)

var (
	ErrOutOfStock     = repository.ErrOutOfStock
	ErrAlreadyClaimed = repository.ErrAlreadyClaimed
	ErrClaimNotFound  = repository.ErrClaimNotFound

	errWindowClosed = errors.New("claim window closed")
)

type ClaimRepository interface {
	WithDropLocked(ctx context.Context, dropID uint, fn func(tx repository.ClaimTx) error) error
	FindByUserAndDrop(ctx context.Context, userID, dropID uint) (domain.Claim, error)
	FindByUser(ctx context.Context, userID uint) ([]domain.Claim, error)
}

// ClaimEngine decides claim attempts. Every attempt for a drop runs inside that drop's lock
// boundary, so the stock and duplicate checks hold until the claim is committed.
type ClaimEngine struct {
	repo   ClaimRepository
	conf   *config.ClaimConfig
	clock  clock.Clock
	codes  redeemcode.Generator
	logger *zap.Logger
	sem    *semaphore.Weighted
}

func NewClaimEngine(
	repo ClaimRepository,
	conf *config.ClaimConfig,
	clk clock.Clock,
	codes redeemcode.Generator,
	logger *zap.Logger,
) *ClaimEngine {
	return &ClaimEngine{
		repo:   repo,
		conf:   conf,
		clock:  clk,
		codes:  codes,
		logger: logger.Named("claim_engine"),
		sem:    semaphore.NewWeighted(conf.MaxInFlight),
	}
}

// Claim attempts to reserve one unit of the drop for the user. It never returns an error:
// storage failures are logged and reported as ClaimInternalError.
//
// The attempt is detached from ctx cancellation. Once submitted it either commits or rolls
// back within the configured timeout.
func (e *ClaimEngine) Claim(ctx context.Context, userID, dropID uint) domain.ClaimResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.conf.Timeout)
	defer cancel()

	log := e.logger.With(zap.Uint("user_id", userID), zap.Uint("drop_id", dropID))

	if err := e.sem.Acquire(ctx, 1); err != nil {
		log.Error("claim not admitted", zap.Error(err))
		return domain.ClaimResult{Outcome: domain.ClaimInternalError}
	}
	defer e.sem.Release(1)

	var lastErr error
	for attempt := 1; attempt <= e.conf.MaxAttempts; attempt++ {
		result, err := e.attempt(ctx, userID, dropID)
		if err == nil {
			return result
		}

		if !isRetryable(err) {
			log.Error("claim attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return domain.ClaimResult{Outcome: domain.ClaimInternalError}
		}

		lastErr = err
		log.Warn("claim attempt rolled back, retrying", zap.Int("attempt", attempt), zap.Error(err))

		if attempt == e.conf.MaxAttempts {
			break
		}
		if err = sleepCtx(ctx, e.conf.RetryBackoff*time.Duration(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	log.Error("claim retries exhausted", zap.Int("max_attempts", e.conf.MaxAttempts), zap.Error(lastErr))

	return domain.ClaimResult{Outcome: domain.ClaimInternalError}
}

// attempt runs one transaction. A nil error means the returned result is final; a non-nil
// error means nothing was committed.
func (e *ClaimEngine) attempt(ctx context.Context, userID, dropID uint) (domain.ClaimResult, error) {
	var granted domain.Claim

	err := e.repo.WithDropLocked(ctx, dropID, func(tx repository.ClaimTx) error {
		now := e.clock.Now().UTC()
		drop := tx.Drop()

		if !drop.ClaimWindowOpen(now) {
			return errWindowClosed
		}
		if drop.Stock <= 0 {
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

		granted, err = tx.InsertClaim(ctx, domain.Claim{
			UserID:    userID,
			DropID:    dropID,
			Code:      e.codes.NewCode(),
			CreatedAt: now,
		})

		return err
	})

	switch {
	case err == nil:
		return domain.ClaimResult{Outcome: domain.ClaimGranted, Claim: &granted}, nil
	case errors.Is(err, repository.ErrDropNotFound):
		return domain.ClaimResult{Outcome: domain.ClaimDropNotFound}, nil
	case errors.Is(err, errWindowClosed):
		return domain.ClaimResult{Outcome: domain.ClaimWindowClosed}, nil
	case errors.Is(err, repository.ErrOutOfStock):
		return domain.ClaimResult{Outcome: domain.ClaimOutOfStock}, nil
	case errors.Is(err, repository.ErrAlreadyClaimed):
		return domain.ClaimResult{Outcome: domain.ClaimAlreadyClaimed}, nil
	}

	return domain.ClaimResult{}, fmt.Errorf("e.repo.WithDropLocked -> %w", err)
}

func (e *ClaimEngine) GetClaim(ctx context.Context, userID, dropID uint) (domain.Claim, error) {
	claim, err := e.repo.FindByUserAndDrop(ctx, userID, dropID)
	if err != nil {
		return domain.Claim{}, fmt.Errorf("e.repo.FindByUserAndDrop -> %w", err)
	}

	return claim, nil
}

func (e *ClaimEngine) ListClaims(ctx context.Context, userID uint) ([]domain.Claim, error) {
	claims, err := e.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("e.repo.FindByUser -> %w", err)
	}

	return claims, nil
}

// isRetryable reports whether the attempt was rolled back for a reason a fresh attempt can fix.
func isRetryable(err error) bool {
	return errors.Is(err, repository.ErrClaimCodeTaken) || errors.Is(err, repository.ErrTxConflict)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
