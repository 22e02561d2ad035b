package service

import (
	"context"
	"fmt"

	"github.com/dropspot/dropspot-api/internal/domain"
	"github.com/dropspot/dropspot-api/internal/repository"
)

const (
	DefaultDropListLimit = 100
	MaxDropListLimit     = 100
)

var (
	ErrDropNotFound       = repository.ErrDropNotFound
	ErrDropHasClaims      = repository.ErrDropHasClaims
	ErrNegativeStock      = domain.ErrNegativeStock
	ErrInvalidClaimWindow = domain.ErrInvalidClaimWindow
)

type DropRepository interface {
	Create(ctx context.Context, drop domain.Drop) (domain.Drop, error)
	FindByID(ctx context.Context, id uint) (domain.Drop, error)
	List(ctx context.Context, offset, limit int) ([]domain.Drop, error)
	Update(ctx context.Context, id uint, mutate func(domain.Drop) (domain.Drop, error)) (domain.Drop, error)
	Delete(ctx context.Context, id uint) (domain.Drop, error)
}

type DropService struct {
	repo DropRepository
}

func NewDropService(repo DropRepository) *DropService {
	return &DropService{
		repo: repo,
	}
}

func (s *DropService) CreateDrop(ctx context.Context, drop domain.Drop) (domain.Drop, error) {
	drop.ClaimWindowStart = drop.ClaimWindowStart.UTC()
	drop.ClaimWindowEnd = drop.ClaimWindowEnd.UTC()
	if err := drop.Validate(); err != nil {
		return domain.Drop{}, err
	}

	created, err := s.repo.Create(ctx, drop)
	if err != nil {
		return domain.Drop{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

// ListDrops returns drops ordered by id. A limit outside (0, MaxDropListLimit] falls back to the default
// or the cap.
func (s *DropService) ListDrops(ctx context.Context, skip, limit int) ([]domain.Drop, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultDropListLimit
	}
	if limit > MaxDropListLimit {
		limit = MaxDropListLimit
	}

	drops, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("s.repo.List -> %w", err)
	}

	return drops, nil
}

func (s *DropService) GetDrop(ctx context.Context, id uint) (domain.Drop, error) {
	drop, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Drop{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return drop, nil
}

// UpdateDrop applies patch while holding the same lock claim attempts take, so stock edits never
// interleave with a claim in progress.
func (s *DropService) UpdateDrop(ctx context.Context, id uint, patch domain.DropPatch) (domain.Drop, error) {
	updated, err := s.repo.Update(ctx, id, func(current domain.Drop) (domain.Drop, error) {
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return domain.Drop{}, err
		}

		return next, nil
	})
	if err != nil {
		return domain.Drop{}, fmt.Errorf("s.repo.Update -> %w", err)
	}

	return updated, nil
}

func (s *DropService) DeleteDrop(ctx context.Context, id uint) (domain.Drop, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return domain.Drop{}, fmt.Errorf("s.repo.Delete -> %w", err)
	}

	return deleted, nil
}
