package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropspot/dropspot-api/internal/domain"
	"github.com/dropspot/dropspot-api/internal/repository"
)

type WaitlistRepository interface {
	Add(ctx context.Context, userID, dropID uint) (bool, error)
	Remove(ctx context.Context, userID, dropID uint) (bool, error)
	Exists(ctx context.Context, userID, dropID uint) (bool, error)
}

// WaitlistRegistry records which users are interested in which drops. Membership has no
// effect on claim eligibility or ordering.
type WaitlistRegistry struct {
	repo WaitlistRepository
}

func NewWaitlistRegistry(repo WaitlistRepository) *WaitlistRegistry {
	return &WaitlistRegistry{
		repo: repo,
	}
}

func (r *WaitlistRegistry) Join(ctx context.Context, userID, dropID uint) (domain.JoinOutcome, error) {
	created, err := r.repo.Add(ctx, userID, dropID)
	if err != nil {
		if errors.Is(err, repository.ErrDropNotFound) {
			return 0, ErrDropNotFound
		}

		return 0, fmt.Errorf("r.repo.Add -> %w", err)
	}

	if !created {
		return domain.AlreadyJoined, nil
	}

	return domain.Joined, nil
}

// Leave never fails for a user who is not on the waitlist.
func (r *WaitlistRegistry) Leave(ctx context.Context, userID, dropID uint) (domain.LeaveOutcome, error) {
	removed, err := r.repo.Remove(ctx, userID, dropID)
	if err != nil {
		return 0, fmt.Errorf("r.repo.Remove -> %w", err)
	}

	if !removed {
		return domain.NotInWaitlist, nil
	}

	return domain.Left, nil
}

func (r *WaitlistRegistry) IsMember(ctx context.Context, userID, dropID uint) (bool, error) {
	exists, err := r.repo.Exists(ctx, userID, dropID)
	if err != nil {
		return false, fmt.Errorf("r.repo.Exists -> %w", err)
	}

	return exists, nil
}
