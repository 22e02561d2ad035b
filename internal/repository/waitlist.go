package repository

import (
	"context"
	"fmt"
)

type WaitlistDAO interface {
	Insert(ctx context.Context, userID, dropID uint) (bool, error)
	Delete(ctx context.Context, userID, dropID uint) (bool, error)
	Exists(ctx context.Context, userID, dropID uint) (bool, error)
}

type WaitlistRepository struct {
	dao WaitlistDAO
}

func NewWaitlistRepository(dao WaitlistDAO) *WaitlistRepository {
	return &WaitlistRepository{
		dao: dao,
	}
}

// Add reports whether a new entry was created.
func (r *WaitlistRepository) Add(ctx context.Context, userID, dropID uint) (bool, error) {
	created, err := r.dao.Insert(ctx, userID, dropID)
	if err != nil {
		return false, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return created, nil
}

// Remove reports whether an entry existed and was removed.
func (r *WaitlistRepository) Remove(ctx context.Context, userID, dropID uint) (bool, error) {
	removed, err := r.dao.Delete(ctx, userID, dropID)
	if err != nil {
		return false, fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return removed, nil
}

func (r *WaitlistRepository) Exists(ctx context.Context, userID, dropID uint) (bool, error) {
	exists, err := r.dao.Exists(ctx, userID, dropID)
	if err != nil {
		return false, fmt.Errorf("r.dao.Exists -> %w", err)
	}

	return exists, nil
}
