package repository

import (
	"context"
	"fmt"

	"github.com/dropspot/dropspot-api/internal/domain"
	"github.com/dropspot/dropspot-api/internal/repository/dao"
)

var (
	ErrOutOfStock     = dao.ErrOutOfStock
	ErrAlreadyClaimed = dao.ErrAlreadyClaimed
	ErrClaimCodeTaken = dao.ErrClaimCodeTaken
	ErrClaimNotFound  = dao.ErrClaimNotFound
	ErrTxConflict     = dao.ErrTxConflict
)

type ClaimDAO interface {
	WithDropLocked(ctx context.Context, dropID uint, fn func(tx dao.ClaimTx) error) error
	FindByUserAndDrop(ctx context.Context, userID, dropID uint) (dao.Claim, error)
	FindByUser(ctx context.Context, userID uint) ([]dao.Claim, error)
}

// ClaimTx is the domain view of dao.ClaimTx.
type ClaimTx interface {
	Drop() domain.Drop
	ClaimExists(ctx context.Context, userID uint) (bool, error)
	DecrementStock(ctx context.Context) error
	InsertClaim(ctx context.Context, claim domain.Claim) (domain.Claim, error)
}

type ClaimRepository struct {
	dao ClaimDAO
}

func NewClaimRepository(dao ClaimDAO) *ClaimRepository {
	return &ClaimRepository{
		dao: dao,
	}
}

func (r *ClaimRepository) WithDropLocked(ctx context.Context, dropID uint, fn func(tx ClaimTx) error) error {
	err := r.dao.WithDropLocked(ctx, dropID, func(tx dao.ClaimTx) error {
		return fn(claimTx{tx: tx})
	})
	if err != nil {
		return fmt.Errorf("r.dao.WithDropLocked -> %w", err)
	}

	return nil
}

func (r *ClaimRepository) FindByUserAndDrop(ctx context.Context, userID, dropID uint) (domain.Claim, error) {
	found, err := r.dao.FindByUserAndDrop(ctx, userID, dropID)
	if err != nil {
		return domain.Claim{}, fmt.Errorf("r.dao.FindByUserAndDrop -> %w", err)
	}

	return claimDaoToDomain(found), nil
}

func (r *ClaimRepository) FindByUser(ctx context.Context, userID uint) ([]domain.Claim, error) {
	found, err := r.dao.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByUser -> %w", err)
	}

	claims := make([]domain.Claim, len(found))
	for i, c := range found {
		claims[i] = claimDaoToDomain(c)
	}

	return claims, nil
}

type claimTx struct {
	tx dao.ClaimTx
}

func (t claimTx) Drop() domain.Drop {
	return dropDaoToDomain(t.tx.Drop())
}

func (t claimTx) ClaimExists(ctx context.Context, userID uint) (bool, error) {
	exists, err := t.tx.ClaimExists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("tx.ClaimExists -> %w", err)
	}

	return exists, nil
}

func (t claimTx) DecrementStock(ctx context.Context) error {
	if err := t.tx.DecrementStock(ctx); err != nil {
		return fmt.Errorf("tx.DecrementStock -> %w", err)
	}

	return nil
}

func (t claimTx) InsertClaim(ctx context.Context, claim domain.Claim) (domain.Claim, error) {
	created, err := t.tx.InsertClaim(ctx, dao.Claim{
		UserID:    claim.UserID,
		DropID:    claim.DropID,
		Code:      claim.Code,
		CreatedAt: claim.CreatedAt,
	})
	if err != nil {
		return domain.Claim{}, fmt.Errorf("tx.InsertClaim -> %w", err)
	}

	return claimDaoToDomain(created), nil
}

func claimDaoToDomain(c dao.Claim) domain.Claim {
	return domain.Claim{
		ID:        c.ID,
		UserID:    c.UserID,
		DropID:    c.DropID,
		Code:      c.Code,
		CreatedAt: c.CreatedAt,
	}
}
