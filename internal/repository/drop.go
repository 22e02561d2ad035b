package repository

import (
	"context"
	"fmt"

	"github.com/dropspot/dropspot-api/internal/domain"
	"github.com/dropspot/dropspot-api/internal/repository/dao"
)

var (
	ErrDropNotFound  = dao.ErrDropNotFound
	ErrDropHasClaims = dao.ErrDropHasClaims
)

type DropDAO interface {
	Insert(ctx context.Context, drop dao.Drop) (dao.Drop, error)
	FindByID(ctx context.Context, id uint) (dao.Drop, error)
	List(ctx context.Context, offset, limit int) ([]dao.Drop, error)
	Update(ctx context.Context, id uint, mutate func(dao.Drop) (dao.Drop, error)) (dao.Drop, error)
	Delete(ctx context.Context, id uint) (dao.Drop, error)
}

type DropRepository struct {
	dao DropDAO
}

func NewDropRepository(dao DropDAO) *DropRepository {
	return &DropRepository{
		dao: dao,
	}
}

func (r *DropRepository) Create(ctx context.Context, drop domain.Drop) (domain.Drop, error) {
	created, err := r.dao.Insert(ctx, dropDomainToDao(drop))
	if err != nil {
		return domain.Drop{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return dropDaoToDomain(created), nil
}

func (r *DropRepository) FindByID(ctx context.Context, id uint) (domain.Drop, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Drop{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return dropDaoToDomain(found), nil
}

func (r *DropRepository) List(ctx context.Context, offset, limit int) ([]domain.Drop, error) {
	found, err := r.dao.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	drops := make([]domain.Drop, len(found))
	for i, d := range found {
		drops[i] = dropDaoToDomain(d)
	}

	return drops, nil
}

func (r *DropRepository) Update(ctx context.Context, id uint, mutate func(domain.Drop) (domain.Drop, error)) (domain.Drop, error) {
	updated, err := r.dao.Update(ctx, id, func(current dao.Drop) (dao.Drop, error) {
		next, err := mutate(dropDaoToDomain(current))
		if err != nil {
			return dao.Drop{}, err
		}

		return dropDomainToDao(next), nil
	})
	if err != nil {
		return domain.Drop{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return dropDaoToDomain(updated), nil
}

func (r *DropRepository) Delete(ctx context.Context, id uint) (domain.Drop, error) {
	deleted, err := r.dao.Delete(ctx, id)
	if err != nil {
		return domain.Drop{}, fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return dropDaoToDomain(deleted), nil
}

func dropDomainToDao(d domain.Drop) dao.Drop {
	return dao.Drop{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		ClaimWindowStart: d.ClaimWindowStart.UTC(),
		ClaimWindowEnd:   d.ClaimWindowEnd.UTC(),
		Stock:            d.Stock,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func dropDaoToDomain(d dao.Drop) domain.Drop {
	return domain.Drop{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		ClaimWindowStart: d.ClaimWindowStart.UTC(),
		ClaimWindowEnd:   d.ClaimWindowEnd.UTC(),
		Stock:            d.Stock,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
