package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Drop struct {
	ID               uint      `gorm:"primaryKey"`
	Title            string    `gorm:"not null;index"`
	Description      string
	ClaimWindowStart time.Time `gorm:"type:timestamptz;not null"`
	ClaimWindowEnd   time.Time `gorm:"type:timestamptz;not null"`
	Stock            int       `gorm:"not null;check:chk_drops_stock,stock >= 0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type DropDAO struct {
	db *gorm.DB
}

func NewDropDAO(db *gorm.DB) *DropDAO {
	return &DropDAO{
		db: db,
	}
}

func (d *DropDAO) Insert(ctx context.Context, drop Drop) (Drop, error) {
	if err := d.db.WithContext(ctx).Create(&drop).Error; err != nil {
		return Drop{}, err
	}

	return drop, nil
}

func (d *DropDAO) FindByID(ctx context.Context, id uint) (Drop, error) {
	var drop Drop

	result := d.db.WithContext(ctx).First(&drop, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Drop{}, ErrDropNotFound
		}

		return Drop{}, result.Error
	}

	return drop, nil
}

func (d *DropDAO) List(ctx context.Context, offset, limit int) ([]Drop, error) {
	var drops []Drop

	result := d.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&drops)
	if result.Error != nil {
		return nil, result.Error
	}

	return drops, nil
}

// Update applies mutate to the drop while holding its row lock, the same lock claim
// attempts take, so an admin edit never interleaves with a stock decrement.
func (d *DropDAO) Update(ctx context.Context, id uint, mutate func(Drop) (Drop, error)) (Drop, error) {
	var updated Drop

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockDrop(tx, id, "UPDATE")
		if err != nil {
			return err
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		if err := tx.Model(&Drop{}).Where("id = ?", id).Updates(map[string]any{
			"title":              next.Title,
			"description":        next.Description,
			"claim_window_start": next.ClaimWindowStart,
			"claim_window_end":   next.ClaimWindowEnd,
			"stock":              next.Stock,
			"updated_at":         next.UpdatedAt,
		}).Error; err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		return Drop{}, classifyTxErr(err)
	}

	return updated, nil
}

// Delete removes a drop and its waitlist entries. Drops that already have claims are kept.
func (d *DropDAO) Delete(ctx context.Context, id uint) (Drop, error) {
	var deleted Drop

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockDrop(tx, id, "UPDATE")
		if err != nil {
			return err
		}

		var claims int64
		if err := tx.Model(&Claim{}).Where("drop_id = ?", id).Count(&claims).Error; err != nil {
			return err
		}
		if claims > 0 {
			return ErrDropHasClaims
		}

		if err := tx.Where("drop_id = ?", id).Delete(&WaitlistEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Drop{}, id).Error; err != nil {
			return err
		}

		deleted = current
		return nil
	})
	if err != nil {
		return Drop{}, classifyTxErr(err)
	}

	return deleted, nil
}

func lockDrop(tx *gorm.DB, id uint, strength string) (Drop, error) {
	var drop Drop

	result := tx.Clauses(clause.Locking{Strength: strength}).First(&drop, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Drop{}, ErrDropNotFound
		}

		return Drop{}, result.Error
	}

	return drop, nil
}
