package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Claim struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_claims_user_drop,priority:1"`
	DropID    uint      `gorm:"not null;uniqueIndex:ux_claims_user_drop,priority:2;index"`
	Code      string    `gorm:"not null;uniqueIndex:ux_claims_code"`
	CreatedAt time.Time `gorm:"not null"`
}

// ClaimTx is one claim attempt running inside the lock boundary of a single drop.
// Nothing done through it is visible to others unless the surrounding call commits.
type ClaimTx interface {
	Drop() Drop
	ClaimExists(ctx context.Context, userID uint) (bool, error)
	DecrementStock(ctx context.Context) error
	InsertClaim(ctx context.Context, claim Claim) (Claim, error)
}

type ClaimDAO struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewClaimDAO(db *gorm.DB, lockTimeout time.Duration) *ClaimDAO {
	return &ClaimDAO{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

// WithDropLocked runs fn in a transaction that holds SELECT ... FOR UPDATE on the drop row.
// Every claim attempt for the same drop queues on that lock, so the stock and duplicate
// checks fn performs cannot be invalidated before commit. Any error from fn rolls back.
func (d *ClaimDAO) WithDropLocked(ctx context.Context, dropID uint, fn func(tx ClaimTx) error) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if d.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		drop, err := lockDrop(tx, dropID, "UPDATE")
		if err != nil {
			return err
		}

		return fn(&gormClaimTx{db: tx, drop: drop})
	})

	return classifyTxErr(err)
}

func (d *ClaimDAO) FindByUserAndDrop(ctx context.Context, userID, dropID uint) (Claim, error) {
	var claim Claim

	result := d.db.WithContext(ctx).First(&claim, "user_id = ? AND drop_id = ?", userID, dropID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Claim{}, ErrClaimNotFound
		}

		return Claim{}, result.Error
	}

	return claim, nil
}

func (d *ClaimDAO) FindByUser(ctx context.Context, userID uint) ([]Claim, error) {
	var claims []Claim

	result := d.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&claims)
	if result.Error != nil {
		return nil, result.Error
	}

	return claims, nil
}

type gormClaimTx struct {
	db   *gorm.DB
	drop Drop
}

func (t *gormClaimTx) Drop() Drop {
	return t.drop
}

func (t *gormClaimTx) ClaimExists(ctx context.Context, userID uint) (bool, error) {
	var count int64

	result := t.db.WithContext(ctx).
		Model(&Claim{}).
		Where("user_id = ? AND drop_id = ?", userID, t.drop.ID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

func (t *gormClaimTx) DecrementStock(ctx context.Context) error {
	result := t.db.WithContext(ctx).
		Model(&Drop{}).
		Where("id = ? AND stock > 0", t.drop.ID).
		UpdateColumn("stock", gorm.Expr("stock - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOutOfStock
	}

	t.drop.Stock--
	return nil
}

func (t *gormClaimTx) InsertClaim(ctx context.Context, claim Claim) (Claim, error) {
	claim.DropID = t.drop.ID

	result := t.db.WithContext(ctx).Create(&claim)
	if result.Error != nil {
		switch {
		case isUniqueViolation(result.Error, claimsUserDropIndex):
			return Claim{}, ErrAlreadyClaimed
		case isUniqueViolation(result.Error, claimsCodeIndex):
			return Claim{}, ErrClaimCodeTaken
		}

		return Claim{}, result.Error
	}

	return claim, nil
}
