package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:ux_waitlist_user_drop,priority:1"`
	DropID    uint      `gorm:"not null;uniqueIndex:ux_waitlist_user_drop,priority:2;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type WaitlistDAO struct {
	db *gorm.DB
}

func NewWaitlistDAO(db *gorm.DB) *WaitlistDAO {
	return &WaitlistDAO{
		db: db,
	}
}

// Insert adds the entry unless it already exists and reports whether a row was created.
// The drop row is share-locked so a concurrent delete cannot orphan the entry.
func (d *WaitlistDAO) Insert(ctx context.Context, userID, dropID uint) (bool, error) {
	var created bool

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockDrop(tx, dropID, "SHARE"); err != nil {
			return err
		}

		entry := WaitlistEntry{UserID: userID, DropID: dropID}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "drop_id"}},
			DoNothing: true,
		}).Create(&entry)
		if result.Error != nil {
			return result.Error
		}

		created = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, classifyTxErr(err)
	}

	return created, nil
}

func (d *WaitlistDAO) Delete(ctx context.Context, userID, dropID uint) (bool, error) {
	result := d.db.WithContext(ctx).
		Where("user_id = ? AND drop_id = ?", userID, dropID).
		Delete(&WaitlistEntry{})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (d *WaitlistDAO) Exists(ctx context.Context, userID, dropID uint) (bool, error) {
	var count int64

	result := d.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("user_id = ? AND drop_id = ?", userID, dropID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}
