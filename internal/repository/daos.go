package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/dropspot/dropspot-api/internal/repository/dao"
	"github.com/dropspot/dropspot-api/internal/repository/memdao"
)

// DAOs bundles the storage backend the repositories are built on.
type DAOs struct {
	Users    UserDAO
	Drops    DropDAO
	Waitlist WaitlistDAO
	Claims   ClaimDAO
}

func NewPostgresDAOs(db *gorm.DB, lockTimeout time.Duration) DAOs {
	return DAOs{
		Users:    dao.NewUserDAO(db),
		Drops:    dao.NewDropDAO(db),
		Waitlist: dao.NewWaitlistDAO(db),
		Claims:   dao.NewClaimDAO(db, lockTimeout),
	}
}

func NewMemoryDAOs(store *memdao.Store) DAOs {
	return DAOs{
		Users:    store.Users(),
		Drops:    store.Drops(),
		Waitlist: store.Waitlist(),
		Claims:   store.Claims(),
	}
}
