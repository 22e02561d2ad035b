// Package memdao keeps every table in process memory. It implements the same DAO contracts
// as the gorm package and serializes claim attempts with one mutex per drop.
package memdao

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dropspot/dropspot-api/internal/repository/dao"
)

type userDropKey struct {
	userID uint
	dropID uint
}

// dropState guards one drop. Lock order is always dropState.mu before Store.mu.
type dropState struct {
	mu      sync.Mutex
	drop    dao.Drop
	claims  int
	deleted bool
}

type Store struct {
	mu sync.RWMutex

	users        map[uint]dao.User
	usersByEmail map[string]uint
	drops        map[uint]*dropState
	waitlist     map[userDropKey]dao.WaitlistEntry
	claims       map[uint]dao.Claim
	claimsByKey  map[userDropKey]uint
	claimsByCode map[string]uint

	userSeq     atomic.Uint64
	dropSeq     atomic.Uint64
	waitlistSeq atomic.Uint64
	claimSeq    atomic.Uint64
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uint]dao.User),
		usersByEmail: make(map[string]uint),
		drops:        make(map[uint]*dropState),
		waitlist:     make(map[userDropKey]dao.WaitlistEntry),
		claims:       make(map[uint]dao.Claim),
		claimsByKey:  make(map[userDropKey]uint),
		claimsByCode: make(map[string]uint),
	}
}

func now() time.Time {
	return time.Now().UTC()
}

// Users returns a view of the store satisfying the user DAO contract.
func (s *Store) Users() *UserDAO { return &UserDAO{s: s} }

func (s *Store) Drops() *DropDAO { return &DropDAO{s: s} }

func (s *Store) Waitlist() *WaitlistDAO { return &WaitlistDAO{s: s} }

func (s *Store) Claims() *ClaimDAO { return &ClaimDAO{s: s} }

func (s *Store) dropState(id uint) (*dropState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.drops[id]
	return ds, ok
}

// lockDrop returns the drop's state with its mutex held, or ErrDropNotFound.
func (s *Store) lockDrop(id uint) (*dropState, error) {
	ds, ok := s.dropState(id)
	if !ok {
		return nil, dao.ErrDropNotFound
	}

	ds.mu.Lock()
	if ds.deleted {
		ds.mu.Unlock()
		return nil, dao.ErrDropNotFound
	}

	return ds, nil
}

type UserDAO struct {
	s *Store
}

func (d *UserDAO) Insert(_ context.Context, user dao.User) (dao.User, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, ok := d.s.usersByEmail[user.Email]; ok {
		return dao.User{}, dao.ErrUserEmailExists
	}

	user.ID = uint(d.s.userSeq.Add(1))
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	d.s.users[user.ID] = user
	d.s.usersByEmail[user.Email] = user.ID

	return user, nil
}

func (d *UserDAO) FindByID(_ context.Context, id uint) (dao.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	user, ok := d.s.users[id]
	if !ok {
		return dao.User{}, dao.ErrUserNotFound
	}

	return user, nil
}

func (d *UserDAO) FindByEmail(_ context.Context, email string) (dao.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	id, ok := d.s.usersByEmail[email]
	if !ok {
		return dao.User{}, dao.ErrUserNotFound
	}

	return d.s.users[id], nil
}

type DropDAO struct {
	s *Store
}

func (d *DropDAO) Insert(_ context.Context, drop dao.Drop) (dao.Drop, error) {
	drop.ID = uint(d.s.dropSeq.Add(1))
	drop.CreatedAt = now()
	drop.UpdatedAt = drop.CreatedAt

	d.s.mu.Lock()
	d.s.drops[drop.ID] = &dropState{drop: drop}
	d.s.mu.Unlock()

	return drop, nil
}

func (d *DropDAO) FindByID(_ context.Context, id uint) (dao.Drop, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	ds, ok := d.s.drops[id]
	if !ok {
		return dao.Drop{}, dao.ErrDropNotFound
	}

	return ds.drop, nil
}

func (d *DropDAO) List(_ context.Context, offset, limit int) ([]dao.Drop, error) {
	d.s.mu.RLock()
	drops := make([]dao.Drop, 0, len(d.s.drops))
	for _, ds := range d.s.drops {
		drops = append(drops, ds.drop)
	}
	d.s.mu.RUnlock()

	sort.Slice(drops, func(i, j int) bool { return drops[i].ID < drops[j].ID })

	if offset >= len(drops) {
		return []dao.Drop{}, nil
	}
	drops = drops[offset:]
	if limit >= 0 && limit < len(drops) {
		drops = drops[:limit]
	}

	return drops, nil
}

func (d *DropDAO) Update(_ context.Context, id uint, mutate func(dao.Drop) (dao.Drop, error)) (dao.Drop, error) {
	ds, err := d.s.lockDrop(id)
	if err != nil {
		return dao.Drop{}, err
	}
	defer ds.mu.Unlock()

	next, err := mutate(ds.drop)
	if err != nil {
		return dao.Drop{}, err
	}
	next.ID = ds.drop.ID
	next.CreatedAt = ds.drop.CreatedAt
	next.UpdatedAt = now()

	d.s.mu.Lock()
	ds.drop = next
	d.s.mu.Unlock()

	return next, nil
}

func (d *DropDAO) Delete(_ context.Context, id uint) (dao.Drop, error) {
	ds, err := d.s.lockDrop(id)
	if err != nil {
		return dao.Drop{}, err
	}
	defer ds.mu.Unlock()

	if ds.claims > 0 {
		return dao.Drop{}, dao.ErrDropHasClaims
	}

	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	for key := range d.s.waitlist {
		if key.dropID == id {
			delete(d.s.waitlist, key)
		}
	}
	delete(d.s.drops, id)
	ds.deleted = true

	return ds.drop, nil
}

type WaitlistDAO struct {
	s *Store
}

func (d *WaitlistDAO) Insert(_ context.Context, userID, dropID uint) (bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, ok := d.s.drops[dropID]; !ok {
		return false, dao.ErrDropNotFound
	}

	key := userDropKey{userID: userID, dropID: dropID}
	if _, ok := d.s.waitlist[key]; ok {
		return false, nil
	}

	d.s.waitlist[key] = dao.WaitlistEntry{
		ID:        uint(d.s.waitlistSeq.Add(1)),
		UserID:    userID,
		DropID:    dropID,
		CreatedAt: now(),
	}

	return true, nil
}

func (d *WaitlistDAO) Delete(_ context.Context, userID, dropID uint) (bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	key := userDropKey{userID: userID, dropID: dropID}
	if _, ok := d.s.waitlist[key]; !ok {
		return false, nil
	}
	delete(d.s.waitlist, key)

	return true, nil
}

func (d *WaitlistDAO) Exists(_ context.Context, userID, dropID uint) (bool, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	_, ok := d.s.waitlist[userDropKey{userID: userID, dropID: dropID}]
	return ok, nil
}

// Len returns the number of waitlist entries across all drops.
func (d *WaitlistDAO) Len() int {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	return len(d.s.waitlist)
}
