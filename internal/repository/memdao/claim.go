package memdao

import (
	"context"
	"sort"

	"github.com/dropspot/dropspot-api/internal/repository/dao"
)

type ClaimDAO struct {
	s *Store
}

// WithDropLocked runs fn while holding the drop's mutex. Stock and claim changes made
// through the tx are staged and only published if fn returns nil.
func (d *ClaimDAO) WithDropLocked(_ context.Context, dropID uint, fn func(tx dao.ClaimTx) error) error {
	ds, err := d.s.lockDrop(dropID)
	if err != nil {
		return err
	}
	defer ds.mu.Unlock()

	d.s.mu.RLock()
	snapshot := ds.drop
	d.s.mu.RUnlock()

	tx := &claimTx{s: d.s, drop: snapshot}
	if err := fn(tx); err != nil {
		return err
	}

	return d.commit(ds, tx)
}

func (d *ClaimDAO) commit(ds *dropState, tx *claimTx) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	for _, claim := range tx.claims {
		if _, ok := d.s.claimsByCode[claim.Code]; ok {
			return dao.ErrClaimCodeTaken
		}
		if _, ok := d.s.claimsByKey[userDropKey{userID: claim.UserID, dropID: claim.DropID}]; ok {
			return dao.ErrAlreadyClaimed
		}
	}

	for _, claim := range tx.claims {
		d.s.claims[claim.ID] = claim
		d.s.claimsByKey[userDropKey{userID: claim.UserID, dropID: claim.DropID}] = claim.ID
		d.s.claimsByCode[claim.Code] = claim.ID
	}
	ds.claims += len(tx.claims)
	ds.drop.Stock = tx.drop.Stock

	return nil
}

func (d *ClaimDAO) FindByUserAndDrop(_ context.Context, userID, dropID uint) (dao.Claim, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	id, ok := d.s.claimsByKey[userDropKey{userID: userID, dropID: dropID}]
	if !ok {
		return dao.Claim{}, dao.ErrClaimNotFound
	}

	return d.s.claims[id], nil
}

func (d *ClaimDAO) FindByUser(_ context.Context, userID uint) ([]dao.Claim, error) {
	d.s.mu.RLock()
	claims := make([]dao.Claim, 0)
	for _, claim := range d.s.claims {
		if claim.UserID == userID {
			claims = append(claims, claim)
		}
	}
	d.s.mu.RUnlock()

	sort.Slice(claims, func(i, j int) bool { return claims[i].ID < claims[j].ID })

	return claims, nil
}

type claimTx struct {
	s      *Store
	drop   dao.Drop
	claims []dao.Claim
}

func (t *claimTx) Drop() dao.Drop {
	return t.drop
}

func (t *claimTx) ClaimExists(_ context.Context, userID uint) (bool, error) {
	for _, claim := range t.claims {
		if claim.UserID == userID {
			return true, nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	_, ok := t.s.claimsByKey[userDropKey{userID: userID, dropID: t.drop.ID}]
	return ok, nil
}

func (t *claimTx) DecrementStock(_ context.Context) error {
	if t.drop.Stock <= 0 {
		return dao.ErrOutOfStock
	}

	t.drop.Stock--
	return nil
}

func (t *claimTx) InsertClaim(ctx context.Context, claim dao.Claim) (dao.Claim, error) {
	exists, err := t.ClaimExists(ctx, claim.UserID)
	if err != nil {
		return dao.Claim{}, err
	}
	if exists {
		return dao.Claim{}, dao.ErrAlreadyClaimed
	}

	t.s.mu.RLock()
	_, taken := t.s.claimsByCode[claim.Code]
	t.s.mu.RUnlock()
	if taken {
		return dao.Claim{}, dao.ErrClaimCodeTaken
	}
	for _, staged := range t.claims {
		if staged.Code == claim.Code {
			return dao.Claim{}, dao.ErrClaimCodeTaken
		}
	}

	claim.ID = uint(t.s.claimSeq.Add(1))
	claim.DropID = t.drop.ID
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now()
	}
	t.claims = append(t.claims, claim)

	return claim, nil
}
