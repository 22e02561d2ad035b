package domain

import "time"

type Drop struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	ClaimWindowStart time.Time `json:"claim_window_start"`
	ClaimWindowEnd   time.Time `json:"claim_window_end"`
	Stock            int       `json:"stock"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ClaimWindowOpen reports whether now lies within [ClaimWindowStart, ClaimWindowEnd].
// Both bounds are inclusive and every instant is compared in UTC.
func (d Drop) ClaimWindowOpen(now time.Time) bool {
	start := d.ClaimWindowStart.UTC()
	end := d.ClaimWindowEnd.UTC()
	now = now.UTC()

	return !now.Before(start) && !now.After(end)
}

// Validate checks the invariants every stored drop must hold.
func (d Drop) Validate() error {
	if d.Stock < 0 {
		return ErrNegativeStock
	}
	if d.ClaimWindowEnd.UTC().Before(d.ClaimWindowStart.UTC()) {
		return ErrInvalidClaimWindow
	}

	return nil
}

// DropPatch carries a partial admin update. Nil fields are left untouched.
type DropPatch struct {
	Title            *string
	Description      *string
	ClaimWindowStart *time.Time
	ClaimWindowEnd   *time.Time
	Stock            *int
}

func (p DropPatch) Apply(d Drop) Drop {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.ClaimWindowStart != nil {
		d.ClaimWindowStart = p.ClaimWindowStart.UTC()
	}
	if p.ClaimWindowEnd != nil {
		d.ClaimWindowEnd = p.ClaimWindowEnd.UTC()
	}
	if p.Stock != nil {
		d.Stock = *p.Stock
	}

	return d
}
