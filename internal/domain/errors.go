package domain

import "errors"

var (
	ErrNegativeStock      = errors.New("stock must not be negative")
	ErrInvalidClaimWindow = errors.New("claim window start must not be after its end")
)
