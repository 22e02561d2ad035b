package request

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dropspot/dropspot-api/internal/domain"
)

var errEmptyUpdate = errors.New("at least one field must be provided")

type CreateDropRequest struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	ClaimWindowStart *Timestamp `json:"claim_window_start" swaggertype:"string" example:"2026-11-01T10:00:00Z"`
	ClaimWindowEnd   *Timestamp `json:"claim_window_end" swaggertype:"string" example:"2026-11-01T12:00:00Z"`
	Stock            *int       `json:"stock"`
}

func (req *CreateDropRequest) Validate() error {
	err := validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
		validation.Field(&req.ClaimWindowStart, validation.NotNil),
		validation.Field(&req.ClaimWindowEnd, validation.NotNil),
		validation.Field(&req.Stock, validation.NotNil, validation.Min(0)),
	)
	if err != nil {
		return err
	}

	return req.ToDomain().Validate()
}

func (req *CreateDropRequest) ToDomain() domain.Drop {
	drop := domain.Drop{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.ClaimWindowStart != nil {
		drop.ClaimWindowStart = req.ClaimWindowStart.Time
	}
	if req.ClaimWindowEnd != nil {
		drop.ClaimWindowEnd = req.ClaimWindowEnd.Time
	}
	if req.Stock != nil {
		drop.Stock = *req.Stock
	}

	return drop
}

// UpdateDropRequest is a partial update; omitted fields keep their current value.
type UpdateDropRequest struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	ClaimWindowStart *Timestamp `json:"claim_window_start" swaggertype:"string"`
	ClaimWindowEnd   *Timestamp `json:"claim_window_end" swaggertype:"string"`
	Stock            *int       `json:"stock"`
}

func (req *UpdateDropRequest) Validate() error {
	if req.Title == nil && req.Description == nil && req.ClaimWindowStart == nil &&
		req.ClaimWindowEnd == nil && req.Stock == nil {
		return errEmptyUpdate
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
		validation.Field(&req.Stock, validation.Min(0)),
	)
}

func (req *UpdateDropRequest) ToPatch() domain.DropPatch {
	patch := domain.DropPatch{
		Title:       req.Title,
		Description: req.Description,
		Stock:       req.Stock,
	}
	if req.ClaimWindowStart != nil {
		patch.ClaimWindowStart = &req.ClaimWindowStart.Time
	}
	if req.ClaimWindowEnd != nil {
		patch.ClaimWindowEnd = &req.ClaimWindowEnd.Time
	}

	return patch
}

type ListDropsQuery struct {
	Skip  int `form:"skip"`
	Limit int `form:"limit"`
}

func (q *ListDropsQuery) Validate() error {
	return validation.ValidateStruct(
		q,
		validation.Field(&q.Skip, validation.Min(0)),
		validation.Field(&q.Limit, validation.Min(0)),
	)
}
