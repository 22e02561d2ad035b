package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dropspot/dropspot-api/internal/api/handler/v1/request"
	"github.com/dropspot/dropspot-api/internal/api/handler/v1/response"
	"github.com/dropspot/dropspot-api/internal/domain"
	"github.com/dropspot/dropspot-api/internal/service"
)

type DropService interface {
	CreateDrop(ctx context.Context, drop domain.Drop) (domain.Drop, error)
	ListDrops(ctx context.Context, skip, limit int) ([]domain.Drop, error)
	GetDrop(ctx context.Context, id uint) (domain.Drop, error)
	UpdateDrop(ctx context.Context, id uint, patch domain.DropPatch) (domain.Drop, error)
	DeleteDrop(ctx context.Context, id uint) (domain.Drop, error)
}

type DropHandler struct {
	svc DropService
}

func NewDropHandler(svc DropService) *DropHandler {
	return &DropHandler{
		svc: svc,
	}
}

// HandleListDrops godoc
// @Summary      List drops
// @Tags         drops
// @Produce      json
// @Param        skip    query     int  false  "number of drops to skip"
// @Param        limit   query     int  false  "page size, at most 100"
// @Success      200     {array}   domain.Drop
// @Failure      400     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /drops [get]
func (h *DropHandler) HandleListDrops(ctx *gin.Context) {
	listDrops(ctx, h.svc)
}

// HandleGetDrop godoc
// @Summary      Get a drop
// @Tags         drops
// @Produce      json
// @Param        dropID  path      int  true  "drop ID"
// @Success      200     {object}  domain.Drop
// @Failure      400     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /drops/{dropID} [get]
func (h *DropHandler) HandleGetDrop(ctx *gin.Context) {
	dropID, respErr := parseIDParam(ctx, "dropID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	drop, err := h.svc.GetDrop(ctx.Request.Context(), dropID)
	if err != nil {
		if errors.Is(err, service.ErrDropNotFound) {
			response.RenderErr(ctx, response.ErrNotFound(service.ErrDropNotFound))
			return
		}

		err = fmt.Errorf("v1.HandleGetDrop -> h.svc.GetDrop -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, drop)
}

func listDrops(ctx *gin.Context, svc DropService) {
	var query request.ListDropsQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := query.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	drops, err := svc.ListDrops(ctx.Request.Context(), query.Skip, query.Limit)
	if err != nil {
		err = fmt.Errorf("v1.listDrops -> svc.ListDrops -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, drops)
}
