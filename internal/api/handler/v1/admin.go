package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dropspot/dropspot-api/internal/api/handler/v1/request"
	"github.com/dropspot/dropspot-api/internal/api/handler/v1/response"
	"github.com/dropspot/dropspot-api/internal/service"
)

type AdminHandler struct {
	svc  DropService
	uSvc UserService
}

func NewAdminHandler(svc DropService, uSvc UserService) *AdminHandler {
	return &AdminHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// RequireAdmin rejects requests from authenticated users that are not admins.
func (h *AdminHandler) RequireAdmin(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	if !user.IsAdmin {
		response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("user %v: %w", user.ID, errNotAdmin)))
		return
	}

	ctx.Next()
}

// HandleCreateDrop godoc
// @Summary      Create a drop
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      request.CreateDropRequest  true  "request body"
// @Success      201      {object}  domain.Drop
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /admin/drops [post]
func (h *AdminHandler) HandleCreateDrop(ctx *gin.Context) {
	var req request.CreateDropRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	drop, err := h.svc.CreateDrop(ctx.Request.Context(), req.ToDomain())
	if err != nil {
		if errors.Is(err, service.ErrNegativeStock) || errors.Is(err, service.ErrInvalidClaimWindow) {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}

		err = fmt.Errorf("v1.HandleCreateDrop -> h.svc.CreateDrop -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusCreated, drop)
}

// HandleListDrops godoc
// @Summary      List drops (admin)
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        skip    query     int  false  "number of drops to skip"
// @Param        limit   query     int  false  "page size, at most 100"
// @Success      200     {array}   domain.Drop
// @Failure      400     {object}  response.Err
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /admin/drops [get]
func (h *AdminHandler) HandleListDrops(ctx *gin.Context) {
	listDrops(ctx, h.svc)
}

// HandleUpdateDrop godoc
// @Summary      Update a drop
// @Description  Partial update; omitted fields are unchanged.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        dropID   path      int                        true  "drop ID"
// @Param        request  body      request.UpdateDropRequest  true  "request body"
// @Success      200      {object}  domain.Drop
// @Failure      400      {object}  response.Err
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /admin/drops/{dropID} [put]
func (h *AdminHandler) HandleUpdateDrop(ctx *gin.Context) {
	dropID, respErr := parseIDParam(ctx, "dropID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	var req request.UpdateDropRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	drop, err := h.svc.UpdateDrop(ctx.Request.Context(), dropID, req.ToPatch())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDropNotFound):
			response.RenderErr(ctx, response.ErrNotFound(service.ErrDropNotFound))
		case errors.Is(err, service.ErrNegativeStock), errors.Is(err, service.ErrInvalidClaimWindow):
			response.RenderErr(ctx, response.ErrBadRequest(err))
		default:
			err = fmt.Errorf("v1.HandleUpdateDrop -> h.svc.UpdateDrop -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusOK, drop)
}

// HandleDeleteDrop godoc
// @Summary      Delete a drop
// @Description  Drops that already have claims cannot be deleted.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        dropID   path      int  true  "drop ID"
// @Success      200      {object}  domain.Drop
// @Failure      401      {object}  response.Err
// @Failure      403      {object}  response.Err
// @Failure      404      {object}  response.Err
// @Failure      409      {object}  response.Err
// @Failure      500      {object}  response.Err
// @Router       /admin/drops/{dropID} [delete]
func (h *AdminHandler) HandleDeleteDrop(ctx *gin.Context) {
	dropID, respErr := parseIDParam(ctx, "dropID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	drop, err := h.svc.DeleteDrop(ctx.Request.Context(), dropID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDropNotFound):
			response.RenderErr(ctx, response.ErrNotFound(service.ErrDropNotFound))
		case errors.Is(err, service.ErrDropHasClaims):
			response.RenderErr(ctx, response.ErrConflict(service.ErrDropHasClaims))
		default:
			err = fmt.Errorf("v1.HandleDeleteDrop -> h.svc.DeleteDrop -> %w", err)
			response.RenderErr(ctx, response.ErrInternalServerError(err))
		}

		return
	}

	ctx.JSON(http.StatusOK, drop)
}
