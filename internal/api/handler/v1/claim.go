package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dropspot/dropspot-api/internal/api/handler/v1/response"
	"github.com/dropspot/dropspot-api/internal/domain"
	"github.com/dropspot/dropspot-api/internal/service"
)

var (
	errClaimWindowClosed = errors.New("the claim window for this drop is not open")
	errClaimFailed       = errors.New("claim could not be processed")
)

type ClaimEngine interface {
	Claim(ctx context.Context, userID, dropID uint) domain.ClaimResult
	GetClaim(ctx context.Context, userID, dropID uint) (domain.Claim, error)
	ListClaims(ctx context.Context, userID uint) ([]domain.Claim, error)
}

type ClaimHandler struct {
	engine ClaimEngine
	uSvc   UserService
}

func NewClaimHandler(engine ClaimEngine, uSvc UserService) *ClaimHandler {
	return &ClaimHandler{
		engine: engine,
		uSvc:   uSvc,
	}
}

// HandleClaim godoc
// @Summary      Claim one unit of a drop
// @Description  Reserves one unit of stock and returns a unique redemption code.
// @Tags         claims
// @Produce      json
// @Security     BearerAuth
// @Param        dropID  path      int  true  "drop ID"
// @Success      201     {object}  response.ClaimResponse
// @Failure      401     {object}  response.Err
// @Failure      403     {object}  response.Err  "claim window closed"
// @Failure      404     {object}  response.Err  "drop not found"
// @Failure      409     {object}  response.Err  "out of stock or already claimed"
// @Failure      500     {object}  response.Err
// @Router       /drops/{dropID}/claim [post]
func (h *ClaimHandler) HandleClaim(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	dropID, respErr := parseIDParam(ctx, "dropID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	result := h.engine.Claim(ctx.Request.Context(), user.ID, dropID)

	switch result.Outcome {
	case domain.ClaimGranted:
		ctx.JSON(http.StatusCreated, response.NewClaimResponse(*result.Claim))
	case domain.ClaimDropNotFound:
		response.RenderErr(ctx, response.ErrNotFound(service.ErrDropNotFound))
	case domain.ClaimWindowClosed:
		response.RenderErr(ctx, response.ErrPermissionDenied(errClaimWindowClosed))
	case domain.ClaimOutOfStock:
		response.RenderErr(ctx, response.ErrConflict(service.ErrOutOfStock))
	case domain.ClaimAlreadyClaimed:
		response.RenderErr(ctx, response.ErrConflict(service.ErrAlreadyClaimed))
	default:
		// The engine has already logged the cause.
		response.RenderErr(ctx, response.ErrInternalServerError(errClaimFailed))
	}
}

// HandleGetClaim godoc
// @Summary      Get my claim for a drop
// @Tags         claims
// @Produce      json
// @Security     BearerAuth
// @Param        dropID  path      int  true  "drop ID"
// @Success      200     {object}  domain.Claim
// @Failure      401     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /drops/{dropID}/claim [get]
func (h *ClaimHandler) HandleGetClaim(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	dropID, respErr := parseIDParam(ctx, "dropID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	claim, err := h.engine.GetClaim(ctx.Request.Context(), user.ID, dropID)
	if err != nil {
		if errors.Is(err, service.ErrClaimNotFound) {
			response.RenderErr(ctx, response.ErrNotFound(service.ErrClaimNotFound))
			return
		}

		err = fmt.Errorf("v1.HandleGetClaim -> h.engine.GetClaim -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, claim)
}

// HandleListClaims godoc
// @Summary      List my claims
// @Tags         claims
// @Produce      json
// @Security     BearerAuth
// @Success      200     {array}   domain.Claim
// @Failure      401     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /claims [get]
func (h *ClaimHandler) HandleListClaims(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	claims, err := h.engine.ListClaims(ctx.Request.Context(), user.ID)
	if err != nil {
		err = fmt.Errorf("v1.HandleListClaims -> h.engine.ListClaims -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, claims)
}
