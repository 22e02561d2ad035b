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

type WaitlistRegistry interface {
	Join(ctx context.Context, userID, dropID uint) (domain.JoinOutcome, error)
	Leave(ctx context.Context, userID, dropID uint) (domain.LeaveOutcome, error)
	IsMember(ctx context.Context, userID, dropID uint) (bool, error)
}

type WaitlistHandler struct {
	registry WaitlistRegistry
	uSvc     UserService
}

func NewWaitlistHandler(registry WaitlistRegistry, uSvc UserService) *WaitlistHandler {
	return &WaitlistHandler{
		registry: registry,
		uSvc:     uSvc,
	}
}

// HandleJoin godoc
// @Summary      Join a drop's waitlist
// @Description  Idempotent: joining twice reports ALREADY_IN_WAITLIST.
// @Tags         waitlist
// @Produce      json
// @Security     BearerAuth
// @Param        dropID  path      int  true  "drop ID"
// @Success      200     {object}  response.WaitlistResponse
// @Failure      401     {object}  response.Err
// @Failure      404     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /drops/{dropID}/join [post]
func (h *WaitlistHandler) HandleJoin(ctx *gin.Context) {
	user, dropID, respErr := h.userAndDrop(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	outcome, err := h.registry.Join(ctx.Request.Context(), user.ID, dropID)
	if err != nil {
		if errors.Is(err, service.ErrDropNotFound) {
			response.RenderErr(ctx, response.ErrNotFound(service.ErrDropNotFound))
			return
		}

		err = fmt.Errorf("v1.HandleJoin -> h.registry.Join -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.WaitlistResponse{DropID: dropID, Status: outcome.String()})
}

// HandleLeave godoc
// @Summary      Leave a drop's waitlist
// @Description  Never fails for a user who is not on the waitlist.
// @Tags         waitlist
// @Produce      json
// @Security     BearerAuth
// @Param        dropID  path      int  true  "drop ID"
// @Success      200     {object}  response.WaitlistResponse
// @Failure      401     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /drops/{dropID}/leave [post]
func (h *WaitlistHandler) HandleLeave(ctx *gin.Context) {
	user, dropID, respErr := h.userAndDrop(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	outcome, err := h.registry.Leave(ctx.Request.Context(), user.ID, dropID)
	if err != nil {
		err = fmt.Errorf("v1.HandleLeave -> h.registry.Leave -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.WaitlistResponse{DropID: dropID, Status: outcome.String()})
}

// HandleMembership godoc
// @Summary      Check waitlist membership
// @Tags         waitlist
// @Produce      json
// @Security     BearerAuth
// @Param        dropID  path      int  true  "drop ID"
// @Success      200     {object}  response.MembershipResponse
// @Failure      401     {object}  response.Err
// @Failure      500     {object}  response.Err
// @Router       /drops/{dropID}/waitlist [get]
func (h *WaitlistHandler) HandleMembership(ctx *gin.Context) {
	user, dropID, respErr := h.userAndDrop(ctx)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	joined, err := h.registry.IsMember(ctx.Request.Context(), user.ID, dropID)
	if err != nil {
		err = fmt.Errorf("v1.HandleMembership -> h.registry.IsMember -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	ctx.JSON(http.StatusOK, response.MembershipResponse{DropID: dropID, Joined: joined})
}

func (h *WaitlistHandler) userAndDrop(ctx *gin.Context) (domain.User, uint, *response.Err) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		return domain.User{}, 0, respErr
	}

	dropID, respErr := parseIDParam(ctx, "dropID")
	if respErr != nil {
		return domain.User{}, 0, respErr
	}

	return user, dropID, nil
}
