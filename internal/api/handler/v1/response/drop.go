package response

import (
	"time"

	"github.com/dropspot/dropspot-api/internal/domain"
)

type WaitlistResponse struct {
	DropID uint   `json:"drop_id"`
	Status string `json:"status"`
}

type MembershipResponse struct {
	DropID uint `json:"drop_id"`
	Joined bool `json:"joined"`
}

type ClaimResponse struct {
	Status    string    `json:"status"`
	DropID    uint      `json:"drop_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

func NewClaimResponse(claim domain.Claim) ClaimResponse {
	return ClaimResponse{
		Status:    domain.ClaimGranted.String(),
		DropID:    claim.DropID,
		Code:      claim.Code,
		CreatedAt: claim.CreatedAt,
	}
}
