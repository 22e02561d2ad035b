package domain

import "time"

type Claim struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	DropID    uint      `json:"drop_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// ClaimOutcome is the closed set of results a claim attempt can end with.
type ClaimOutcome int

const (
	ClaimGranted ClaimOutcome = iota
	ClaimDropNotFound
	ClaimWindowClosed
	ClaimOutOfStock
	ClaimAlreadyClaimed
	ClaimInternalError
)

func (o ClaimOutcome) String() string {
	switch o {
	case ClaimGranted:
		return "GRANTED"
	case ClaimDropNotFound:
		return "DROP_NOT_FOUND"
	case ClaimWindowClosed:
		return "WINDOW_CLOSED"
	case ClaimOutOfStock:
		return "OUT_OF_STOCK"
	case ClaimAlreadyClaimed:
		return "ALREADY_CLAIMED"
	case ClaimInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// ClaimResult is returned by every claim attempt. Claim is set only when Outcome is ClaimGranted.
type ClaimResult struct {
	Outcome ClaimOutcome
	Claim   *Claim
}

func (r ClaimResult) Granted() bool {
	return r.Outcome == ClaimGranted
}
