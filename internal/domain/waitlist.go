package domain

import "time"

type WaitlistEntry struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	DropID    uint      `json:"drop_id"`
	CreatedAt time.Time `json:"created_at"`
}

type JoinOutcome int

const (
	Joined JoinOutcome = iota
	AlreadyJoined
)

func (o JoinOutcome) String() string {
	switch o {
	case Joined:
		return "JOINED"
	case AlreadyJoined:
		return "ALREADY_IN_WAITLIST"
	default:
		return "UNKNOWN"
	}
}

type LeaveOutcome int

const (
	Left LeaveOutcome = iota
	NotInWaitlist
)

func (o LeaveOutcome) String() string {
	switch o {
	case Left:
		return "LEFT"
	case NotInWaitlist:
		return "NOT_IN_WAITLIST"
	default:
		return "UNKNOWN"
	}
}
