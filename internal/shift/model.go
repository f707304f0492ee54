package shift

import (
	"time"

	"gymdesk/internal/schedule"
)

// Shift is a recurring weekly coverage block owned by one trainer.
type Shift struct {
	ID        int                `db:"id" json:"id"`
	TrainerID int                `db:"trainer_id" json:"trainer_id"`
	Weekday   time.Weekday       `db:"weekday" json:"weekday"`
	StartTime schedule.TimeOfDay `db:"start_min" json:"start_time" swaggertype:"string"`
	EndTime   schedule.TimeOfDay `db:"end_min" json:"end_time" swaggertype:"string"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}

func (s *Shift) slot() schedule.Slot {
	return schedule.Slot{
		Dim:   schedule.RecurringOn(s.Weekday),
		Start: s.StartTime,
		End:   s.EndTime,
	}
}

type RequestState string

const (
	StatePending  RequestState = "pending"
	StateAccepted RequestState = "accepted"
	StateRejected RequestState = "rejected"
)

// ExchangeRequest is a proposal to swap the ownership of two shifts. Pending is
// the only state it can leave; accepted and rejected are final.
type ExchangeRequest struct {
	ID            int          `db:"id" json:"id"`
	OriginShiftID int          `db:"origin_shift_id" json:"origin_shift_id"`
	TargetShiftID int          `db:"target_shift_id" json:"target_shift_id"`
	RequesterID   int          `db:"requester_id" json:"requester_id"`
	RecipientID   int          `db:"recipient_id" json:"recipient_id"`
	State         RequestState `db:"state" json:"state"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	ResolvedAt    *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
}

type CreateShiftRequest struct {
	TrainerID int    `json:"trainer_id" binding:"required"`
	Weekday   int    `json:"weekday" binding:"min=0,max=6"`
	StartTime string `json:"start_time" binding:"required,timeofday"`
	EndTime   string `json:"end_time" binding:"required,timeofday"`
}

type ProposeRequest struct {
	OriginShiftID int `json:"origin_shift_id" binding:"required"`
	TargetShiftID int `json:"target_shift_id" binding:"required"`
	RequesterID   int `json:"requester_id" binding:"required"`
}

type RespondRequest struct {
	Accept bool `json:"accept"`
}
