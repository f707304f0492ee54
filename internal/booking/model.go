package booking

import (
	"time"

	"gymdesk/internal/schedule"
)

type Kind string

const (
	// KindPersonal is a one-off 1:1 session between a trainer and a member.
	KindPersonal Kind = "personal"
	// KindReservation is a member's seat in a recurring group class.
	KindReservation Kind = "reservation"
)

type State string

const (
	StateScheduled State = "scheduled"
	StateCompleted State = "completed"
	StateNoShow    State = "no_show"
	StateCancelled State = "cancelled"
)

// Class is a recurring group booking: one trainer, a weekday time window, and
// a capacity cap shared by its reservation rows.
type Class struct {
	ID        int                `db:"id" json:"id"`
	TrainerID int                `db:"trainer_id" json:"trainer_id"`
	Title     string             `db:"title" json:"title"`
	Weekday   time.Weekday       `db:"weekday" json:"weekday"`
	StartTime schedule.TimeOfDay `db:"start_min" json:"start_time" swaggertype:"string"`
	EndTime   schedule.TimeOfDay `db:"end_min" json:"end_time" swaggertype:"string"`
	Capacity  int                `db:"capacity" json:"capacity"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}

func (c *Class) slot() schedule.Slot {
	return schedule.Slot{
		Dim:   schedule.RecurringOn(c.Weekday),
		Start: c.StartTime,
		End:   c.EndTime,
	}
}

// Booking is either a personal session (with its own date and time window) or
// a class reservation (times live on the class). Cancellation is a soft state;
// rows are never deleted.
type Booking struct {
	ID        int                 `db:"id" json:"id"`
	Kind      Kind                `db:"kind" json:"kind"`
	TrainerID int                 `db:"trainer_id" json:"trainer_id"`
	MemberID  int                 `db:"member_id" json:"member_id"`
	ClassID   *int                `db:"class_id" json:"class_id,omitempty"`
	Date      *time.Time          `db:"session_date" json:"date,omitempty"`
	StartTime *schedule.TimeOfDay `db:"start_min" json:"start_time,omitempty" swaggertype:"string"`
	EndTime   *schedule.TimeOfDay `db:"end_min" json:"end_time,omitempty" swaggertype:"string"`
	State     State               `db:"state" json:"state"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

type CreateClassRequest struct {
	TrainerID int    `json:"trainer_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Weekday   int    `json:"weekday" binding:"min=0,max=6"`
	StartTime string `json:"start_time" binding:"required,timeofday"`
	EndTime   string `json:"end_time" binding:"required,timeofday"`
	Capacity  int    `json:"capacity" binding:"required,gt=0"`
}

type CreatePersonalRequest struct {
	TrainerID int    `json:"trainer_id" binding:"required"`
	MemberID  int    `json:"member_id" binding:"required"`
	Date      string `json:"date" binding:"required"` // YYYY-MM-DD
	StartTime string `json:"start_time" binding:"required,timeofday"`
	EndTime   string `json:"end_time" binding:"required,timeofday"`
}

type UpdatePersonalRequest struct {
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required,timeofday"`
	EndTime   string `json:"end_time" binding:"required,timeofday"`
}

type ReserveRequest struct {
	MemberID int `json:"member_id" binding:"required"`
}
