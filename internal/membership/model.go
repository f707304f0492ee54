package membership

import (
	"strconv"
	"time"

	"gymdesk/internal/apperr"
	"gymdesk/internal/audit"
)

type State string

const (
	StateActive    State = "active"
	StateSuspended State = "suspended"
	StateExpired   State = "expired"
	StateCancelled State = "cancelled"
)

// Event is a closed set of lifecycle transitions. Expired and cancelled are
// terminal: no event leads out of them.
type Event string

const (
	EventChange Event = "change"
	EventPause  Event = "pause"
	EventResume Event = "resume"
	EventCancel Event = "cancel"
	EventExpire Event = "expire"
)

// transitions is the full allowed-transition table. Anything not listed is an
// invalid transition.
var transitions = map[State]map[Event]State{
	StateActive: {
		EventChange: StateExpired, // superseded by the replacement row
		EventPause:  StateSuspended,
		EventCancel: StateCancelled,
		EventExpire: StateExpired,
	},
	StateSuspended: {
		EventResume: StateActive,
		EventCancel: StateCancelled,
	},
}

// Next resolves the target state for an event, or an invalid-transition error.
func Next(from State, ev Event) (State, error) {
	if to, ok := transitions[from][ev]; ok {
		return to, nil
	}
	return "", apperr.Transition("", "cannot %s a %s membership", ev, from)
}

type Membership struct {
	ID              int        `db:"id" json:"id"`
	MemberID        int        `db:"member_id" json:"member_id"`
	PlanID          int        `db:"plan_id" json:"plan_id"`
	StartDate       time.Time  `db:"start_date" json:"start_date"`
	ExpiryDate      time.Time  `db:"expiry_date" json:"expiry_date"`
	State           State      `db:"state" json:"state"`
	AmountPaidCents int64      `db:"amount_paid_cents" json:"amount_paid_cents"`
	PauseStart      *time.Time `db:"pause_start" json:"pause_start,omitempty"`
	PauseDays       *int       `db:"pause_days" json:"pause_days,omitempty"`
	CancelReason    *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelNotes     *string    `db:"cancel_notes" json:"cancel_notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

const dateLayout = "2006-01-02"

func (m *Membership) snapshot() audit.Snapshot {
	pauseStart := ""
	if m.PauseStart != nil {
		pauseStart = m.PauseStart.Format(dateLayout)
	}
	pauseDays := ""
	if m.PauseDays != nil {
		pauseDays = strconv.Itoa(*m.PauseDays)
	}
	return audit.Snapshot{
		{Name: "state", Value: string(m.State)},
		{Name: "plan_id", Value: strconv.Itoa(m.PlanID)},
		{Name: "start_date", Value: m.StartDate.Format(dateLayout)},
		{Name: "expiry_date", Value: m.ExpiryDate.Format(dateLayout)},
		{Name: "amount_paid_cents", Value: strconv.FormatInt(m.AmountPaidCents, 10)},
		{Name: "pause_start", Value: pauseStart},
		{Name: "pause_days", Value: pauseDays},
	}
}

type AssignRequest struct {
	MemberID  int  `json:"member_id" binding:"required"`
	PlanID    int  `json:"plan_id" binding:"required"`
	PaymentID *int `json:"payment_id,omitempty"`
}

type ChangeRequest struct {
	PlanID    int  `json:"plan_id" binding:"required"`
	KeepDates bool `json:"keep_dates"`
	PaymentID *int `json:"payment_id,omitempty"`
}

type PauseRequest struct {
	Days   int    `json:"days" binding:"required,gt=0"`
	Reason string `json:"reason,omitempty"`
}

type ResumeRequest struct {
	Extend bool `json:"extend"`
}

type CancelRequest struct {
	ReasonCode string `json:"reason_code" binding:"required"`
	Notes      string `json:"notes,omitempty"`
}
