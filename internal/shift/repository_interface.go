package shift

import (
	"context"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/schedule"
)

type Repository interface {
	GetShiftByID(ctx context.Context, id int) (*Shift, error)
	ListShiftsByTrainer(ctx context.Context, trainerID int) ([]Shift, error)
	GetRequestByID(ctx context.Context, id int) (*ExchangeRequest, error)

	// LockTrainerTx serializes shift creation against one trainer's roster by
	// taking a row lock on the trainer record.
	LockTrainerTx(ctx context.Context, tx *sqlx.Tx, trainerID int) error
	// ShiftSlotsTx re-reads the trainer's shift windows inside the caller's
	// transaction, skipping the shift IDs in exclude (the pair being swapped,
	// or nothing when creating).
	ShiftSlotsTx(ctx context.Context, tx *sqlx.Tx, trainerID int, exclude ...int) ([]schedule.Slot, error)
	InsertShiftTx(ctx context.Context, tx *sqlx.Tx, s *Shift) error

	InsertRequest(ctx context.Context, r *ExchangeRequest) error
	// GetRequestForUpdateTx locks the request row. Respond takes this lock
	// before reading the request state, so a concurrent respond on the same
	// request waits and then sees the winner's terminal state.
	GetRequestForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*ExchangeRequest, error)
	GetShiftForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Shift, error)
	// SwapOwnersTx assigns each shift to the other's current owner.
	SwapOwnersTx(ctx context.Context, tx *sqlx.Tx, origin, target *Shift) error
	ResolveRequestTx(ctx context.Context, tx *sqlx.Tx, r *ExchangeRequest) error
}
