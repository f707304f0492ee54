package booking

import (
	"context"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/schedule"
)

type Repository interface {
	GetBookingByID(ctx context.Context, id int) (*Booking, error)
	GetClassByID(ctx context.Context, id int) (*Class, error)
	ListByTrainer(ctx context.Context, trainerID int) ([]Booking, error)
	ListClassesByTrainer(ctx context.Context, trainerID int) ([]Class, error)

	// LockTrainerTx serializes conflict checks against one trainer's calendar
	// by taking a row lock on the trainer record. Held until commit, it makes
	// the re-read + conflict check + insert sequence atomic.
	LockTrainerTx(ctx context.Context, tx *sqlx.Tx, trainerID int) error
	// TrainerSlotsTx re-reads, inside the caller's transaction, every live slot
	// of the trainer that can land on the proposed dimension's occurrence.
	// excludeBookingID skips the booking being moved (0 skips nothing).
	TrainerSlotsTx(ctx context.Context, tx *sqlx.Tx, trainerID int, dim schedule.Dimension, excludeBookingID int) ([]schedule.Slot, error)

	InsertClassTx(ctx context.Context, tx *sqlx.Tx, c *Class) error
	InsertBookingTx(ctx context.Context, tx *sqlx.Tx, b *Booking) error
	GetBookingForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Booking, error)
	UpdateTimesTx(ctx context.Context, tx *sqlx.Tx, b *Booking) error

	GetClassForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Class, error)
	CountReservationsTx(ctx context.Context, tx *sqlx.Tx, classID int) (int, error)
	MemberHasReservationTx(ctx context.Context, tx *sqlx.Tx, classID, memberID int) (bool, error)

	// TransitionState flips state only when the booking is currently in the
	// expected state; reports whether a row changed.
	TransitionState(ctx context.Context, id int, from, to State) (bool, error)
}
