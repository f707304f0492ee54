package membership

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetByID(ctx context.Context, id int) (*Membership, error)
	ListByMember(ctx context.Context, memberID int) ([]Membership, error)

	// LockMemberTx serializes concurrent lifecycle operations for one member
	// by taking a row lock on the member record.
	LockMemberTx(ctx context.Context, tx *sqlx.Tx, memberID int) error
	// ActiveForMemberTx returns the member's active membership, or nil.
	ActiveForMemberTx(ctx context.Context, tx *sqlx.Tx, memberID int) (*Membership, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Membership, error)
	InsertTx(ctx context.Context, tx *sqlx.Tx, m *Membership) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, m *Membership) error
}

// PaymentSource reads the amount paid on a linked payment record. Payments
// themselves are owned by an external system; this is a read-only view.
type PaymentSource interface {
	AmountPaid(ctx context.Context, paymentID int) (int64, error)
}
