package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/apperr"
)

const membershipColumns = `id, member_id, plan_id, start_date, expiry_date, state, amount_paid_cents,
	pause_start, pause_days, cancel_reason, cancel_notes, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int) (*Membership, error) {
	var m Membership
	err := r.db.GetContext(ctx, &m, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("membership %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("get membership", err)
	}
	return &m, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID int) ([]Membership, error) {
	var ms []Membership
	err := r.db.SelectContext(ctx, &ms, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE member_id = $1
		ORDER BY created_at DESC
	`, memberID)
	if err != nil {
		return nil, apperr.Persistence("list memberships", err)
	}
	return ms, nil
}

func (r *repository) LockMemberTx(ctx context.Context, tx *sqlx.Tx, memberID int) error {
	var id int
	err := tx.GetContext(ctx, &id, `SELECT id FROM members WHERE id = $1 FOR UPDATE`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf("member %d not found", memberID)
	}
	if err != nil {
		return apperr.Persistence("lock member", err)
	}
	return nil
}

func (r *repository) ActiveForMemberTx(ctx context.Context, tx *sqlx.Tx, memberID int) (*Membership, error) {
	var m Membership
	err := tx.GetContext(ctx, &m, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE member_id = $1 AND state = 'active'
		FOR UPDATE
	`, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("get active membership", err)
	}
	return &m, nil
}

func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Membership, error) {
	var m Membership
	err := tx.GetContext(ctx, &m, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("membership %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("lock membership", err)
	}
	return &m, nil
}

func (r *repository) InsertTx(ctx context.Context, tx *sqlx.Tx, m *Membership) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO memberships (member_id, plan_id, start_date, expiry_date, state, amount_paid_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, m.MemberID, m.PlanID, m.StartDate, m.ExpiryDate, m.State, m.AmountPaidCents).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return apperr.Persistence("insert membership", err)
	}
	return nil
}

func (r *repository) UpdateTx(ctx context.Context, tx *sqlx.Tx, m *Membership) error {
	err := tx.QueryRowxContext(ctx, `
		UPDATE memberships
		SET state = $1, expiry_date = $2, pause_start = $3, pause_days = $4,
		    cancel_reason = $5, cancel_notes = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`, m.State, m.ExpiryDate, m.PauseStart, m.PauseDays, m.CancelReason, m.CancelNotes, m.ID).
		Scan(&m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf("membership %d not found", m.ID)
	}
	if err != nil {
		return apperr.Persistence("update membership", err)
	}
	return nil
}

// PaymentReader is the read-only view over the external payments table.
type PaymentReader struct {
	db *sqlx.DB
}

func NewPaymentReader(db *sqlx.DB) *PaymentReader {
	return &PaymentReader{db: db}
}

func (p *PaymentReader) AmountPaid(ctx context.Context, paymentID int) (int64, error) {
	var amount int64
	err := p.db.GetContext(ctx, &amount, `SELECT amount_cents FROM payments WHERE id = $1`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.NotFoundf("payment %d not found", paymentID)
	}
	if err != nil {
		return 0, apperr.Persistence("get payment", err)
	}
	return amount, nil
}
