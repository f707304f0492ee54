package shift

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gymdesk/internal/apperr"
	"gymdesk/internal/schedule"
)

const shiftColumns = `id, trainer_id, weekday, start_min, end_min, created_at`
const requestColumns = `id, origin_shift_id, target_shift_id, requester_id, recipient_id, state, created_at, resolved_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetShiftByID(ctx context.Context, id int) (*Shift, error) {
	var s Shift
	err := r.db.GetContext(ctx, &s, `
		SELECT `+shiftColumns+`
		FROM reception_shifts
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("shift %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("get shift", err)
	}
	return &s, nil
}

func (r *repository) ListShiftsByTrainer(ctx context.Context, trainerID int) ([]Shift, error) {
	var ss []Shift
	err := r.db.SelectContext(ctx, &ss, `
		SELECT `+shiftColumns+`
		FROM reception_shifts
		WHERE trainer_id = $1
		ORDER BY weekday, start_min
	`, trainerID)
	if err != nil {
		return nil, apperr.Persistence("list shifts", err)
	}
	return ss, nil
}

func (r *repository) GetRequestByID(ctx context.Context, id int) (*ExchangeRequest, error) {
	var req ExchangeRequest
	err := r.db.GetContext(ctx, &req, `
		SELECT `+requestColumns+`
		FROM shift_exchange_requests
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("exchange request %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("get exchange request", err)
	}
	return &req, nil
}

func (r *repository) LockTrainerTx(ctx context.Context, tx *sqlx.Tx, trainerID int) error {
	var id int
	err := tx.GetContext(ctx, &id, `SELECT id FROM trainers WHERE id = $1 FOR UPDATE`, trainerID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf("trainer %d not found", trainerID)
	}
	if err != nil {
		return apperr.Persistence("lock trainer", err)
	}
	return nil
}

type shiftSlotRow struct {
	Weekday  int `db:"weekday"`
	StartMin int `db:"start_min"`
	EndMin   int `db:"end_min"`
}

func (r *repository) ShiftSlotsTx(ctx context.Context, tx *sqlx.Tx, trainerID int, exclude ...int) ([]schedule.Slot, error) {
	if exclude == nil {
		exclude = []int{}
	}

	var rows []shiftSlotRow
	err := tx.SelectContext(ctx, &rows, `
		SELECT weekday, start_min, end_min
		FROM reception_shifts
		WHERE trainer_id = $1 AND id <> ALL($2)
	`, trainerID, pq.Array(exclude))
	if err != nil {
		return nil, apperr.Persistence("read trainer shifts", err)
	}

	slots := make([]schedule.Slot, 0, len(rows))
	for _, row := range rows {
		slots = append(slots, schedule.Slot{
			Dim:   schedule.RecurringOn(time.Weekday(row.Weekday)),
			Start: schedule.TimeOfDay(row.StartMin),
			End:   schedule.TimeOfDay(row.EndMin),
		})
	}
	return slots, nil
}

func (r *repository) InsertShiftTx(ctx context.Context, tx *sqlx.Tx, s *Shift) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO reception_shifts (trainer_id, weekday, start_min, end_min)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, s.TrainerID, int(s.Weekday), int(s.StartTime), int(s.EndTime)).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return apperr.Persistence("insert shift", err)
	}
	return nil
}

func (r *repository) InsertRequest(ctx context.Context, req *ExchangeRequest) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO shift_exchange_requests (origin_shift_id, target_shift_id, requester_id, recipient_id, state)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, state, created_at
	`, req.OriginShiftID, req.TargetShiftID, req.RequesterID, req.RecipientID).
		Scan(&req.ID, &req.State, &req.CreatedAt)
	if err != nil {
		return apperr.Persistence("insert exchange request", err)
	}
	return nil
}

func (r *repository) GetRequestForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*ExchangeRequest, error) {
	var req ExchangeRequest
	err := tx.GetContext(ctx, &req, `
		SELECT `+requestColumns+`
		FROM shift_exchange_requests
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("exchange request %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("lock exchange request", err)
	}
	return &req, nil
}

func (r *repository) GetShiftForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Shift, error) {
	var s Shift
	err := tx.GetContext(ctx, &s, `
		SELECT `+shiftColumns+`
		FROM reception_shifts
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("shift %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("lock shift", err)
	}
	return &s, nil
}

func (r *repository) SwapOwnersTx(ctx context.Context, tx *sqlx.Tx, origin, target *Shift) error {
	newOriginOwner := target.TrainerID
	newTargetOwner := origin.TrainerID

	_, err := tx.ExecContext(ctx, `
		UPDATE reception_shifts
		SET trainer_id = CASE id WHEN $1 THEN $3::int WHEN $2 THEN $4::int END
		WHERE id IN ($1, $2)
	`, origin.ID, target.ID, newOriginOwner, newTargetOwner)
	if err != nil {
		return apperr.Persistence("swap shift owners", err)
	}

	origin.TrainerID = newOriginOwner
	target.TrainerID = newTargetOwner
	return nil
}

func (r *repository) ResolveRequestTx(ctx context.Context, tx *sqlx.Tx, req *ExchangeRequest) error {
	err := tx.QueryRowxContext(ctx, `
		UPDATE shift_exchange_requests
		SET state = $1, resolved_at = NOW()
		WHERE id = $2
		RETURNING resolved_at
	`, req.State, req.ID).
		Scan(&req.ResolvedAt)
	if err != nil {
		return apperr.Persistence("resolve exchange request", err)
	}
	return nil
}
