package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/apperr"
	"gymdesk/internal/db"
	"gymdesk/internal/schedule"
)

const bookingColumns = `id, kind, trainer_id, member_id, class_id, session_date, start_min, end_min, state, created_at, updated_at`
const classColumns = `id, trainer_id, title, weekday, start_min, end_min, capacity, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetBookingByID(ctx context.Context, id int) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("booking %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("get booking", err)
	}
	return &b, nil
}

func (r *repository) GetClassByID(ctx context.Context, id int) (*Class, error) {
	var c Class
	err := r.db.GetContext(ctx, &c, `
		SELECT `+classColumns+`
		FROM classes
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("class %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("get class", err)
	}
	return &c, nil
}

func (r *repository) ListByTrainer(ctx context.Context, trainerID int) ([]Booking, error) {
	var bs []Booking
	err := r.db.SelectContext(ctx, &bs, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE trainer_id = $1
		ORDER BY created_at DESC
	`, trainerID)
	if err != nil {
		return nil, apperr.Persistence("list bookings", err)
	}
	return bs, nil
}

func (r *repository) ListClassesByTrainer(ctx context.Context, trainerID int) ([]Class, error) {
	var cs []Class
	err := r.db.SelectContext(ctx, &cs, `
		SELECT `+classColumns+`
		FROM classes
		WHERE trainer_id = $1
		ORDER BY weekday, start_min
	`, trainerID)
	if err != nil {
		return nil, apperr.Persistence("list classes", err)
	}
	return cs, nil
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

type slotRow struct {
	Weekday  *int       `db:"weekday"`
	Date     *time.Time `db:"session_date"`
	StartMin int        `db:"start_min"`
	EndMin   int        `db:"end_min"`
}

func (r *repository) TrainerSlotsTx(ctx context.Context, tx *sqlx.Tx, trainerID int, dim schedule.Dimension, excludeBookingID int) ([]schedule.Slot, error) {
	weekday := int(dim.Weekday())

	var classRows []slotRow
	err := tx.SelectContext(ctx, &classRows, `
		SELECT weekday, NULL::date AS session_date, start_min, end_min
		FROM classes
		WHERE trainer_id = $1 AND weekday = $2
	`, trainerID, weekday)
	if err != nil {
		return nil, apperr.Persistence("read trainer classes", err)
	}

	// Personal sessions that can land on the proposed occurrence: the exact
	// date for a one-off proposal, any session on that weekday for a
	// recurring one.
	var sessionRows []slotRow
	if dim.Kind() == schedule.KindOneOff {
		err = tx.SelectContext(ctx, &sessionRows, `
			SELECT NULL::int AS weekday, session_date, start_min, end_min
			FROM bookings
			WHERE trainer_id = $1 AND kind = 'personal' AND state = 'scheduled'
			  AND session_date = $2 AND id <> $3
		`, trainerID, dim.Date(), excludeBookingID)
	} else {
		err = tx.SelectContext(ctx, &sessionRows, `
			SELECT NULL::int AS weekday, session_date, start_min, end_min
			FROM bookings
			WHERE trainer_id = $1 AND kind = 'personal' AND state = 'scheduled'
			  AND EXTRACT(DOW FROM session_date) = $2 AND id <> $3
		`, trainerID, weekday, excludeBookingID)
	}
	if err != nil {
		return nil, apperr.Persistence("read trainer sessions", err)
	}

	slots := make([]schedule.Slot, 0, len(classRows)+len(sessionRows))
	for _, row := range classRows {
		slots = append(slots, schedule.Slot{
			Dim:   schedule.RecurringOn(time.Weekday(*row.Weekday)),
			Start: schedule.TimeOfDay(row.StartMin),
			End:   schedule.TimeOfDay(row.EndMin),
		})
	}
	for _, row := range sessionRows {
		slots = append(slots, schedule.Slot{
			Dim:   schedule.OneOffOn(*row.Date),
			Start: schedule.TimeOfDay(row.StartMin),
			End:   schedule.TimeOfDay(row.EndMin),
		})
	}
	return slots, nil
}

func (r *repository) InsertClassTx(ctx context.Context, tx *sqlx.Tx, c *Class) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO classes (trainer_id, title, weekday, start_min, end_min, capacity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, c.TrainerID, c.Title, int(c.Weekday), int(c.StartTime), int(c.EndTime), c.Capacity).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return apperr.Persistence("insert class", err)
	}
	return nil
}

func (r *repository) InsertBookingTx(ctx context.Context, tx *sqlx.Tx, b *Booking) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO bookings (kind, trainer_id, member_id, class_id, session_date, start_min, end_min, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled')
		RETURNING id, state, created_at, updated_at
	`, b.Kind, b.TrainerID, b.MemberID, b.ClassID, b.Date, b.StartTime, b.EndTime).
		Scan(&b.ID, &b.State, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return apperr.Persistence("insert booking", err)
	}
	return nil
}

func (r *repository) GetBookingForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Booking, error) {
	var b Booking
	err := tx.GetContext(ctx, &b, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("booking %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("lock booking", err)
	}
	return &b, nil
}

func (r *repository) UpdateTimesTx(ctx context.Context, tx *sqlx.Tx, b *Booking) error {
	err := tx.QueryRowxContext(ctx, `
		UPDATE bookings
		SET session_date = $1, start_min = $2, end_min = $3, updated_at = NOW()
		WHERE id = $4 AND state = 'scheduled'
		RETURNING updated_at
	`, b.Date, b.StartTime, b.EndTime, b.ID).
		Scan(&b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Transition("", "booking %d is not scheduled", b.ID)
	}
	if err != nil {
		return apperr.Persistence("update booking times", err)
	}
	return nil
}

func (r *repository) GetClassForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Class, error) {
	var c Class
	err := tx.GetContext(ctx, &c, `
		SELECT `+classColumns+`
		FROM classes
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("class %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("lock class", err)
	}
	return &c, nil
}

func (r *repository) CountReservationsTx(ctx context.Context, tx *sqlx.Tx, classID int) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM bookings
		WHERE class_id = $1 AND kind = 'reservation' AND state = 'scheduled'
	`, classID)
	if err != nil {
		return 0, apperr.Persistence("count reservations", err)
	}
	return count, nil
}

func (r *repository) MemberHasReservationTx(ctx context.Context, tx *sqlx.Tx, classID, memberID int) (bool, error) {
	exists, err := db.Exists(ctx, tx, `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE class_id = $1 AND member_id = $2 AND kind = 'reservation' AND state = 'scheduled'
		)
	`, classID, memberID)
	if err != nil {
		return false, apperr.Persistence("check reservation", err)
	}
	return exists, nil
}

func (r *repository) TransitionState(ctx context.Context, id int, from, to State) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND state = $3
	`, to, id, from)
	if err != nil {
		return false, apperr.Persistence("transition booking state", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperr.Persistence("transition booking state", err)
	}
	return rowsAffected > 0, nil
}
