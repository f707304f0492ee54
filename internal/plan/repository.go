package plan

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gymdesk/internal/apperr"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int) (*Plan, error) {
	var p Plan
	err := r.db.GetContext(ctx, &p, `
		SELECT id, name, price_cents, duration_days, benefits, active, created_at, updated_at
		FROM plans
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("plan %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("get plan", err)
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	query := `
		SELECT id, name, price_cents, duration_days, benefits, active, created_at, updated_at
		FROM plans
	`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY price_cents ASC`

	var plans []Plan
	if err := r.db.SelectContext(ctx, &plans, query); err != nil {
		return nil, apperr.Persistence("list plans", err)
	}
	return plans, nil
}

func (r *repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Plan, error) {
	var p Plan
	err := tx.GetContext(ctx, &p, `
		SELECT id, name, price_cents, duration_days, benefits, active, created_at, updated_at
		FROM plans
		WHERE id = $1
		FOR UPDATE
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("plan %d not found", id)
	}
	if err != nil {
		return nil, apperr.Persistence("lock plan", err)
	}
	return &p, nil
}

func (r *repository) InsertTx(ctx context.Context, tx *sqlx.Tx, p *Plan) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO plans (name, price_cents, duration_days, benefits, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, p.Name, p.PriceCents, p.DurationDays, pq.Array(p.Benefits), p.Active).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return apperr.Persistence("insert plan", err)
	}
	return nil
}

func (r *repository) UpdateTx(ctx context.Context, tx *sqlx.Tx, p *Plan) error {
	err := tx.QueryRowxContext(ctx, `
		UPDATE plans
		SET name = $1, price_cents = $2, duration_days = $3, benefits = $4, active = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`, p.Name, p.PriceCents, p.DurationDays, pq.Array(p.Benefits), p.Active, p.ID).
		Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf("plan %d not found", p.ID)
	}
	if err != nil {
		return apperr.Persistence("update plan", err)
	}
	return nil
}
