package plan

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	GetByID(ctx context.Context, id int) (*Plan, error)
	List(ctx context.Context, activeOnly bool) ([]Plan, error)

	// Tx variants run on the caller's transaction so plan mutations commit
	// together with their audit entries.
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Plan, error)
	InsertTx(ctx context.Context, tx *sqlx.Tx, p *Plan) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, p *Plan) error
}
