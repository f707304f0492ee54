package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gymdesk/internal/apperr"
	"gymdesk/internal/metrics"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert appends an entry using the caller's transaction, so the entry commits
// or rolls back together with the mutation it describes. The package has no
// update or delete statements.
func (r *Repository) Insert(ctx context.Context, ext sqlx.ExtContext, e *Entry) error {
	beforeJSON, err := json.Marshal(e.Before)
	if err != nil {
		return apperr.Persistence("marshal audit before values", err)
	}
	afterJSON, err := json.Marshal(e.After)
	if err != nil {
		return apperr.Persistence("marshal audit after values", err)
	}

	row := ext.QueryRowxContext(ctx, `
		INSERT INTO audit_entries (subject_kind, subject_id, action, changed_fields, before_values, after_values, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, e.SubjectKind, e.SubjectID, e.Action, pq.Array(e.ChangedFields), beforeJSON, afterJSON, e.Description)

	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return apperr.Persistence("insert audit entry", err)
	}

	metrics.RecordAuditEntry(string(e.SubjectKind), string(e.Action))
	return nil
}

type entryRow struct {
	ID            int            `db:"id"`
	SubjectKind   SubjectKind    `db:"subject_kind"`
	SubjectID     int            `db:"subject_id"`
	Action        Action         `db:"action"`
	ChangedFields pq.StringArray `db:"changed_fields"`
	BeforeValues  []byte         `db:"before_values"`
	AfterValues   []byte         `db:"after_values"`
	Description   string         `db:"description"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r *Repository) ListBySubject(ctx context.Context, kind SubjectKind, subjectID int) ([]Entry, error) {
	var rows []entryRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, subject_kind, subject_id, action, changed_fields, before_values, after_values, description, created_at
		FROM audit_entries
		WHERE subject_kind = $1 AND subject_id = $2
		ORDER BY created_at ASC, id ASC
	`, kind, subjectID)
	if err != nil {
		return nil, apperr.Persistence("list audit entries", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{
			ID:            row.ID,
			SubjectKind:   row.SubjectKind,
			SubjectID:     row.SubjectID,
			Action:        row.Action,
			ChangedFields: row.ChangedFields,
			Description:   row.Description,
			CreatedAt:     row.CreatedAt,
		}
		if len(row.BeforeValues) > 0 {
			if err := json.Unmarshal(row.BeforeValues, &e.Before); err != nil {
				return nil, apperr.Persistence("decode audit before values", err)
			}
		}
		if len(row.AfterValues) > 0 {
			if err := json.Unmarshal(row.AfterValues, &e.After); err != nil {
				return nil, apperr.Persistence("decode audit after values", err)
			}
		}
		entries = append(entries, e)
	}

	return entries, nil
}
