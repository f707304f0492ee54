package plan

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/audit"
	"gymdesk/internal/db"
	"gymdesk/internal/logger"
)

// Notifier publishes fire-and-forget events for the external dispatcher.
type Notifier interface {
	Publish(ctx context.Context, targetAudience, eventKind, title, message string) error
}

type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*Plan, error)
	Update(ctx context.Context, id int, req UpdatePlanRequest) (*Plan, error)
	SetActive(ctx context.Context, id int, active bool) (*Plan, error)
	Get(ctx context.Context, id int) (*Plan, error)
	List(ctx context.Context, activeOnly bool) ([]Plan, error)
}

type service struct {
	db       *sqlx.DB
	repo     Repository
	audit    *audit.Repository
	notifier Notifier
}

func NewService(database *sqlx.DB, repo Repository, auditRepo *audit.Repository, notifier Notifier) Service {
	return &service{db: database, repo: repo, audit: auditRepo, notifier: notifier}
}

func (s *service) Create(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	p := &Plan{
		Name:         req.Name,
		PriceCents:   req.PriceCents,
		DurationDays: req.DurationDays,
		Benefits:     req.Benefits,
		Active:       true,
	}

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.InsertTx(ctx, tx, p); err != nil {
			return err
		}

		changed, _, after := audit.Diff(nil, p.snapshot())
		return s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectPlan,
			SubjectID:     p.ID,
			Action:        audit.ActionCreate,
			ChangedFields: changed,
			After:         after,
			Description:   "plan created",
		})
	})
	if err != nil {
		return nil, err
	}

	if req.Promotional {
		if err := s.notifier.Publish(ctx, "members", "plan_promotion",
			"New plan: "+p.Name,
			fmt.Sprintf("A new %s plan is available for %d days.", p.Name, p.DurationDays),
		); err != nil {
			logger.Error("promotional plan notification failed", "plan_id", p.ID, "error", err)
		}
	}

	return p, nil
}

func (s *service) Update(ctx context.Context, id int, req UpdatePlanRequest) (*Plan, error) {
	var updated *Plan

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.repo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}

		before := p.snapshot()

		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.PriceCents != nil {
			p.PriceCents = *req.PriceCents
		}
		if req.DurationDays != nil {
			p.DurationDays = *req.DurationDays
		}
		if req.Benefits != nil {
			p.Benefits = req.Benefits
		}

		changed, beforeVals, afterVals := audit.Diff(before, p.snapshot())
		if len(changed) == 0 {
			// No observable field changed; write nothing, audit nothing.
			updated = p
			return nil
		}

		if err := s.repo.UpdateTx(ctx, tx, p); err != nil {
			return err
		}

		if err := s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectPlan,
			SubjectID:     p.ID,
			Action:        audit.ActionModify,
			ChangedFields: changed,
			Before:        beforeVals,
			After:         afterVals,
			Description:   "plan updated",
		}); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *service) SetActive(ctx context.Context, id int, active bool) (*Plan, error) {
	var updated *Plan

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.repo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if p.Active == active {
			updated = p
			return nil
		}

		before := p.snapshot()
		p.Active = active
		changed, beforeVals, afterVals := audit.Diff(before, p.snapshot())

		if err := s.repo.UpdateTx(ctx, tx, p); err != nil {
			return err
		}

		action := audit.ActionActivate
		desc := "plan activated"
		if !active {
			action = audit.ActionDeactivate
			desc = "plan deactivated"
		}

		if err := s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectPlan,
			SubjectID:     p.ID,
			Action:        action,
			ChangedFields: changed,
			Before:        beforeVals,
			After:         afterVals,
			Description:   desc,
		}); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *service) Get(ctx context.Context, id int) (*Plan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]Plan, error) {
	return s.repo.List(ctx, activeOnly)
}
