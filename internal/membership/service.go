package membership

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/apperr"
	"gymdesk/internal/audit"
	"gymdesk/internal/db"
	"gymdesk/internal/logger"
	"gymdesk/internal/metrics"
	"gymdesk/internal/plan"
)

// Catalog is the read-only plan lookup the ledger consumes.
type Catalog interface {
	Get(ctx context.Context, id int) (*plan.Plan, error)
}

type Notifier interface {
	Publish(ctx context.Context, targetAudience, eventKind, title, message string) error
}

type Service interface {
	Assign(ctx context.Context, req AssignRequest) (*Membership, error)
	Change(ctx context.Context, membershipID int, req ChangeRequest) (*Membership, error)
	Pause(ctx context.Context, membershipID int, req PauseRequest) (*Membership, error)
	Resume(ctx context.Context, membershipID int, req ResumeRequest) (*Membership, error)
	Cancel(ctx context.Context, membershipID int, req CancelRequest) (*Membership, error)
	// ExpireIfDue is the idempotent entry point for the externally scheduled
	// expiry check. It is a no-op unless the membership is active and past due.
	ExpireIfDue(ctx context.Context, membershipID int) (*Membership, error)
	Get(ctx context.Context, membershipID int) (*Membership, error)
	ListByMember(ctx context.Context, memberID int) ([]Membership, error)
}

type service struct {
	db       *sqlx.DB
	repo     Repository
	catalog  Catalog
	payments PaymentSource
	audit    *audit.Repository
	notifier Notifier
	now      func() time.Time
}

func NewService(
	database *sqlx.DB,
	repo Repository,
	catalog Catalog,
	payments PaymentSource,
	auditRepo *audit.Repository,
	notifier Notifier,
) Service {
	return &service{
		db:       database,
		repo:     repo,
		catalog:  catalog,
		payments: payments,
		audit:    auditRepo,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *service) amountPaid(ctx context.Context, paymentID *int) (int64, error) {
	if paymentID == nil {
		return 0, nil
	}
	return s.payments.AmountPaid(ctx, *paymentID)
}

func (s *service) Assign(ctx context.Context, req AssignRequest) (*Membership, error) {
	p, err := s.catalog.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperr.Validationf("plan %q is not active", p.Name)
	}

	amount, err := s.amountPaid(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := &Membership{
		MemberID:        req.MemberID,
		PlanID:          p.ID,
		StartDate:       now,
		ExpiryDate:      now.AddDate(0, 0, p.DurationDays),
		State:           StateActive,
		AmountPaidCents: amount,
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.LockMemberTx(ctx, tx, req.MemberID); err != nil {
			return err
		}

		existing, err := s.repo.ActiveForMemberTx(ctx, tx, req.MemberID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.Conflict(apperr.CodeAlreadyActive,
				"member %d already has an active membership", req.MemberID)
		}

		if err := s.repo.InsertTx(ctx, tx, m); err != nil {
			return err
		}

		changed, _, after := audit.Diff(nil, m.snapshot())
		return s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectMembership,
			SubjectID:     m.ID,
			Action:        audit.ActionCreate,
			ChangedFields: changed,
			After:         after,
			Description:   "membership assigned",
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipTransition("assign")

	if err := s.notifier.Publish(ctx, "member:"+strconv.Itoa(m.MemberID), "membership_activated",
		"Membership activated",
		fmt.Sprintf("Your %s membership is active until %s.", p.Name, m.ExpiryDate.Format(dateLayout)),
	); err != nil {
		logger.Error("membership activation notification failed", "membership_id", m.ID, "error", err)
	}

	return m, nil
}

func (s *service) Change(ctx context.Context, membershipID int, req ChangeRequest) (*Membership, error) {
	newPlan, err := s.catalog.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if !newPlan.Active {
		return nil, apperr.Validationf("plan %q is not active", newPlan.Name)
	}

	amount, err := s.amountPaid(ctx, req.PaymentID)
	if err != nil {
		return nil, err
	}

	var replacement *Membership

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		current, err := s.repo.GetForUpdateTx(ctx, tx, membershipID)
		if err != nil {
			return err
		}

		// Serializes with Assign on the same member: without the member lock a
		// concurrent Assign races the replacement insert into the one-active
		// unique index instead of a clean conflict.
		if err := s.repo.LockMemberTx(ctx, tx, current.MemberID); err != nil {
			return err
		}

		superseded, err := Next(current.State, EventChange)
		if err != nil {
			return err
		}

		oldPlan, err := s.catalog.Get(ctx, current.PlanID)
		if err != nil {
			return err
		}

		before := current.snapshot()
		current.State = superseded
		if err := s.repo.UpdateTx(ctx, tx, current); err != nil {
			return err
		}

		now := s.now()
		replacement = &Membership{
			MemberID:        current.MemberID,
			PlanID:          newPlan.ID,
			StartDate:       now,
			ExpiryDate:      now.AddDate(0, 0, newPlan.DurationDays),
			State:           StateActive,
			AmountPaidCents: amount,
		}
		if req.KeepDates {
			replacement.StartDate = current.StartDate
			replacement.ExpiryDate = current.ExpiryDate
		}

		if err := s.repo.InsertTx(ctx, tx, replacement); err != nil {
			return err
		}

		// The superseded row stays as the membership-history record; the audit
		// entry captures the plan-level change.
		changed, beforeVals, afterVals := audit.Diff(before, replacement.snapshot())
		if len(changed) == 0 {
			return nil
		}
		return s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectMembership,
			SubjectID:     replacement.ID,
			Action:        audit.ActionModify,
			ChangedFields: changed,
			Before:        beforeVals,
			After:         afterVals,
			Description:   fmt.Sprintf("membership plan changed from %q to %q", oldPlan.Name, newPlan.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipTransition("change")
	return replacement, nil
}

func (s *service) Pause(ctx context.Context, membershipID int, req PauseRequest) (*Membership, error) {
	if req.Days <= 0 {
		return nil, apperr.Validationf("pause days must be positive")
	}

	var paused *Membership

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		m, err := s.repo.GetForUpdateTx(ctx, tx, membershipID)
		if err != nil {
			return err
		}

		next, err := Next(m.State, EventPause)
		if err != nil {
			return err
		}

		before := m.snapshot()
		now := s.now()
		m.State = next
		m.PauseStart = &now
		m.PauseDays = &req.Days

		if err := s.repo.UpdateTx(ctx, tx, m); err != nil {
			return err
		}

		desc := "membership paused"
		if req.Reason != "" {
			desc = "membership paused: " + req.Reason
		}

		changed, beforeVals, afterVals := audit.Diff(before, m.snapshot())
		if err := s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectMembership,
			SubjectID:     m.ID,
			Action:        audit.ActionModify,
			ChangedFields: changed,
			Before:        beforeVals,
			After:         afterVals,
			Description:   desc,
		}); err != nil {
			return err
		}

		paused = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipTransition("pause")
	return paused, nil
}

func (s *service) Resume(ctx context.Context, membershipID int, req ResumeRequest) (*Membership, error) {
	var resumed *Membership

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		m, err := s.repo.GetForUpdateTx(ctx, tx, membershipID)
		if err != nil {
			return err
		}

		next, err := Next(m.State, EventResume)
		if err != nil {
			return err
		}

		before := m.snapshot()
		m.State = next
		if req.Extend && m.PauseDays != nil {
			m.ExpiryDate = m.ExpiryDate.AddDate(0, 0, *m.PauseDays)
		}
		m.PauseStart = nil
		m.PauseDays = nil

		if err := s.repo.UpdateTx(ctx, tx, m); err != nil {
			return err
		}

		changed, beforeVals, afterVals := audit.Diff(before, m.snapshot())
		if err := s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectMembership,
			SubjectID:     m.ID,
			Action:        audit.ActionModify,
			ChangedFields: changed,
			Before:        beforeVals,
			After:         afterVals,
			Description:   "membership resumed",
		}); err != nil {
			return err
		}

		resumed = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipTransition("resume")
	return resumed, nil
}

func (s *service) Cancel(ctx context.Context, membershipID int, req CancelRequest) (*Membership, error) {
	var cancelled *Membership

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		m, err := s.repo.GetForUpdateTx(ctx, tx, membershipID)
		if err != nil {
			return err
		}

		next, err := Next(m.State, EventCancel)
		if err != nil {
			return err
		}

		before := m.snapshot()
		m.State = next
		m.CancelReason = &req.ReasonCode
		if req.Notes != "" {
			m.CancelNotes = &req.Notes
		}

		if err := s.repo.UpdateTx(ctx, tx, m); err != nil {
			return err
		}

		changed, beforeVals, afterVals := audit.Diff(before, m.snapshot())
		if err := s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectMembership,
			SubjectID:     m.ID,
			Action:        audit.ActionDeactivate,
			ChangedFields: changed,
			Before:        beforeVals,
			After:         afterVals,
			Description:   "membership cancelled: " + req.ReasonCode,
		}); err != nil {
			return err
		}

		cancelled = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMembershipTransition("cancel")
	return cancelled, nil
}

func (s *service) ExpireIfDue(ctx context.Context, membershipID int) (*Membership, error) {
	var result *Membership
	expired := false

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		m, err := s.repo.GetForUpdateTx(ctx, tx, membershipID)
		if err != nil {
			return err
		}

		if m.State != StateActive || !s.now().After(m.ExpiryDate) {
			result = m
			return nil
		}

		next, err := Next(m.State, EventExpire)
		if err != nil {
			return err
		}

		before := m.snapshot()
		m.State = next

		if err := s.repo.UpdateTx(ctx, tx, m); err != nil {
			return err
		}

		changed, beforeVals, afterVals := audit.Diff(before, m.snapshot())
		if err := s.audit.Insert(ctx, tx, &audit.Entry{
			SubjectKind:   audit.SubjectMembership,
			SubjectID:     m.ID,
			Action:        audit.ActionDeactivate,
			ChangedFields: changed,
			Before:        beforeVals,
			After:         afterVals,
			Description:   "membership expired",
		}); err != nil {
			return err
		}

		expired = true
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired {
		metrics.RecordMembershipTransition("expire")
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, membershipID int) (*Membership, error) {
	return s.repo.GetByID(ctx, membershipID)
}

func (s *service) ListByMember(ctx context.Context, memberID int) ([]Membership, error) {
	return s.repo.ListByMember(ctx, memberID)
}
