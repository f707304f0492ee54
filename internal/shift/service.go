package shift

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/apperr"
	"gymdesk/internal/db"
	"gymdesk/internal/logger"
	"gymdesk/internal/metrics"
	"gymdesk/internal/schedule"
)

type Notifier interface {
	Publish(ctx context.Context, targetAudience, eventKind, title, message string) error
}

type Service interface {
	CreateShift(ctx context.Context, req CreateShiftRequest) (*Shift, error)
	ListByTrainer(ctx context.Context, trainerID int) ([]Shift, error)
	// Propose records a pending exchange of two shifts between two trainers.
	// Nothing about the shifts themselves changes until the recipient accepts.
	Propose(ctx context.Context, req ProposeRequest) (*ExchangeRequest, error)
	// Respond resolves a pending request. Exactly one respond call can win;
	// any later one fails with an already-resolved error.
	Respond(ctx context.Context, requestID int, accept bool) (*ExchangeRequest, error)
	GetRequest(ctx context.Context, requestID int) (*ExchangeRequest, error)
}

type service struct {
	db       *sqlx.DB
	repo     Repository
	notifier Notifier
}

func NewService(database *sqlx.DB, repo Repository, notifier Notifier) Service {
	return &service{db: database, repo: repo, notifier: notifier}
}

func (s *service) CreateShift(ctx context.Context, req CreateShiftRequest) (*Shift, error) {
	start, err := schedule.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := schedule.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, err
	}

	sh := &Shift{
		TrainerID: req.TrainerID,
		Weekday:   time.Weekday(req.Weekday),
		StartTime: start,
		EndTime:   end,
	}
	proposed := sh.slot()
	if err := proposed.Validate(); err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.LockTrainerTx(ctx, tx, req.TrainerID); err != nil {
			return err
		}

		existing, err := s.repo.ShiftSlotsTx(ctx, tx, req.TrainerID)
		if err != nil {
			return err
		}
		if _, conflict := schedule.FirstConflict(existing, proposed); conflict {
			return apperr.Conflict(apperr.CodeOverlap,
				"trainer %d already has a shift overlapping %s %s-%s",
				req.TrainerID, sh.Weekday, sh.StartTime, sh.EndTime)
		}

		return s.repo.InsertShiftTx(ctx, tx, sh)
	})
	if err != nil {
		return nil, err
	}

	return sh, nil
}

func (s *service) ListByTrainer(ctx context.Context, trainerID int) ([]Shift, error) {
	return s.repo.ListShiftsByTrainer(ctx, trainerID)
}

func (s *service) Propose(ctx context.Context, req ProposeRequest) (*ExchangeRequest, error) {
	if req.OriginShiftID == req.TargetShiftID {
		return nil, apperr.Validationf("cannot exchange a shift with itself")
	}

	origin, err := s.repo.GetShiftByID(ctx, req.OriginShiftID)
	if err != nil {
		return nil, err
	}
	target, err := s.repo.GetShiftByID(ctx, req.TargetShiftID)
	if err != nil {
		return nil, err
	}

	if origin.TrainerID != req.RequesterID {
		return nil, apperr.Validationf("trainer %d does not own shift %d", req.RequesterID, origin.ID)
	}
	if target.TrainerID == origin.TrainerID {
		return nil, apperr.Validationf("both shifts belong to trainer %d", origin.TrainerID)
	}

	r := &ExchangeRequest{
		OriginShiftID: origin.ID,
		TargetShiftID: target.ID,
		RequesterID:   req.RequesterID,
		RecipientID:   target.TrainerID,
	}
	if err := s.repo.InsertRequest(ctx, r); err != nil {
		return nil, err
	}

	if err := s.notifier.Publish(ctx, "trainer:"+strconv.Itoa(r.RecipientID), "shift_exchange_proposed",
		"Shift exchange proposed",
		fmt.Sprintf("Trainer %d wants to take your %s %s-%s shift.",
			r.RequesterID, target.Weekday, target.StartTime, target.EndTime),
	); err != nil {
		logger.Error("exchange proposal notification failed", "request_id", r.ID, "error", err)
	}

	return r, nil
}

func (s *service) Respond(ctx context.Context, requestID int, accept bool) (*ExchangeRequest, error) {
	var resolved *ExchangeRequest

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		// The request row lock is taken before anything else: a concurrent
		// respond on the same request blocks here and then reads the winner's
		// terminal state.
		r, err := s.repo.GetRequestForUpdateTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if r.State != StatePending {
			return apperr.Transition(apperr.CodeAlreadyResolved,
				"exchange request %d is already %s", r.ID, r.State)
		}

		if !accept {
			r.State = StateRejected
			if err := s.repo.ResolveRequestTx(ctx, tx, r); err != nil {
				return err
			}
			resolved = r
			return nil
		}

		if err := s.acceptTx(ctx, tx, r); err != nil {
			return err
		}
		resolved = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordShiftExchange(string(resolved.State))

	if resolved.State == StateAccepted {
		msg := fmt.Sprintf("Exchange request %d was accepted; shifts %d and %d swapped owners.",
			resolved.ID, resolved.OriginShiftID, resolved.TargetShiftID)
		for _, trainerID := range []int{resolved.RequesterID, resolved.RecipientID} {
			if err := s.notifier.Publish(ctx, "trainer:"+strconv.Itoa(trainerID), "shift_exchange_accepted",
				"Shift exchange accepted", msg); err != nil {
				logger.Error("exchange acceptance notification failed", "request_id", resolved.ID, "error", err)
			}
		}
	}

	return resolved, nil
}

// acceptTx swaps the two shifts inside the caller's transaction, but only when
// each trainer's calendar stays conflict-free after the swap.
func (s *service) acceptTx(ctx context.Context, tx *sqlx.Tx, r *ExchangeRequest) error {
	// Shift rows are locked in ID order so two accepts touching the same pair
	// cannot deadlock.
	firstID, secondID := r.OriginShiftID, r.TargetShiftID
	if firstID > secondID {
		firstID, secondID = secondID, firstID
	}
	first, err := s.repo.GetShiftForUpdateTx(ctx, tx, firstID)
	if err != nil {
		return err
	}
	second, err := s.repo.GetShiftForUpdateTx(ctx, tx, secondID)
	if err != nil {
		return err
	}

	origin, target := first, second
	if origin.ID != r.OriginShiftID {
		origin, target = second, first
	}

	// Ownership may have moved since the proposal (a previous exchange).
	if origin.TrainerID != r.RequesterID || target.TrainerID != r.RecipientID {
		return apperr.Conflict(apperr.CodeOverlap,
			"shift ownership changed since request %d was proposed", r.ID)
	}

	// After the swap the requester works the target window and the recipient
	// works the origin window; each is checked against the rest of that
	// trainer's roster.
	requesterOther, err := s.repo.ShiftSlotsTx(ctx, tx, r.RequesterID, origin.ID, target.ID)
	if err != nil {
		return err
	}
	if _, conflict := schedule.FirstConflict(requesterOther, target.slot()); conflict {
		return apperr.Conflict(apperr.CodeOverlap,
			"shift %d would overlap trainer %d's roster", target.ID, r.RequesterID)
	}

	recipientOther, err := s.repo.ShiftSlotsTx(ctx, tx, r.RecipientID, origin.ID, target.ID)
	if err != nil {
		return err
	}
	if _, conflict := schedule.FirstConflict(recipientOther, origin.slot()); conflict {
		return apperr.Conflict(apperr.CodeOverlap,
			"shift %d would overlap trainer %d's roster", origin.ID, r.RecipientID)
	}

	if err := s.repo.SwapOwnersTx(ctx, tx, origin, target); err != nil {
		return err
	}

	r.State = StateAccepted
	return s.repo.ResolveRequestTx(ctx, tx, r)
}

func (s *service) GetRequest(ctx context.Context, requestID int) (*ExchangeRequest, error) {
	return s.repo.GetRequestByID(ctx, requestID)
}
