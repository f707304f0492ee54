package booking

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"gymdesk/internal/apperr"
	"gymdesk/internal/db"
	"gymdesk/internal/metrics"
	"gymdesk/internal/schedule"
)

type Service interface {
	CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error)
	CreatePersonal(ctx context.Context, req CreatePersonalRequest) (*Booking, error)
	UpdatePersonal(ctx context.Context, bookingID int, req UpdatePersonalRequest) (*Booking, error)
	Reserve(ctx context.Context, classID int, req ReserveRequest) (*Booking, error)
	Cancel(ctx context.Context, bookingID int) (*Booking, error)
	Complete(ctx context.Context, bookingID int) (*Booking, error)
	MarkNoShow(ctx context.Context, bookingID int) (*Booking, error)
	Get(ctx context.Context, bookingID int) (*Booking, error)
	GetClass(ctx context.Context, classID int) (*Class, error)
	ListByTrainer(ctx context.Context, trainerID int) ([]Booking, error)
	ListClassesByTrainer(ctx context.Context, trainerID int) ([]Class, error)
}

type service struct {
	db   *sqlx.DB
	repo Repository
}

func NewService(database *sqlx.DB, repo Repository) Service {
	return &service{db: database, repo: repo}
}

const dateLayout = "2006-01-02"

func parseWindow(startTime, endTime string, dim schedule.Dimension) (schedule.Slot, error) {
	start, err := schedule.ParseTimeOfDay(startTime)
	if err != nil {
		return schedule.Slot{}, err
	}
	end, err := schedule.ParseTimeOfDay(endTime)
	if err != nil {
		return schedule.Slot{}, err
	}

	slot := schedule.Slot{Dim: dim, Start: start, End: end}
	if err := slot.Validate(); err != nil {
		return schedule.Slot{}, err
	}
	return slot, nil
}

// reserve is the single entry point that owns the conflict-check-and-insert
// transaction: trainer row locked first, live slots re-read under that lock,
// then the detector decides. Two concurrent attempts for the same trainer
// serialize on the lock, so the loser sees the winner's row.
func (s *service) reserve(ctx context.Context, trainerID int, proposed schedule.Slot, excludeBookingID int, insert func(tx *sqlx.Tx) error) error {
	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.LockTrainerTx(ctx, tx, trainerID); err != nil {
			return err
		}

		existing, err := s.repo.TrainerSlotsTx(ctx, tx, trainerID, proposed.Dim, excludeBookingID)
		if err != nil {
			return err
		}

		if _, conflict := schedule.FirstConflict(existing, proposed); conflict {
			metrics.RecordBookingRejection("overlap")
			return apperr.Conflict(apperr.CodeOverlap,
				"trainer %d already has a booking overlapping %s %s-%s",
				trainerID, proposed.Dim, proposed.Start, proposed.End)
		}

		return insert(tx)
	})
}

func (s *service) CreateClass(ctx context.Context, req CreateClassRequest) (*Class, error) {
	slot, err := parseWindow(req.StartTime, req.EndTime, schedule.RecurringOn(time.Weekday(req.Weekday)))
	if err != nil {
		return nil, err
	}

	c := &Class{
		TrainerID: req.TrainerID,
		Title:     req.Title,
		Weekday:   time.Weekday(req.Weekday),
		StartTime: slot.Start,
		EndTime:   slot.End,
		Capacity:  req.Capacity,
	}

	err = s.reserve(ctx, req.TrainerID, slot, 0, func(tx *sqlx.Tx) error {
		return s.repo.InsertClassTx(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking("class")
	return c, nil
}

func (s *service) CreatePersonal(ctx context.Context, req CreatePersonalRequest) (*Booking, error) {
	date, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
	if err != nil {
		return nil, apperr.Validationf("invalid date %q, expected YYYY-MM-DD", req.Date)
	}

	slot, err := parseWindow(req.StartTime, req.EndTime, schedule.OneOffOn(date))
	if err != nil {
		return nil, err
	}

	b := &Booking{
		Kind:      KindPersonal,
		TrainerID: req.TrainerID,
		MemberID:  req.MemberID,
		Date:      &date,
		StartTime: &slot.Start,
		EndTime:   &slot.End,
	}

	err = s.reserve(ctx, req.TrainerID, slot, 0, func(tx *sqlx.Tx) error {
		return s.repo.InsertBookingTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking("personal")
	return b, nil
}

func (s *service) UpdatePersonal(ctx context.Context, bookingID int, req UpdatePersonalRequest) (*Booking, error) {
	date, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
	if err != nil {
		return nil, apperr.Validationf("invalid date %q, expected YYYY-MM-DD", req.Date)
	}

	slot, err := parseWindow(req.StartTime, req.EndTime, schedule.OneOffOn(date))
	if err != nil {
		return nil, err
	}

	var updated *Booking

	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		b, err := s.repo.GetBookingForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.Kind != KindPersonal {
			return apperr.Validationf("booking %d is a class reservation, not a personal session", bookingID)
		}
		if b.State != StateScheduled {
			return apperr.Transition("", "cannot move a %s booking", b.State)
		}

		if err := s.repo.LockTrainerTx(ctx, tx, b.TrainerID); err != nil {
			return err
		}

		// Re-run the conflict check against everything except the booking
		// being moved.
		existing, err := s.repo.TrainerSlotsTx(ctx, tx, b.TrainerID, slot.Dim, b.ID)
		if err != nil {
			return err
		}
		if _, conflict := schedule.FirstConflict(existing, slot); conflict {
			metrics.RecordBookingRejection("overlap")
			return apperr.Conflict(apperr.CodeOverlap,
				"trainer %d already has a booking overlapping %s %s-%s",
				b.TrainerID, slot.Dim, slot.Start, slot.End)
		}

		b.Date = &date
		b.StartTime = &slot.Start
		b.EndTime = &slot.End
		if err := s.repo.UpdateTimesTx(ctx, tx, b); err != nil {
			return err
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *service) Reserve(ctx context.Context, classID int, req ReserveRequest) (*Booking, error) {
	var b *Booking

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		// The class row lock serializes concurrent reservations, so the
		// capacity count cannot be read stale.
		c, err := s.repo.GetClassForUpdateTx(ctx, tx, classID)
		if err != nil {
			return err
		}

		taken, err := s.repo.MemberHasReservationTx(ctx, tx, classID, req.MemberID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict(apperr.CodeAlreadyReserved,
				"member %d already has a reservation for class %d", req.MemberID, classID)
		}

		current, err := s.repo.CountReservationsTx(ctx, tx, classID)
		if err != nil {
			return err
		}
		if current >= c.Capacity {
			metrics.RecordBookingRejection("capacity")
			return apperr.Conflict(apperr.CodeCapacityExceeded,
				"class %d is full (%d/%d)", classID, current, c.Capacity)
		}

		b = &Booking{
			Kind:      KindReservation,
			TrainerID: c.TrainerID,
			MemberID:  req.MemberID,
			ClassID:   &classID,
		}
		return s.repo.InsertBookingTx(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordBooking("reservation")
	return b, nil
}

func (s *service) transition(ctx context.Context, bookingID int, to State) (*Booking, error) {
	changed, err := s.repo.TransitionState(ctx, bookingID, StateScheduled, to)
	if err != nil {
		return nil, err
	}
	if !changed {
		b, err := s.repo.GetBookingByID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		return nil, apperr.Transition("", "booking %d is %s, not scheduled", bookingID, b.State)
	}

	return s.repo.GetBookingByID(ctx, bookingID)
}

func (s *service) Cancel(ctx context.Context, bookingID int) (*Booking, error) {
	return s.transition(ctx, bookingID, StateCancelled)
}

func (s *service) Complete(ctx context.Context, bookingID int) (*Booking, error) {
	return s.transition(ctx, bookingID, StateCompleted)
}

func (s *service) MarkNoShow(ctx context.Context, bookingID int) (*Booking, error) {
	return s.transition(ctx, bookingID, StateNoShow)
}

func (s *service) Get(ctx context.Context, bookingID int) (*Booking, error) {
	return s.repo.GetBookingByID(ctx, bookingID)
}

func (s *service) GetClass(ctx context.Context, classID int) (*Class, error) {
	return s.repo.GetClassByID(ctx, classID)
}

func (s *service) ListByTrainer(ctx context.Context, trainerID int) ([]Booking, error) {
	return s.repo.ListByTrainer(ctx, trainerID)
}

func (s *service) ListClassesByTrainer(ctx context.Context, trainerID int) ([]Class, error) {
	return s.repo.ListClassesByTrainer(ctx, trainerID)
}
