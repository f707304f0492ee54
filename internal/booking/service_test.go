package booking

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/apperr"
	"gymdesk/internal/schedule"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) GetBookingByID(ctx context.Context, id int) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepo) GetClassByID(ctx context.Context, id int) (*Class, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Class), args.Error(1)
}

func (m *MockRepo) ListByTrainer(ctx context.Context, trainerID int) ([]Booking, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Booking), args.Error(1)
}

func (m *MockRepo) ListClassesByTrainer(ctx context.Context, trainerID int) ([]Class, error) {
	args := m.Called(ctx, trainerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Class), args.Error(1)
}

func (m *MockRepo) LockTrainerTx(ctx context.Context, tx *sqlx.Tx, trainerID int) error {
	return m.Called(ctx, tx, trainerID).Error(0)
}

func (m *MockRepo) TrainerSlotsTx(ctx context.Context, tx *sqlx.Tx, trainerID int, dim schedule.Dimension, excludeBookingID int) ([]schedule.Slot, error) {
	args := m.Called(ctx, tx, trainerID, dim, excludeBookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schedule.Slot), args.Error(1)
}

func (m *MockRepo) InsertClassTx(ctx context.Context, tx *sqlx.Tx, c *Class) error {
	args := m.Called(ctx, tx, c)
	if c.ID == 0 {
		c.ID = 10
	}
	return args.Error(0)
}

func (m *MockRepo) InsertBookingTx(ctx context.Context, tx *sqlx.Tx, b *Booking) error {
	args := m.Called(ctx, tx, b)
	if b.ID == 0 {
		b.ID = 20
		b.State = StateScheduled
	}
	return args.Error(0)
}

func (m *MockRepo) GetBookingForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepo) UpdateTimesTx(ctx context.Context, tx *sqlx.Tx, b *Booking) error {
	return m.Called(ctx, tx, b).Error(0)
}

func (m *MockRepo) GetClassForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Class, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Class), args.Error(1)
}

func (m *MockRepo) CountReservationsTx(ctx context.Context, tx *sqlx.Tx, classID int) (int, error) {
	args := m.Called(ctx, tx, classID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) MemberHasReservationTx(ctx context.Context, tx *sqlx.Tx, classID, memberID int) (bool, error) {
	args := m.Called(ctx, tx, classID, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) TransitionState(ctx context.Context, id int, from, to State) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func newTestService(t *testing.T) (Service, *MockRepo, sqlmock.Sqlmock, func()) {
	rawDB, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(rawDB, "sqlmock")

	repo := new(MockRepo)
	return NewService(sqlxDB, repo), repo, dbMock, func() { sqlxDB.Close() }
}

// mondaySlot is the standing Monday 10:00-11:00 session from the conflict
// scenarios.
func mondaySlot() schedule.Slot {
	return schedule.Slot{
		Dim:   schedule.RecurringOn(time.Monday),
		Start: schedule.MinutesOfDay(10, 0),
		End:   schedule.MinutesOfDay(11, 0),
	}
}

func TestCreatePersonalOverlapRejected(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	repo.On("LockTrainerTx", mock.Anything, mock.Anything, 1).Return(nil)
	repo.On("TrainerSlotsTx", mock.Anything, mock.Anything, 1, mock.Anything, 0).
		Return([]schedule.Slot{mondaySlot()}, nil)

	// 2026-03-02 is a Monday; 10:30-11:30 overlaps the 10:00-11:00 session.
	_, err := svc.CreatePersonal(context.Background(), CreatePersonalRequest{
		TrainerID: 1, MemberID: 5, Date: "2026-03-02", StartTime: "10:30", EndTime: "11:30",
	})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, apperr.CodeOverlap, apperr.CodeOf(err))
	repo.AssertNotCalled(t, "InsertBookingTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePersonalBackToBackAllowed(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	repo.On("LockTrainerTx", mock.Anything, mock.Anything, 1).Return(nil)
	repo.On("TrainerSlotsTx", mock.Anything, mock.Anything, 1, mock.Anything, 0).
		Return([]schedule.Slot{mondaySlot()}, nil)
	repo.On("InsertBookingTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// 11:00-12:00 touches the 10:00-11:00 session and must be allowed.
	b, err := svc.CreatePersonal(context.Background(), CreatePersonalRequest{
		TrainerID: 1, MemberID: 5, Date: "2026-03-02", StartTime: "11:00", EndTime: "12:00",
	})

	require.NoError(t, err)
	assert.Equal(t, StateScheduled, b.State)
	assert.Equal(t, KindPersonal, b.Kind)
}

func TestCreatePersonalBadWindow(t *testing.T) {
	svc, _, _, close := newTestService(t)
	defer close()

	_, err := svc.CreatePersonal(context.Background(), CreatePersonalRequest{
		TrainerID: 1, MemberID: 5, Date: "2026-03-02", StartTime: "12:00", EndTime: "11:00",
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CreatePersonal(context.Background(), CreatePersonalRequest{
		TrainerID: 1, MemberID: 5, Date: "02/03/2026", StartTime: "10:00", EndTime: "11:00",
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateClassConflictsWithExistingSession(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	// The trainer already has a one-off session on a Monday; a recurring
	// Monday class in the same window must be rejected.
	mondayDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	oneOff := schedule.Slot{
		Dim:   schedule.OneOffOn(mondayDate),
		Start: schedule.MinutesOfDay(18, 0),
		End:   schedule.MinutesOfDay(19, 0),
	}

	repo.On("LockTrainerTx", mock.Anything, mock.Anything, 1).Return(nil)
	repo.On("TrainerSlotsTx", mock.Anything, mock.Anything, 1, mock.Anything, 0).
		Return([]schedule.Slot{oneOff}, nil)

	_, err := svc.CreateClass(context.Background(), CreateClassRequest{
		TrainerID: 1, Title: "HIIT", Weekday: int(time.Monday),
		StartTime: "18:30", EndTime: "19:30", Capacity: 10,
	})

	require.Error(t, err)
	assert.Equal(t, apperr.CodeOverlap, apperr.CodeOf(err))
}

func TestUpdatePersonalExcludesSelf(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	start := schedule.MinutesOfDay(10, 0)
	end := schedule.MinutesOfDay(11, 0)
	existing := &Booking{ID: 20, Kind: KindPersonal, TrainerID: 1, MemberID: 5,
		Date: &date, StartTime: &start, EndTime: &end, State: StateScheduled}

	repo.On("GetBookingForUpdateTx", mock.Anything, mock.Anything, 20).Return(existing, nil)
	repo.On("LockTrainerTx", mock.Anything, mock.Anything, 1).Return(nil)
	// The slot set is read with the booking itself excluded.
	repo.On("TrainerSlotsTx", mock.Anything, mock.Anything, 1, mock.Anything, 20).
		Return([]schedule.Slot{}, nil)
	repo.On("UpdateTimesTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// Shifting the same session by 30 minutes within its own old window.
	b, err := svc.UpdatePersonal(context.Background(), 20, UpdatePersonalRequest{
		Date: "2026-03-02", StartTime: "10:30", EndTime: "11:30",
	})

	require.NoError(t, err)
	assert.Equal(t, schedule.MinutesOfDay(10, 30), *b.StartTime)
	repo.AssertExpectations(t)
}

func TestUpdateCancelledBookingRejected(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	repo.On("GetBookingForUpdateTx", mock.Anything, mock.Anything, 20).
		Return(&Booking{ID: 20, Kind: KindPersonal, TrainerID: 1, State: StateCancelled}, nil)

	_, err := svc.UpdatePersonal(context.Background(), 20, UpdatePersonalRequest{
		Date: "2026-03-02", StartTime: "10:00", EndTime: "11:00",
	})

	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestReserveCapacityExceeded(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	class := &Class{ID: 3, TrainerID: 1, Capacity: 10}

	repo.On("GetClassForUpdateTx", mock.Anything, mock.Anything, 3).Return(class, nil)
	repo.On("MemberHasReservationTx", mock.Anything, mock.Anything, 3, 5).Return(false, nil)
	repo.On("CountReservationsTx", mock.Anything, mock.Anything, 3).Return(10, nil)

	_, err := svc.Reserve(context.Background(), 3, ReserveRequest{MemberID: 5})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	// Capacity exhaustion is distinct from a schedule overlap.
	assert.Equal(t, apperr.CodeCapacityExceeded, apperr.CodeOf(err))
	repo.AssertNotCalled(t, "InsertBookingTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestReserveDuplicateMember(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectRollback()

	repo.On("GetClassForUpdateTx", mock.Anything, mock.Anything, 3).
		Return(&Class{ID: 3, TrainerID: 1, Capacity: 10}, nil)
	repo.On("MemberHasReservationTx", mock.Anything, mock.Anything, 3, 5).Return(true, nil)

	_, err := svc.Reserve(context.Background(), 3, ReserveRequest{MemberID: 5})

	assert.Equal(t, apperr.CodeAlreadyReserved, apperr.CodeOf(err))
}

func TestReserveWithSeatLeft(t *testing.T) {
	svc, repo, dbMock, close := newTestService(t)
	defer close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	repo.On("GetClassForUpdateTx", mock.Anything, mock.Anything, 3).
		Return(&Class{ID: 3, TrainerID: 1, Capacity: 10}, nil)
	repo.On("MemberHasReservationTx", mock.Anything, mock.Anything, 3, 5).Return(false, nil)
	repo.On("CountReservationsTx", mock.Anything, mock.Anything, 3).Return(9, nil)
	repo.On("InsertBookingTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	b, err := svc.Reserve(context.Background(), 3, ReserveRequest{MemberID: 5})

	require.NoError(t, err)
	assert.Equal(t, KindReservation, b.Kind)
	require.NotNil(t, b.ClassID)
	assert.Equal(t, 3, *b.ClassID)
}

func TestCancelAlreadyCancelled(t *testing.T) {
	svc, repo, _, close := newTestService(t)
	defer close()

	repo.On("TransitionState", mock.Anything, 20, StateScheduled, StateCancelled).Return(false, nil)
	repo.On("GetBookingByID", mock.Anything, 20).
		Return(&Booking{ID: 20, State: StateCancelled}, nil)

	_, err := svc.Cancel(context.Background(), 20)

	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestCancelScheduled(t *testing.T) {
	svc, repo, _, close := newTestService(t)
	defer close()

	repo.On("TransitionState", mock.Anything, 20, StateScheduled, StateCancelled).Return(true, nil)
	repo.On("GetBookingByID", mock.Anything, 20).
		Return(&Booking{ID: 20, State: StateCancelled}, nil)

	b, err := svc.Cancel(context.Background(), 20)

	require.NoError(t, err)
	assert.Equal(t, StateCancelled, b.State)
}
