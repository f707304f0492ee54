package membership

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gymdesk/internal/apperr"
	"gymdesk/internal/audit"
	"gymdesk/internal/plan"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) GetByID(ctx context.Context, id int) (*Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *MockRepo) ListByMember(ctx context.Context, memberID int) ([]Membership, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Membership), args.Error(1)
}

func (m *MockRepo) LockMemberTx(ctx context.Context, tx *sqlx.Tx, memberID int) error {
	return m.Called(ctx, tx, memberID).Error(0)
}

func (m *MockRepo) ActiveForMemberTx(ctx context.Context, tx *sqlx.Tx, memberID int) (*Membership, error) {
	args := m.Called(ctx, tx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *MockRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id int) (*Membership, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *MockRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, mb *Membership) error {
	args := m.Called(ctx, tx, mb)
	if mb.ID == 0 {
		mb.ID = 100
	}
	return args.Error(0)
}

func (m *MockRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, mb *Membership) error {
	return m.Called(ctx, tx, mb).Error(0)
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) Get(ctx context.Context, id int) (*plan.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.Plan), args.Error(1)
}

type MockPayments struct{ mock.Mock }

func (m *MockPayments) AmountPaid(ctx context.Context, paymentID int) (int64, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Publish(ctx context.Context, targetAudience, eventKind, title, message string) error {
	return m.Called(ctx, targetAudience, eventKind, title, message).Error(0)
}

type fixture struct {
	svc      *service
	repo     *MockRepo
	catalog  *MockCatalog
	payments *MockPayments
	notifier *MockNotifier
	dbMock   sqlmock.Sqlmock
	close    func()
}

func newFixture(t *testing.T) *fixture {
	rawDB, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(rawDB, "sqlmock")

	f := &fixture{
		repo:     new(MockRepo),
		catalog:  new(MockCatalog),
		payments: new(MockPayments),
		notifier: new(MockNotifier),
		dbMock:   dbMock,
		close:    func() { sqlxDB.Close() },
	}

	f.svc = NewService(sqlxDB, f.repo, f.catalog, f.payments, audit.NewRepository(sqlxDB), f.notifier).(*service)
	return f
}

func expectAuditInsert(dbMock sqlmock.Sqlmock) {
	dbMock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
}

func basicPlan() *plan.Plan {
	return &plan.Plan{ID: 2, Name: "Basic", PriceCents: 1000, DurationDays: 30, Active: true}
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)
	f.svc.now = func() time.Time { return now }

	f.dbMock.ExpectBegin()
	expectAuditInsert(f.dbMock)
	f.dbMock.ExpectCommit()

	f.catalog.On("Get", mock.Anything, 2).Return(basicPlan(), nil)
	f.payments.On("AmountPaid", mock.Anything, 55).Return(int64(1000), nil)
	f.repo.On("LockMemberTx", mock.Anything, mock.Anything, 7).Return(nil)
	f.repo.On("ActiveForMemberTx", mock.Anything, mock.Anything, 7).Return(nil, nil)
	f.repo.On("InsertTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Publish", mock.Anything, "member:7", "membership_activated", mock.Anything, mock.Anything).Return(nil)

	paymentID := 55
	m, err := f.svc.Assign(context.Background(), AssignRequest{MemberID: 7, PlanID: 2, PaymentID: &paymentID})

	require.NoError(t, err)
	assert.Equal(t, StateActive, m.State)
	assert.Equal(t, int64(1000), m.AmountPaidCents)
	assert.Equal(t, now, m.StartDate)
	assert.Equal(t, now.AddDate(0, 0, 30), m.ExpiryDate)
	f.notifier.AssertExpectations(t)
}

func TestAssignAlreadyActive(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	f.catalog.On("Get", mock.Anything, 2).Return(basicPlan(), nil)
	f.repo.On("LockMemberTx", mock.Anything, mock.Anything, 7).Return(nil)
	f.repo.On("ActiveForMemberTx", mock.Anything, mock.Anything, 7).
		Return(&Membership{ID: 9, MemberID: 7, State: StateActive}, nil)

	_, err := f.svc.Assign(context.Background(), AssignRequest{MemberID: 7, PlanID: 2})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, apperr.CodeAlreadyActive, apperr.CodeOf(err))
	// The existing row must not be touched and nothing new inserted.
	f.repo.AssertNotCalled(t, "InsertTx", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignInactivePlan(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	p := basicPlan()
	p.Active = false
	f.catalog.On("Get", mock.Anything, 2).Return(p, nil)

	_, err := f.svc.Assign(context.Background(), AssignRequest{MemberID: 7, PlanID: 2})

	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAssignNotificationFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.dbMock.ExpectBegin()
	expectAuditInsert(f.dbMock)
	f.dbMock.ExpectCommit()

	f.catalog.On("Get", mock.Anything, 2).Return(basicPlan(), nil)
	f.repo.On("LockMemberTx", mock.Anything, mock.Anything, 7).Return(nil)
	f.repo.On("ActiveForMemberTx", mock.Anything, mock.Anything, 7).Return(nil, nil)
	f.repo.On("InsertTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	m, err := f.svc.Assign(context.Background(), AssignRequest{MemberID: 7, PlanID: 2})

	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestChangeKeepDates(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)
	expiry := start.AddDate(0, 0, 30)
	current := &Membership{ID: 9, MemberID: 7, PlanID: 2, State: StateActive, StartDate: start, ExpiryDate: expiry}

	premium := &plan.Plan{ID: 3, Name: "Premium", PriceCents: 2000, DurationDays: 30, Active: true}

	f.dbMock.ExpectBegin()
	expectAuditInsert(f.dbMock)
	f.dbMock.ExpectCommit()

	f.catalog.On("Get", mock.Anything, 3).Return(premium, nil)
	f.catalog.On("Get", mock.Anything, 2).Return(basicPlan(), nil)
	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).Return(current, nil)
	f.repo.On("LockMemberTx", mock.Anything, mock.Anything, 7).Return(nil)
	f.repo.On("UpdateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(m *Membership) bool {
		return m.ID == 9 && m.State == StateExpired
	})).Return(nil)
	f.repo.On("InsertTx", mock.Anything, mock.Anything, mock.MatchedBy(func(m *Membership) bool {
		return m.PlanID == 3 && m.State == StateActive && m.StartDate.Equal(start) && m.ExpiryDate.Equal(expiry)
	})).Return(nil)

	replacement, err := f.svc.Change(context.Background(), 9, ChangeRequest{PlanID: 3, KeepDates: true})

	require.NoError(t, err)
	assert.Equal(t, 3, replacement.PlanID)
	assert.True(t, replacement.ExpiryDate.Equal(expiry))
	// The member row lock serializes Change with Assign on the same member.
	f.repo.AssertCalled(t, "LockMemberTx", mock.Anything, mock.Anything, 7)
	f.repo.AssertExpectations(t)
}

func TestChangeRequiresActive(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	f.catalog.On("Get", mock.Anything, 3).Return(&plan.Plan{ID: 3, Name: "Premium", DurationDays: 30, Active: true}, nil)
	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).
		Return(&Membership{ID: 9, MemberID: 7, State: StateCancelled}, nil)
	f.repo.On("LockMemberTx", mock.Anything, mock.Anything, 7).Return(nil)

	_, err := f.svc.Change(context.Background(), 9, ChangeRequest{PlanID: 3})

	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestPauseThenResumeExtendsExactly(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.Local)
	m := &Membership{ID: 9, MemberID: 7, PlanID: 2, State: StateActive, ExpiryDate: expiry}

	// Pause for 30 days.
	f.dbMock.ExpectBegin()
	expectAuditInsert(f.dbMock)
	f.dbMock.ExpectCommit()

	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).Return(m, nil)
	f.repo.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	paused, err := f.svc.Pause(context.Background(), 9, PauseRequest{Days: 30, Reason: "travel"})
	require.NoError(t, err)
	assert.Equal(t, StateSuspended, paused.State)
	require.NotNil(t, paused.PauseDays)
	assert.Equal(t, 30, *paused.PauseDays)

	// Resume with extension: expiry moves forward by exactly the paused days.
	f.dbMock.ExpectBegin()
	expectAuditInsert(f.dbMock)
	f.dbMock.ExpectCommit()

	resumed, err := f.svc.Resume(context.Background(), 9, ResumeRequest{Extend: true})
	require.NoError(t, err)
	assert.Equal(t, StateActive, resumed.State)
	assert.True(t, resumed.ExpiryDate.Equal(expiry.AddDate(0, 0, 30)))
	assert.Nil(t, resumed.PauseDays)
	assert.Nil(t, resumed.PauseStart)
}

func TestPauseRejectedWhenSuspended(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).
		Return(&Membership{ID: 9, State: StateSuspended}, nil)

	_, err := f.svc.Pause(context.Background(), 9, PauseRequest{Days: 10})

	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestCancelFromSuspended(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.dbMock.ExpectBegin()
	expectAuditInsert(f.dbMock)
	f.dbMock.ExpectCommit()

	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).
		Return(&Membership{ID: 9, State: StateSuspended}, nil)
	f.repo.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	m, err := f.svc.Cancel(context.Background(), 9, CancelRequest{ReasonCode: "moved_away"})

	require.NoError(t, err)
	assert.Equal(t, StateCancelled, m.State)
	require.NotNil(t, m.CancelReason)
	assert.Equal(t, "moved_away", *m.CancelReason)
}

func TestCancelTerminalRejected(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()

	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).
		Return(&Membership{ID: 9, State: StateCancelled}, nil)

	_, err := f.svc.Cancel(context.Background(), 9, CancelRequest{ReasonCode: "again"})

	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestExpireIfDue(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)
	f.svc.now = func() time.Time { return now }

	m := &Membership{ID: 9, State: StateActive, ExpiryDate: now.AddDate(0, 0, -1)}

	f.dbMock.ExpectBegin()
	expectAuditInsert(f.dbMock)
	f.dbMock.ExpectCommit()

	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).Return(m, nil)
	f.repo.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	got, err := f.svc.ExpireIfDue(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, StateExpired, got.State)

	// Second call is a no-op: already expired, nothing written.
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	got, err = f.svc.ExpireIfDue(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, StateExpired, got.State)
	require.NoError(t, f.dbMock.ExpectationsWereMet())
}

func TestExpireIfDueNotYetDue(t *testing.T) {
	f := newFixture(t)
	defer f.close()

	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)
	f.svc.now = func() time.Time { return now }

	m := &Membership{ID: 9, State: StateActive, ExpiryDate: now.AddDate(0, 0, 10)}

	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	f.repo.On("GetForUpdateTx", mock.Anything, mock.Anything, 9).Return(m, nil)

	got, err := f.svc.ExpireIfDue(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, StateActive, got.State)
	f.repo.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything)
}
