package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListOccupying(ctx context.Context, specialistID int64, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error) {
	args := m.Called(ctx, specialistID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Appointment), args.Error(1)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...interface{}) {}

func booked(id int64, start time.Time, minutes int) *domain.Appointment {
	return &domain.Appointment{ID: id, StartTime: start, DurationMinutes: minutes, Status: domain.StatusPending}
}

func TestChecker_HasConflict(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListOccupying", mock.Anything, int64(7), []domain.AppointmentStatus{domain.StatusPending, domain.StatusConfirmed}).
		Return([]*domain.Appointment{booked(1, at(10, 0), 30)}, nil)

	checker := NewChecker(lister, domain.DefaultCalendarPolicy(), nopLogger{})
	ctx := context.Background()

	conflict, err := checker.HasConflict(ctx, 7, at(9, 30), at(10, 0), nil)
	require.NoError(t, err)
	assert.False(t, conflict, "touching endpoints")

	conflict, err = checker.HasConflict(ctx, 7, at(9, 45), at(10, 15), nil)
	require.NoError(t, err)
	assert.True(t, conflict)

	conflict, err = checker.HasConflict(ctx, 7, at(10, 0), at(10, 30), ptr.Ptr(int64(1)))
	require.NoError(t, err)
	assert.False(t, conflict, "own appointment excluded")
}

func TestChecker_SkipsBrokenRows(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListOccupying", mock.Anything, int64(7), mock.Anything).
		Return([]*domain.Appointment{
			{ID: 2, DurationMinutes: 30, Status: domain.StatusPending},
			booked(3, at(12, 0), 0),
		}, nil)

	checker := NewChecker(lister, domain.DefaultCalendarPolicy(), nopLogger{})

	conflict, err := checker.HasConflict(context.Background(), 7, at(11, 0), at(13, 0), nil)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestChecker_StoreError(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListOccupying", mock.Anything, int64(7), mock.Anything).Return(nil, errors.New("db down"))

	checker := NewChecker(lister, domain.DefaultCalendarPolicy(), nopLogger{})

	_, err := checker.HasConflict(context.Background(), 7, at(11, 0), at(12, 0), nil)
	assert.Error(t, err)
}

func TestBusyIntervals_FiltersByPolicy(t *testing.T) {
	appointments := []*domain.Appointment{
		booked(1, at(9, 0), 30),
		{ID: 2, StartTime: at(11, 0), DurationMinutes: 30, Status: domain.StatusCancelledByClient},
		{ID: 3, StartTime: at(12, 0), DurationMinutes: 60, Status: domain.StatusCompleted},
		{ID: 4, StartTime: at(14, 0), DurationMinutes: 60, Status: domain.StatusNoShow},
	}

	busy := BusyIntervals(appointments, domain.DefaultCalendarPolicy())

	assert.Equal(t, []Interval{
		{Start: at(9, 0), End: at(9, 30)},
		{Start: at(12, 0), End: at(13, 0)},
	}, busy)
}
