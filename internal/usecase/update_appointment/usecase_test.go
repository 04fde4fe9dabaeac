package update_appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/scheduling"
	"github.com/m04kA/SMC-AppointmentService/internal/testutil/memstore"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time { return f.now }

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type countingMetrics struct {
	updated   map[string]int
	conflicts int
}

func (m *countingMetrics) IncAppointmentUpdated(role string) { m.updated[role]++ }
func (m *countingMetrics) IncAppointmentConflict(string)     { m.conflicts++ }

var (
	now        = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	admin      = domain.Requester{UserID: 1, Role: domain.RoleAdmin}
	client     = domain.Requester{UserID: 5, Role: domain.RoleClient}
	stranger   = domain.Requester{UserID: 6, Role: domain.RoleClient}
	specialist = domain.Requester{UserID: 100, Role: domain.RoleSpecialist}
	colleague  = domain.Requester{UserID: 101, Role: domain.RoleSpecialist}
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 10, hour, minute, 0, 0, time.UTC)
}

func status(s domain.AppointmentStatus) *string {
	v := string(s)
	return &v
}

func setup(t *testing.T) (*UseCase, *memstore.Store, *countingMetrics) {
	t.Helper()

	store := memstore.New()
	store.AddService(domain.Service{ID: 1, Name: "Massage", DurationMinutes: 30, IsActive: true})
	store.AddService(domain.Service{ID: 2, Name: "Sauna", DurationMinutes: 60, IsActive: false})
	store.AddService(domain.Service{ID: 3, Name: "Yoga", DurationMinutes: 60, IsActive: true})
	store.AddSpecialist(10, 100, 1, 3)
	store.AddSpecialist(11, 101, 1)

	policy := domain.DefaultCalendarPolicy()
	checker := scheduling.NewChecker(store, policy, nopLogger{})
	metrics := &countingMetrics{updated: map[string]int{}}

	uc := NewUseCase(store, store, checker, store, store, metrics, policy, nopLogger{}).
		WithTimeProvider(fixedTime{now: now})

	return uc, store, metrics
}

func seed(store *memstore.Store, specialistID *int64, start time.Time, st domain.AppointmentStatus) int64 {
	return store.Seed(domain.Appointment{
		ClientID:        client.UserID,
		SpecialistID:    specialistID,
		ServiceID:       1,
		StartTime:       start,
		DurationMinutes: 30,
		Status:          st,
	})
}

func find(t *testing.T, store *memstore.Store, id int64) domain.Appointment {
	t.Helper()
	for _, a := range store.All() {
		if a.ID == id {
			return a
		}
	}
	t.Fatalf("appointment %d not found", id)
	return domain.Appointment{}
}

func TestExecute_ClientCancel(t *testing.T) {
	uc, store, metrics := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)

	resp, err := uc.Execute(context.Background(), &Request{
		AppointmentID: id,
		Requester:     client,
		Status:        status(domain.StatusCancelledByClient),
	})

	require.NoError(t, err)
	assert.Equal(t, id, resp.ID)
	require.NotNil(t, resp.Changed.Status)
	assert.Equal(t, domain.StatusCancelledByClient, *resp.Changed.Status)
	assert.Equal(t, domain.StatusCancelledByClient, find(t, store, id).Status)
	assert.Equal(t, 1, metrics.updated[string(domain.RoleClient)])

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventAppointmentUpdated, events[0].EventType)

	var evt domain.AppointmentEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &evt))
	assert.Equal(t, domain.StatusCancelledByClient, evt.Status)
	assert.Equal(t, client.UserID, evt.ChangedBy)
}

func TestExecute_ClientDenied(t *testing.T) {
	tests := []struct {
		name      string
		status    domain.AppointmentStatus
		requester domain.Requester
		req       Request
	}{
		{"someone else's appointment", domain.StatusPending, stranger,
			Request{Status: status(domain.StatusCancelledByClient)}},
		{"already completed", domain.StatusCompleted, client,
			Request{Status: status(domain.StatusCancelledByClient)}},
		{"already cancelled by admin", domain.StatusCancelledByAdmin, client,
			Request{Status: status(domain.StatusCancelledByClient)}},
		{"confirm own appointment", domain.StatusPending, client,
			Request{Status: status(domain.StatusConfirmed)}},
		{"reschedule", domain.StatusPending, client,
			Request{StartTime: ptr.Ptr(at(11, 0))}},
		{"admin notes", domain.StatusPending, client,
			Request{Status: status(domain.StatusCancelledByClient), AdminNotes: ptr.Ptr("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, store, _ := setup(t)
			id := seed(store, ptr.Ptr(int64(10)), at(10, 0), tt.status)

			req := tt.req
			req.AppointmentID = id
			req.Requester = tt.requester

			_, err := uc.Execute(context.Background(), &req)

			assert.ErrorIs(t, err, ErrAccessDenied)
			assert.Equal(t, tt.status, find(t, store, id).Status)
			assert.Empty(t, store.Events())
		})
	}
}

func TestExecute_SpecialistMarksOutcome(t *testing.T) {
	uc, store, _ := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)

	_, err := uc.Execute(context.Background(), &Request{
		AppointmentID: id,
		Requester:     specialist,
		Status:        status(domain.StatusCompleted),
		AdminNotes:    ptr.Ptr("went well"),
	})
	require.NoError(t, err)

	a := find(t, store, id)
	assert.Equal(t, domain.StatusCompleted, a.Status)
	assert.Equal(t, "went well", *a.AdminNotes)

	_, err = uc.Execute(context.Background(), &Request{
		AppointmentID: id,
		Requester:     specialist,
		Status:        status(domain.StatusNoShow),
	})
	require.NoError(t, err, "completed and no_show are interchangeable")
	assert.Equal(t, domain.StatusNoShow, find(t, store, id).Status)
}

func TestExecute_SpecialistDenied(t *testing.T) {
	t.Run("not assigned", func(t *testing.T) {
		uc, store, _ := setup(t)
		id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)

		_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: colleague, Status: status(domain.StatusCompleted)})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("unassigned appointment", func(t *testing.T) {
		uc, store, _ := setup(t)
		id := seed(store, nil, at(10, 0), domain.StatusPending)

		_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: specialist, Status: status(domain.StatusCompleted)})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("no specialist profile", func(t *testing.T) {
		uc, store, _ := setup(t)
		id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)

		_, err := uc.Execute(context.Background(), &Request{
			AppointmentID: id,
			Requester:     domain.Requester{UserID: 999, Role: domain.RoleSpecialist},
			Status:        status(domain.StatusCompleted),
		})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("confirm is admin only", func(t *testing.T) {
		uc, store, _ := setup(t)
		id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusPending)

		_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: specialist, Status: status(domain.StatusConfirmed)})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("outcome of cancelled appointment", func(t *testing.T) {
		uc, store, _ := setup(t)
		id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusCancelledByClient)

		_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: specialist, Status: status(domain.StatusCompleted)})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestExecute_AdminReschedule(t *testing.T) {
	uc, store, metrics := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)
	seed(store, ptr.Ptr(int64(10)), at(11, 0), domain.StatusPending)
	seed(store, ptr.Ptr(int64(10)), at(12, 0), domain.StatusCancelledByAdmin)

	_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, StartTime: ptr.Ptr(at(11, 15))})
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, 1, metrics.conflicts)
	assert.Equal(t, at(10, 0), find(t, store, id).StartTime)

	_, err = uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, StartTime: ptr.Ptr(at(10, 15))})
	assert.NoError(t, err, "own interval is excluded from the check")

	_, err = uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, StartTime: ptr.Ptr(at(12, 0))})
	assert.NoError(t, err, "cancelled appointments do not block")
	assert.Equal(t, at(12, 0), find(t, store, id).StartTime)
}

func TestExecute_AdminReassignConflict(t *testing.T) {
	uc, store, _ := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)
	seed(store, ptr.Ptr(int64(11)), at(10, 0), domain.StatusConfirmed)

	_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, SpecialistID: ptr.Ptr(int64(11))})
	assert.ErrorIs(t, err, ErrSlotNotAvailable)
	assert.Equal(t, int64(10), *find(t, store, id).SpecialistID)
}

func TestExecute_SerializationFailureIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		inject func(store *memstore.Store)
	}{
		{"overlap check", func(store *memstore.Store) {
			store.OccupyingErr = fmt.Errorf("%w: ListOccupying - execute query: could not serialize access", appointmentRepo.ErrSerialization)
		}},
		{"update", func(store *memstore.Store) {
			store.UpdateErr = fmt.Errorf("%w: Update - execute update: could not serialize access", appointmentRepo.ErrSerialization)
		}},
		{"commit", func(store *memstore.Store) {
			store.CommitErr = fmt.Errorf("txmanager: failed to commit transaction: %w", &pq.Error{Code: "40001"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, store, metrics := setup(t)
			id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)
			tt.inject(store)

			_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, StartTime: ptr.Ptr(at(14, 0))})

			assert.ErrorIs(t, err, ErrConcurrentUpdate)
			assert.NotErrorIs(t, err, ErrSlotNotAvailable)
			assert.Equal(t, 1, metrics.conflicts)
			assert.Equal(t, at(10, 0), find(t, store, id).StartTime)
			assert.Empty(t, store.Events())
		})
	}
}

func TestExecute_OverlapOnUpdateMapsToConflict(t *testing.T) {
	uc, store, _ := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)
	store.UpdateErr = fmt.Errorf("%w: Update - execute update: exclusion violation", appointmentRepo.ErrOverlap)

	_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, StartTime: ptr.Ptr(at(14, 0))})

	assert.ErrorIs(t, err, ErrSlotNotAvailable)
}

func TestExecute_AdminReactivateCancelled(t *testing.T) {
	uc, store, _ := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusCancelledByClient)
	seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusConfirmed)

	_, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, Status: status(domain.StatusConfirmed)})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExecute_AdminChangesService(t *testing.T) {
	uc, store, _ := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusPending)

	resp, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, ServiceID: ptr.Ptr(int64(3))})
	require.NoError(t, err)
	require.NotNil(t, resp.Changed.DurationMinutes)
	assert.Equal(t, 60, *resp.Changed.DurationMinutes)

	a := find(t, store, id)
	assert.Equal(t, int64(3), a.ServiceID)
	assert.Equal(t, 60, a.DurationMinutes)
	assert.Equal(t, at(11, 0), a.EndTime())
}

func TestExecute_AdminServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"inactive service", Request{ServiceID: ptr.Ptr(int64(2))}, ErrServiceNotAvailable},
		{"unknown service", Request{ServiceID: ptr.Ptr(int64(99))}, ErrServiceNotAvailable},
		{"specialist does not provide new service", Request{SpecialistID: ptr.Ptr(int64(11)), ServiceID: ptr.Ptr(int64(3))}, ErrSpecialistNotProvidesService},
		{"new specialist does not provide current service", Request{SpecialistID: ptr.Ptr(int64(12))}, ErrSpecialistNotProvidesService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, store, _ := setup(t)
			id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusPending)

			req := tt.req
			req.AppointmentID = id
			req.Requester = admin

			_, err := uc.Execute(context.Background(), &req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.Events())
		})
	}
}

func TestExecute_AdminClearsSpecialist(t *testing.T) {
	uc, store, _ := setup(t)
	id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusPending)

	resp, err := uc.Execute(context.Background(), &Request{AppointmentID: id, Requester: admin, ClearSpecialist: true})
	require.NoError(t, err)
	assert.True(t, resp.Changed.ClearSpecialist)
	assert.Nil(t, find(t, store, id).SpecialistID)
}

func TestExecute_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"empty admin patch", Request{Requester: admin}, ErrEmptyPatch},
		{"empty client patch", Request{Requester: client}, ErrEmptyPatch},
		{"unknown status", Request{Requester: admin, Status: ptr.Ptr("archived")}, ErrInvalidStatus},
		{"negative specialist", Request{Requester: admin, SpecialistID: ptr.Ptr(int64(-1))}, ErrInvalidInput},
		{"unknown role", Request{Requester: domain.Requester{UserID: 7, Role: "guest"}, Status: status(domain.StatusCancelledByClient)}, ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, store, _ := setup(t)
			id := seed(store, ptr.Ptr(int64(10)), at(10, 0), domain.StatusPending)

			req := tt.req
			req.AppointmentID = id

			_, err := uc.Execute(context.Background(), &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExecute_NotFound(t *testing.T) {
	uc, _, _ := setup(t)

	_, err := uc.Execute(context.Background(), &Request{AppointmentID: 42, Requester: admin, AdminNotes: ptr.Ptr("x")})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
