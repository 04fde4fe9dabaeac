package list_appointments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
	"github.com/m04kA/SMC-AppointmentService/internal/testutil/memstore"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func newHandler() *Handler {
	store := memstore.New()
	store.AddService(domain.Service{ID: 1, Name: "Massage", DurationMinutes: 30, IsActive: true})
	store.AddSpecialist(10, 100, 1)
	store.AddSpecialist(11, 101, 1)
	store.Seed(domain.Appointment{ID: 1, ClientID: 5, SpecialistID: ptr.Ptr(int64(10)), ServiceID: 1,
		StartTime: time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC), DurationMinutes: 30, Status: domain.StatusPending})
	store.Seed(domain.Appointment{ID: 2, ClientID: 6, SpecialistID: ptr.Ptr(int64(11)), ServiceID: 1,
		StartTime: time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC), DurationMinutes: 30, Status: domain.StatusConfirmed})

	return NewHandler(appointments.NewService(store, store, time.UTC, nopLogger{}), nopLogger{})
}

func list(h *Handler, query string, requester domain.Requester) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?"+query, nil)
	req = req.WithContext(middleware.WithRequester(req.Context(), requester))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func decodeIDs(t *testing.T, rec *httptest.ResponseRecorder) []int64 {
	t.Helper()
	var body []models.AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	ids := make([]int64, 0, len(body))
	for _, a := range body {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestHandle_Admin(t *testing.T) {
	h := newHandler()
	admin := domain.Requester{UserID: 1, Role: domain.RoleAdmin}

	rec := list(h, "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{2, 1}, decodeIDs(t, rec))

	rec = list(h, "status=pending&dateFrom=2025-06-10&dateTo=2025-06-10", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{1}, decodeIDs(t, rec))
}

func TestHandle_SpecialistScoped(t *testing.T) {
	rec := list(newHandler(), "specialistId=11", domain.Requester{UserID: 100, Role: domain.RoleSpecialist})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{1}, decodeIDs(t, rec))
}

func TestHandle_Errors(t *testing.T) {
	h := newHandler()
	admin := domain.Requester{UserID: 1, Role: domain.RoleAdmin}

	assert.Equal(t, http.StatusForbidden, list(h, "", domain.Requester{UserID: 5, Role: domain.RoleClient}).Code)
	assert.Equal(t, http.StatusBadRequest, list(h, "clientId=abc", admin).Code)
	assert.Equal(t, http.StatusBadRequest, list(h, "status=archived", admin).Code)
	assert.Equal(t, http.StatusBadRequest, list(h, "dateFrom=2025/06/10", admin).Code)
}
