package get_my_appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type mockService struct{ mock.Mock }

func (m *mockService) ListForClient(ctx context.Context, clientID int64) ([]models.AppointmentResponse, error) {
	args := m.Called(ctx, clientID)
	list, _ := args.Get(0).([]models.AppointmentResponse)
	return list, args.Error(1)
}

func doRequest(h *Handler, requester *domain.Requester) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/my", nil)
	if requester != nil {
		req = req.WithContext(middleware.WithRequester(req.Context(), *requester))
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle_OK(t *testing.T) {
	svc := &mockService{}
	svc.On("ListForClient", mock.Anything, int64(5)).Return([]models.AppointmentResponse{
		{ID: 2, ClientID: 5, Status: "pending"},
		{ID: 1, ClientID: 5, Status: "completed"},
	}, nil)

	rec := doRequest(NewHandler(svc, nopLogger{}), &domain.Requester{UserID: 5, Role: domain.RoleClient})

	require.Equal(t, http.StatusOK, rec.Code)
	var body []models.AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, int64(2), body[0].ID)
	svc.AssertExpectations(t)
}

func TestHandle_EmptyListIsArray(t *testing.T) {
	svc := &mockService{}
	svc.On("ListForClient", mock.Anything, int64(5)).Return([]models.AppointmentResponse{}, nil)

	rec := doRequest(NewHandler(svc, nopLogger{}), &domain.Requester{UserID: 5, Role: domain.RoleClient})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandle_Errors(t *testing.T) {
	t.Run("no requester", func(t *testing.T) {
		rec := doRequest(NewHandler(&mockService{}, nopLogger{}), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("service failure", func(t *testing.T) {
		svc := &mockService{}
		svc.On("ListForClient", mock.Anything, int64(5)).Return(nil, errors.New("db down"))

		rec := doRequest(NewHandler(svc, nopLogger{}), &domain.Requester{UserID: 5, Role: domain.RoleClient})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
