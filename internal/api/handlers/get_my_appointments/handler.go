package get_my_appointments

import (
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
)

const msgMissingUserID = "отсутствует ID пользователя"

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/appointments/my
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.GetRequester(r.Context())
	if !ok {
		h.logger.Warn("GET /appointments/my - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	list, err := h.service.ListForClient(r.Context(), requester.UserID)
	if err != nil {
		h.logger.Error("GET /appointments/my - Failed to list appointments: user_id=%d, error=%v", requester.UserID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /appointments/my - Appointments retrieved successfully: user_id=%d, count=%d",
		requester.UserID, len(list))
	handlers.RespondJSON(w, http.StatusOK, list)
}
