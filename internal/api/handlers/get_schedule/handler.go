package get_schedule

import (
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/scheduling"
)

type Logger interface {
	Info(format string, v ...interface{})
}

type Handler struct {
	response *ScheduleResponse
	logger   Logger
}

func NewHandler(grid scheduling.WorkingDay, policy domain.CalendarPolicy, assignUnassigned bool, logger Logger) *Handler {
	return &Handler{
		response: NewScheduleResponse(grid, policy, assignUnassigned),
		logger:   logger,
	}
}

// Handle GET /api/v1/appointments/schedule
// Публичный endpoint - без авторизации
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("GET /appointments/schedule - Schedule retrieved")
	handlers.RespondJSON(w, http.StatusOK, h.response)
}
