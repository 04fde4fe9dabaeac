package get_availability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	getAvailability "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_availability"
)

const (
	msgMissingServiceID    = "ID услуги обязателен"
	msgInvalidServiceID    = "некорректный ID услуги"
	msgInvalidSpecialistID = "некорректный ID специалиста"
	msgInvalidParams       = "некорректные параметры запроса"
	msgMissingDate         = "дата обязательна"
	msgInvalidDate         = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgDateInPast          = "дата в прошлом"
	msgServiceNotFound     = "услуга не найдена или неактивна"
	msgSpecialistNotFound  = "специалист не оказывает эту услугу"
)

type Handler struct {
	useCase  GetAvailabilityUseCase
	location *time.Location
	logger   Logger
}

func NewHandler(useCase GetAvailabilityUseCase, location *time.Location, logger Logger) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		useCase:  useCase,
		location: location,
		logger:   logger,
	}
}

// Handle GET /api/v1/appointments/availability
// Query params: serviceId (required), specialistId (optional), date (required, YYYY-MM-DD)
// Публичный endpoint - без авторизации
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	serviceIDStr := query.Get("serviceId")
	if serviceIDStr == "" {
		h.logger.Warn("GET /appointments/availability - Missing service ID")
		handlers.RespondBadRequest(w, msgMissingServiceID)
		return
	}
	serviceID, err := strconv.ParseInt(serviceIDStr, 10, 64)
	if err != nil || serviceID <= 0 {
		h.logger.Warn("GET /appointments/availability - Invalid service ID: %q", serviceIDStr)
		handlers.RespondBadRequest(w, msgInvalidServiceID)
		return
	}

	var specialistID *int64
	if raw := query.Get("specialistId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.logger.Warn("GET /appointments/availability - Invalid specialist ID: %q", raw)
			handlers.RespondBadRequest(w, msgInvalidSpecialistID)
			return
		}
		specialistID = &id
	}

	dateStr := query.Get("date")
	if dateStr == "" {
		h.logger.Warn("GET /appointments/availability - Missing date")
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	useCaseReq, err := ToUseCaseRequest(serviceID, specialistID, dateStr, h.location)
	if err != nil {
		h.logger.Warn("GET /appointments/availability - Invalid date format: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, getAvailability.ErrInvalidInput):
			h.logger.Warn("GET /appointments/availability - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidParams)

		case errors.Is(err, getAvailability.ErrInvalidDate):
			h.logger.Warn("GET /appointments/availability - Date in past: date=%s", dateStr)
			handlers.RespondBadRequest(w, msgDateInPast)

		case errors.Is(err, getAvailability.ErrServiceNotFound):
			h.logger.Warn("GET /appointments/availability - Service not found: service_id=%d", serviceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, getAvailability.ErrSpecialistNotFound):
			h.logger.Warn("GET /appointments/availability - Specialist not found: service_id=%d", serviceID)
			handlers.RespondNotFound(w, msgSpecialistNotFound)

		default:
			h.logger.Error("GET /appointments/availability - Failed to get slots: service_id=%d, date=%s, error=%v",
				serviceID, dateStr, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /appointments/availability - Slots retrieved successfully: service_id=%d, date=%s",
		serviceID, dateStr)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
