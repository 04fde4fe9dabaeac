package create_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	createAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
)

const (
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgInvalidStartTime      = "некорректное время начала, ожидается ISO-8601 с часовым поясом"
	msgMissingUserID         = "отсутствует ID пользователя"
	msgInvalidInput          = "некорректные данные записи"
	msgStartTimeInPast       = "время начала должно быть в будущем"
	msgServiceNotFound       = "услуга не найдена или неактивна"
	msgSpecialistNotProvides = "специалист не оказывает эту услугу"
	msgNoSpecialist          = "нет специалистов, оказывающих эту услугу"
	msgSlotNotAvailable      = "выбранное время специалиста уже занято"
	msgConcurrentUpdate      = "запрос конфликтует с параллельной записью, повторите попытку"
)

type Handler struct {
	useCase CreateAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase CreateAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.GetRequester(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(requester.UserID)
	if err != nil {
		h.logger.Warn("POST /appointments - Invalid start time %q: %v", req.StartTime, err)
		handlers.RespondBadRequest(w, msgInvalidStartTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createAppointment.ErrInvalidInput):
			h.logger.Warn("POST /appointments - Invalid input: client_id=%d, error=%v", requester.UserID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, createAppointment.ErrInvalidDate):
			h.logger.Warn("POST /appointments - Start time not in future: client_id=%d", requester.UserID)
			handlers.RespondBadRequest(w, msgStartTimeInPast)

		case errors.Is(err, createAppointment.ErrServiceNotFound):
			h.logger.Warn("POST /appointments - Service not found: service_id=%d", req.ServiceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, createAppointment.ErrSpecialistNotProvidesService):
			h.logger.Warn("POST /appointments - Specialist does not provide service: service_id=%d", req.ServiceID)
			handlers.RespondBadRequest(w, msgSpecialistNotProvides)

		case errors.Is(err, createAppointment.ErrNoSpecialistForService):
			h.logger.Warn("POST /appointments - No specialist for service: service_id=%d", req.ServiceID)
			handlers.RespondBadRequest(w, msgNoSpecialist)

		case errors.Is(err, createAppointment.ErrSlotNotAvailable):
			h.logger.Warn("POST /appointments - Slot not available: client_id=%d, service_id=%d", requester.UserID, req.ServiceID)
			handlers.RespondConflict(w, msgSlotNotAvailable)

		case errors.Is(err, createAppointment.ErrConcurrentUpdate):
			h.logger.Warn("POST /appointments - Concurrent transaction conflict: client_id=%d, service_id=%d", requester.UserID, req.ServiceID)
			handlers.RespondRetryLater(w, msgConcurrentUpdate)

		default:
			h.logger.Error("POST /appointments - Failed to create appointment: client_id=%d, service_id=%d, error=%v",
				requester.UserID, req.ServiceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments - Appointment created successfully: appointment_id=%d, client_id=%d",
		result.ID, requester.UserID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
