package update_appointment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	updateAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/update_appointment"
)

const (
	msgInvalidAppointmentID  = "некорректный ID записи"
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgInvalidStartTime      = "некорректное время начала, ожидается ISO-8601 с часовым поясом"
	msgMissingUserID         = "отсутствует ID пользователя"
	msgInvalidInput          = "некорректные данные записи"
	msgEmptyPatch            = "нет полей для изменения"
	msgInvalidStatus         = "некорректный статус"
	msgInvalidTransition     = "недопустимый переход статуса"
	msgNotFound              = "запись не найдена"
	msgServiceNotAvailable   = "услуга не найдена или неактивна"
	msgSpecialistNotProvides = "специалист не оказывает эту услугу"
	msgForbidden             = "доступ запрещен"
	msgSlotNotAvailable      = "выбранное время специалиста уже занято"
	msgConcurrentUpdate      = "запись изменяется параллельным запросом, повторите попытку"
)

type Handler struct {
	useCase UpdateAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase UpdateAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle PUT /api/v1/appointments/{appointmentId}
// Набор допустимых полей зависит от роли пользователя
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	appointmentID, err := strconv.ParseInt(vars["appointmentId"], 10, 64)
	if err != nil || appointmentID <= 0 {
		h.logger.Warn("PUT /appointments/{id} - Invalid appointment ID: %q", vars["appointmentId"])
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	requester, ok := middleware.GetRequester(r.Context())
	if !ok {
		h.logger.Warn("PUT /appointments/{id} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req UpdateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /appointments/{id} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(appointmentID, requester)
	if err != nil {
		h.logger.Warn("PUT /appointments/{id} - Failed to parse request: %v", err)
		if errors.Is(err, errInvalidStartTime) {
			handlers.RespondBadRequest(w, msgInvalidStartTime)
		} else {
			handlers.RespondBadRequest(w, msgInvalidRequestBody)
		}
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, updateAppointment.ErrInvalidInput):
			h.logger.Warn("PUT /appointments/{id} - Invalid input: appointment_id=%d, error=%v", appointmentID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, updateAppointment.ErrEmptyPatch):
			h.logger.Warn("PUT /appointments/{id} - Empty patch: appointment_id=%d", appointmentID)
			handlers.RespondBadRequest(w, msgEmptyPatch)

		case errors.Is(err, updateAppointment.ErrInvalidStatus):
			h.logger.Warn("PUT /appointments/{id} - Invalid status: appointment_id=%d, error=%v", appointmentID, err)
			handlers.RespondBadRequest(w, msgInvalidStatus)

		case errors.Is(err, updateAppointment.ErrInvalidTransition):
			h.logger.Warn("PUT /appointments/{id} - Invalid transition: appointment_id=%d", appointmentID)
			handlers.RespondBadRequest(w, msgInvalidTransition)

		case errors.Is(err, updateAppointment.ErrServiceNotAvailable):
			h.logger.Warn("PUT /appointments/{id} - Service not available: appointment_id=%d", appointmentID)
			handlers.RespondBadRequest(w, msgServiceNotAvailable)

		case errors.Is(err, updateAppointment.ErrSpecialistNotProvidesService):
			h.logger.Warn("PUT /appointments/{id} - Specialist does not provide service: appointment_id=%d", appointmentID)
			handlers.RespondBadRequest(w, msgSpecialistNotProvides)

		case errors.Is(err, updateAppointment.ErrAppointmentNotFound):
			h.logger.Warn("PUT /appointments/{id} - Appointment not found: appointment_id=%d", appointmentID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, updateAppointment.ErrAccessDenied):
			h.logger.Warn("PUT /appointments/{id} - Access denied: appointment_id=%d, user_id=%d, role=%s",
				appointmentID, requester.UserID, requester.Role)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, updateAppointment.ErrSlotNotAvailable):
			h.logger.Warn("PUT /appointments/{id} - Slot not available: appointment_id=%d", appointmentID)
			handlers.RespondConflict(w, msgSlotNotAvailable)

		case errors.Is(err, updateAppointment.ErrConcurrentUpdate):
			h.logger.Warn("PUT /appointments/{id} - Concurrent transaction conflict: appointment_id=%d", appointmentID)
			handlers.RespondRetryLater(w, msgConcurrentUpdate)

		default:
			h.logger.Error("PUT /appointments/{id} - Failed to update appointment: appointment_id=%d, error=%v", appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /appointments/{id} - Appointment updated successfully: appointment_id=%d, user_id=%d, role=%s",
		appointmentID, requester.UserID, requester.Role)
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
