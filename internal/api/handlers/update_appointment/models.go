package update_appointment

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	updateAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/update_appointment"
)

var errInvalidStartTime = errors.New("invalid startTime")

// UpdateAppointmentRequest HTTP request model.
// Отсутствующее поле не меняется; specialistId: null снимает специалиста.
type UpdateAppointmentRequest struct {
	ClientID     *int64          `json:"clientId,omitempty"`
	SpecialistID json.RawMessage `json:"specialistId,omitempty"`
	ServiceID    *int64          `json:"serviceId,omitempty"`
	StartTime    *string         `json:"startTime,omitempty"`
	Status       *string         `json:"status,omitempty"`
	ClientNotes  *string         `json:"clientNotes,omitempty"`
	AdminNotes   *string         `json:"adminNotes,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *UpdateAppointmentRequest) ToUseCaseRequest(id int64, requester domain.Requester) (*updateAppointment.Request, error) {
	req := &updateAppointment.Request{
		AppointmentID: id,
		Requester:     requester,
		ClientID:      r.ClientID,
		ServiceID:     r.ServiceID,
		Status:        r.Status,
		ClientNotes:   r.ClientNotes,
		AdminNotes:    r.AdminNotes,
	}

	if len(r.SpecialistID) > 0 {
		if bytes.Equal(bytes.TrimSpace(r.SpecialistID), []byte("null")) {
			req.ClearSpecialist = true
		} else {
			var specialistID int64
			if err := json.Unmarshal(r.SpecialistID, &specialistID); err != nil {
				return nil, err
			}
			req.SpecialistID = &specialistID
		}
	}

	if r.StartTime != nil {
		startTime, err := time.Parse(time.RFC3339, *r.StartTime)
		if err != nil {
			return nil, errInvalidStartTime
		}
		req.StartTime = &startTime
	}

	return req, nil
}

// FromUseCaseResponse ответ: id и только изменённые поля
func FromUseCaseResponse(resp *updateAppointment.Response) map[string]interface{} {
	changed := resp.Changed
	result := map[string]interface{}{"id": resp.ID}

	if changed.ClientID != nil {
		result["clientId"] = *changed.ClientID
	}
	if changed.SpecialistID != nil {
		result["specialistId"] = *changed.SpecialistID
	} else if changed.ClearSpecialist {
		result["specialistId"] = nil
	}
	if changed.ServiceID != nil {
		result["serviceId"] = *changed.ServiceID
	}
	if changed.StartTime != nil {
		result["startTime"] = changed.StartTime.Format(time.RFC3339)
	}
	if changed.DurationMinutes != nil {
		result["durationMinutes"] = *changed.DurationMinutes
	}
	if changed.Status != nil {
		result["status"] = string(*changed.Status)
	}
	if changed.ClientNotes != nil {
		result["clientNotes"] = *changed.ClientNotes
	}
	if changed.AdminNotes != nil {
		result["adminNotes"] = *changed.AdminNotes
	}

	return result
}
