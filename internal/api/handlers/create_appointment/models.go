package create_appointment

import (
	"time"

	createAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/create_appointment"
)

// CreateAppointmentRequest HTTP request model
type CreateAppointmentRequest struct {
	ServiceID    int64   `json:"serviceId"`
	SpecialistID *int64  `json:"specialistId,omitempty"`
	StartTime    string  `json:"startTime"` // ISO-8601 с часовым поясом
	ClientNotes  *string `json:"clientNotes,omitempty"`
}

// AppointmentResponse HTTP response model
type AppointmentResponse struct {
	ID              int64   `json:"id"`
	ClientID        int64   `json:"clientId"`
	SpecialistID    *int64  `json:"specialistId"`
	ServiceID       int64   `json:"serviceId"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	DurationMinutes int     `json:"durationMinutes"`
	Status          string  `json:"status"`
	ClientNotes     *string `json:"clientNotes,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateAppointmentRequest) ToUseCaseRequest(clientID int64) (*createAppointment.Request, error) {
	startTime, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return nil, err
	}

	return &createAppointment.Request{
		ClientID:     clientID,
		ServiceID:    r.ServiceID,
		SpecialistID: r.SpecialistID,
		StartTime:    startTime,
		ClientNotes:  r.ClientNotes,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createAppointment.Response) *AppointmentResponse {
	return &AppointmentResponse{
		ID:              resp.ID,
		ClientID:        resp.ClientID,
		SpecialistID:    resp.SpecialistID,
		ServiceID:       resp.ServiceID,
		StartTime:       resp.StartTime.Format(time.RFC3339),
		EndTime:         resp.EndTime.Format(time.RFC3339),
		DurationMinutes: resp.DurationMinutes,
		Status:          resp.Status,
		ClientNotes:     resp.ClientNotes,
		CreatedAt:       resp.CreatedAt.Format(time.RFC3339),
	}
}
