package domain

import (
	"strconv"
	"time"
)

// AppointmentEvent полезная нагрузка событий appointment.created / appointment.updated
type AppointmentEvent struct {
	AppointmentID   int64             `json:"appointment_id"`
	ClientID        int64             `json:"client_id"`
	SpecialistID    *int64            `json:"specialist_id,omitempty"`
	ServiceID       int64             `json:"service_id"`
	StartTime       time.Time         `json:"start_time"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          AppointmentStatus `json:"status"`
	ChangedBy       int64             `json:"changed_by"`
	ChangedByRole   Role              `json:"changed_by_role"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

// NewAppointmentEvent снимок записи на момент изменения
func NewAppointmentEvent(a *Appointment, actor Requester, at time.Time) AppointmentEvent {
	return AppointmentEvent{
		AppointmentID:   a.ID,
		ClientID:        a.ClientID,
		SpecialistID:    a.SpecialistID,
		ServiceID:       a.ServiceID,
		StartTime:       a.StartTime,
		DurationMinutes: a.DurationMinutes,
		Status:          a.Status,
		ChangedBy:       actor.UserID,
		ChangedByRole:   actor.Role,
		OccurredAt:      at,
	}
}

// AggregateID ключ события (ID записи)
func (e AppointmentEvent) AggregateID() string {
	return strconv.FormatInt(e.AppointmentID, 10)
}
