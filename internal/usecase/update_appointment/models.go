package update_appointment

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Request запрос на изменение записи. nil означает "поле не передано".
type Request struct {
	AppointmentID int64
	Requester     domain.Requester

	ClientID        *int64
	SpecialistID    *int64
	ClearSpecialist bool // specialistId: null
	ServiceID       *int64
	StartTime       *time.Time
	Status          *string
	ClientNotes     *string
	AdminNotes      *string
}

// Response изменённые поля записи
type Response struct {
	ID      int64
	Changed domain.AppointmentUpdate
}
