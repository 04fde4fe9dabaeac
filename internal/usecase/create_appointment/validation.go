package create_appointment

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// validateRequest проверяет обязательные поля
func validateRequest(req *Request) error {
	if req.ClientID <= 0 {
		return fmt.Errorf("%w: client_id must be positive", ErrInvalidInput)
	}
	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: service_id must be positive", ErrInvalidInput)
	}
	if req.SpecialistID != nil && *req.SpecialistID <= 0 {
		return fmt.Errorf("%w: specialist_id must be positive", ErrInvalidInput)
	}
	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: start_time is required", ErrInvalidInput)
	}
	if req.ClientNotes != nil && len(*req.ClientNotes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: client_notes exceeds %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}
	return nil
}

// validateStartTime время начала должно быть строго в будущем
func validateStartTime(start, now time.Time) error {
	if !start.After(now) {
		return ErrInvalidDate
	}
	return nil
}
