package update_appointment

import (
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// buildPatch единственная точка авторизации по роли: из сырого запроса
// строится вариант изменения, разрешённый этой роли, или возвращается ошибка
func buildPatch(req *Request) (domain.Patch, error) {
	var status *domain.AppointmentStatus
	if req.Status != nil {
		s := domain.AppointmentStatus(*req.Status)
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
		status = &s
	}
	if req.ClientNotes != nil && len(*req.ClientNotes) > domain.MaxNotesLength {
		return nil, fmt.Errorf("%w: client_notes exceeds %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}
	if req.AdminNotes != nil && len(*req.AdminNotes) > domain.MaxNotesLength {
		return nil, fmt.Errorf("%w: admin_notes exceeds %d characters", ErrInvalidInput, domain.MaxNotesLength)
	}

	adminOnly := req.ClientID != nil || req.SpecialistID != nil || req.ClearSpecialist ||
		req.ServiceID != nil || req.StartTime != nil || req.ClientNotes != nil

	switch req.Requester.Role {
	case domain.RoleAdmin:
		patch := domain.AdminPatch{
			ClientID:        req.ClientID,
			SpecialistID:    req.SpecialistID,
			ClearSpecialist: req.ClearSpecialist && req.SpecialistID == nil,
			ServiceID:       req.ServiceID,
			StartTime:       req.StartTime,
			Status:          status,
			ClientNotes:     req.ClientNotes,
			AdminNotes:      req.AdminNotes,
		}
		if patch.IsEmpty() {
			return nil, ErrEmptyPatch
		}
		if patch.ClientID != nil && *patch.ClientID <= 0 {
			return nil, fmt.Errorf("%w: client_id must be positive", ErrInvalidInput)
		}
		if patch.SpecialistID != nil && *patch.SpecialistID <= 0 {
			return nil, fmt.Errorf("%w: specialist_id must be positive", ErrInvalidInput)
		}
		if patch.ServiceID != nil && *patch.ServiceID <= 0 {
			return nil, fmt.Errorf("%w: service_id must be positive", ErrInvalidInput)
		}
		if patch.StartTime != nil && patch.StartTime.IsZero() {
			return nil, fmt.Errorf("%w: start_time is invalid", ErrInvalidInput)
		}
		return patch, nil

	case domain.RoleSpecialist:
		if adminOnly {
			return nil, ErrAccessDenied
		}
		if status != nil && *status != domain.StatusCompleted && *status != domain.StatusNoShow {
			return nil, ErrAccessDenied
		}
		if status == nil && req.AdminNotes == nil {
			return nil, ErrEmptyPatch
		}
		return domain.SpecialistStatusPatch{Status: status, AdminNotes: req.AdminNotes}, nil

	case domain.RoleClient:
		if adminOnly || req.AdminNotes != nil {
			return nil, ErrAccessDenied
		}
		if status == nil {
			return nil, ErrEmptyPatch
		}
		if *status != domain.StatusCancelledByClient {
			return nil, ErrAccessDenied
		}
		return domain.ClientCancel{}, nil
	}

	return nil, ErrAccessDenied
}
