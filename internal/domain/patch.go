package domain

import "time"

// Patch изменение записи, разрешённое конкретной роли.
// Реализации: AdminPatch, SpecialistStatusPatch, ClientCancel.
type Patch interface {
	isPatch()
}

// AdminPatch администратор может менять любое поле
type AdminPatch struct {
	ClientID        *int64
	SpecialistID    *int64
	ClearSpecialist bool
	ServiceID       *int64
	StartTime       *time.Time
	Status          *AppointmentStatus
	ClientNotes     *string
	AdminNotes      *string
}

// IsEmpty returns true if the patch changes nothing
func (p AdminPatch) IsEmpty() bool {
	return p.ClientID == nil && p.SpecialistID == nil && !p.ClearSpecialist && p.ServiceID == nil &&
		p.StartTime == nil && p.Status == nil && p.ClientNotes == nil && p.AdminNotes == nil
}

// SpecialistStatusPatch специалист отмечает итог приёма и/или пишет заметку
type SpecialistStatusPatch struct {
	Status     *AppointmentStatus // только completed или no_show
	AdminNotes *string
}

// ClientCancel клиент отменяет свою запись
type ClientCancel struct{}

func (AdminPatch) isPatch()            {}
func (SpecialistStatusPatch) isPatch() {}
func (ClientCancel) isPatch()          {}
