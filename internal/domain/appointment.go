package domain

import "time"

// AppointmentStatus статус записи на приём
type AppointmentStatus string

const (
	StatusPending           AppointmentStatus = "pending"
	StatusConfirmed         AppointmentStatus = "confirmed"
	StatusCancelledByClient AppointmentStatus = "cancelled_by_client"
	StatusCancelledByAdmin  AppointmentStatus = "cancelled_by_admin"
	StatusCompleted         AppointmentStatus = "completed"
	StatusNoShow            AppointmentStatus = "no_show"
)

// AllStatuses все допустимые статусы
var AllStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCancelledByClient,
	StatusCancelledByAdmin,
	StatusCompleted,
	StatusNoShow,
}

// IsValid returns true if the status is one of the known values
func (s AppointmentStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsCancelled returns true for both cancellation statuses
func (s AppointmentStatus) IsCancelled() bool {
	return s == StatusCancelledByClient || s == StatusCancelledByAdmin
}

// IsTerminal returns true when no further business transition is expected
func (s AppointmentStatus) IsTerminal() bool {
	return s.IsCancelled() || s == StatusCompleted || s == StatusNoShow
}

// Appointment запись клиента на услугу
type Appointment struct {
	ID              int64
	ClientID        int64
	SpecialistID    *int64 // nil: запись без назначенного специалиста
	ServiceID       int64
	StartTime       time.Time
	DurationMinutes int // копируется из услуги при создании
	Status          AppointmentStatus
	ClientNotes     *string
	AdminNotes      *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EndTime returns StartTime + DurationMinutes
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// IsAssignedTo returns true if the appointment belongs to the given specialist
func (a *Appointment) IsAssignedTo(specialistID int64) bool {
	return a.SpecialistID != nil && *a.SpecialistID == specialistID
}

// AppointmentDetails запись вместе с отображаемыми названиями услуги и специалиста
type AppointmentDetails struct {
	Appointment

	ServiceName  string
	ServicePrice float64

	ClientFirstName *string
	ClientLastName  *string
	ClientEmail     *string

	SpecialistFirstName      *string
	SpecialistLastName       *string
	SpecialistSpecialization *string
}

// AppointmentFilter фильтры списка записей
type AppointmentFilter struct {
	SpecialistID *int64
	ClientID     *int64
	Status       *AppointmentStatus
	DateFrom     *time.Time // включительно, по дате начала
	DateTo       *time.Time // включительно, по дате начала
}

// AppointmentUpdate набор изменяемых колонок; nil означает "не менять"
type AppointmentUpdate struct {
	ClientID        *int64
	SpecialistID    *int64
	ClearSpecialist bool // снять специалиста (specialist_id = NULL)
	ServiceID       *int64
	StartTime       *time.Time
	DurationMinutes *int
	Status          *AppointmentStatus
	ClientNotes     *string
	AdminNotes      *string
}

// IsEmpty returns true if nothing would be changed
func (u AppointmentUpdate) IsEmpty() bool {
	return u.ClientID == nil &&
		u.SpecialistID == nil &&
		!u.ClearSpecialist &&
		u.ServiceID == nil &&
		u.StartTime == nil &&
		u.DurationMinutes == nil &&
		u.Status == nil &&
		u.ClientNotes == nil &&
		u.AdminNotes == nil
}

// Service услуга из каталога
type Service struct {
	ID              int64
	Name            string
	DurationMinutes int
	Price           float64
	IsActive        bool
}
