package create_appointment

import "time"

// Request модель запроса на создание записи
type Request struct {
	ClientID     int64     // ID клиента (из аутентификации)
	ServiceID    int64     // ID услуги
	SpecialistID *int64    // ID специалиста (опционально)
	StartTime    time.Time // Время начала (с часовым поясом)
	ClientNotes  *string   // Заметки клиента (опционально)
}

// Response модель ответа с созданной записью
type Response struct {
	ID              int64
	ClientID        int64
	SpecialistID    *int64
	ServiceID       int64
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	Status          string
	ClientNotes     *string

	CreatedAt time.Time
}

// Способ назначения специалиста (метка метрики)
const (
	assignmentRequested  = "requested"
	assignmentAuto       = "auto"
	assignmentUnassigned = "unassigned"
)
