package create_appointment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/outbox"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment) (*domain.Appointment, error)
}

// Directory каталог услуг и специалистов
type Directory interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	SpecialistProvides(ctx context.Context, specialistID, serviceID int64) (bool, error)
	AnySpecialistProvides(ctx context.Context, serviceID int64) (bool, error)
	ListSpecialistsFor(ctx context.Context, serviceID int64) ([]int64, error)
	LockSpecialist(ctx context.Context, specialistID int64) error
}

// OverlapChecker проверка пересечения интервалов специалиста
type OverlapChecker interface {
	HasConflict(ctx context.Context, specialistID int64, start, end time.Time, excludeID *int64) (bool, error)
}

// OutboxWriter запись события в той же транзакции
type OutboxWriter interface {
	Insert(ctx context.Context, evt outbox.Event) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics счётчики создания записей
type Metrics interface {
	IncAppointmentCreated(assignment string)
	IncAppointmentConflict(operation string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
