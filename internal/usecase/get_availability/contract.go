package get_availability

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	ListBySpecialistAndDay(ctx context.Context, specialistID int64, dayStart, dayEnd time.Time, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error)
}

// Directory каталог услуг и специалистов
type Directory interface {
	GetService(ctx context.Context, id int64) (*domain.Service, error)
	SpecialistProvides(ctx context.Context, specialistID, serviceID int64) (bool, error)
	ListSpecialistsFor(ctx context.Context, serviceID int64) ([]int64, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Metrics распределение количества слотов в ответе
type Metrics interface {
	ObserveAvailabilitySlots(count int)
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
