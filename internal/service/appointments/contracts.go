package appointments

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей (только чтение)
type AppointmentRepository interface {
	GetDetails(ctx context.Context, id int64) (*domain.AppointmentDetails, error)
	ListByClient(ctx context.Context, clientID int64) ([]*domain.AppointmentDetails, error)
	ListFiltered(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.AppointmentDetails, error)
}

// Directory справочник специалистов
type Directory interface {
	SpecialistIDByUserID(ctx context.Context, userID int64) (int64, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
