package middleware

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/integrations/userservice"
)

// UserResolver определяет роль пользователя во внешнем сервисе
type UserResolver interface {
	GetUser(ctx context.Context, userID int64) (*userservice.User, error)
}

// Limiter решает, пропустить ли очередной запрос с ключом key
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// HTTPMetrics метрики HTTP запросов
type HTTPMetrics interface {
	ObserveHTTPRequest(method, route, status string, seconds float64)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
