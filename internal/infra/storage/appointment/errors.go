package appointment

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment.repository: appointment not found")

	// ErrOverlap возвращается при срабатывании exclusion constraint на интервалы специалиста
	ErrOverlap = errors.New("appointment.repository: specialist interval overlap")

	// ErrSerialization возвращается при конфликте сериализуемых транзакций
	ErrSerialization = errors.New("appointment.repository: serialization failure")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("appointment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("appointment.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("appointment.repository: failed to scan row")
)

const (
	pqExclusionViolation   = "23P01"
	pqSerializationFailure = "40001"
)

// classifyExecError оборачивает ошибку PostgreSQL в подходящий sentinel
func classifyExecError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqExclusionViolation:
			return fmt.Errorf("%w: %s: %v", ErrOverlap, op, err)
		case pqSerializationFailure:
			return fmt.Errorf("%w: %s: %v", ErrSerialization, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrExecQuery, op, err)
}

// IsOverlap true, если интервал специалиста уже занят (exclusion constraint)
func IsOverlap(err error) bool {
	return errors.Is(err, ErrOverlap) || hasCode(err, pqExclusionViolation)
}

// IsSerializationFailure true для конфликта сериализуемых транзакций,
// в том числе при commit. Запрос можно повторить.
func IsSerializationFailure(err error) bool {
	return errors.Is(err, ErrSerialization) || hasCode(err, pqSerializationFailure)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
