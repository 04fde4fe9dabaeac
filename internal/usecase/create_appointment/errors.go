package create_appointment

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_appointment: invalid input data")

	// ErrInvalidDate возвращается, когда время начала не в будущем
	ErrInvalidDate = errors.New("create_appointment: start time must be in the future")

	// ErrServiceNotFound возвращается, когда услуга не найдена или неактивна
	ErrServiceNotFound = errors.New("create_appointment: service not found")

	// ErrSpecialistNotProvidesService возвращается, когда выбранный специалист не оказывает услугу
	ErrSpecialistNotProvidesService = errors.New("create_appointment: specialist does not provide this service")

	// ErrNoSpecialistForService возвращается, когда услугу не оказывает ни один специалист
	ErrNoSpecialistForService = errors.New("create_appointment: no specialist provides this service")

	// ErrSlotNotAvailable возвращается, когда время специалиста уже занято
	ErrSlotNotAvailable = errors.New("create_appointment: slot is not available")

	// ErrConcurrentUpdate возвращается при конфликте сериализуемых транзакций, запрос можно повторить
	ErrConcurrentUpdate = errors.New("create_appointment: concurrent transaction conflict")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_appointment: internal error")
)
