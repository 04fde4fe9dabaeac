package update_appointment

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("update_appointment: invalid input data")

	// ErrEmptyPatch возвращается, когда в запросе нет изменяемых полей
	ErrEmptyPatch = errors.New("update_appointment: nothing to update")

	// ErrInvalidStatus возвращается при неизвестном статусе
	ErrInvalidStatus = errors.New("update_appointment: invalid status")

	// ErrInvalidTransition возвращается при недопустимом переходе статуса
	ErrInvalidTransition = errors.New("update_appointment: status transition is not allowed")

	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("update_appointment: appointment not found")

	// ErrServiceNotAvailable возвращается, когда новая услуга не найдена или неактивна
	ErrServiceNotAvailable = errors.New("update_appointment: service not found or inactive")

	// ErrSpecialistNotProvidesService возвращается, когда специалист не оказывает услугу
	ErrSpecialistNotProvidesService = errors.New("update_appointment: specialist does not provide this service")

	// ErrAccessDenied возвращается, когда роль не позволяет такое изменение
	ErrAccessDenied = errors.New("update_appointment: access denied")

	// ErrSlotNotAvailable возвращается, когда новое время специалиста уже занято
	ErrSlotNotAvailable = errors.New("update_appointment: slot is not available")

	// ErrConcurrentUpdate возвращается при конфликте сериализуемых транзакций, запрос можно повторить
	ErrConcurrentUpdate = errors.New("update_appointment: concurrent transaction conflict")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("update_appointment: internal error")
)
