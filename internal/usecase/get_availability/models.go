package get_availability

import "time"

// Request модель запроса свободных слотов
type Request struct {
	ServiceID    int64     // ID услуги
	SpecialistID *int64    // ID специалиста (опционально)
	Date         time.Time // Календарная дата в часовом поясе бизнеса
}

// Response свободные слоты.
// Если в запросе указан специалист, заполняется Slots, иначе BySpecialist.
type Response struct {
	SingleSpecialist bool
	Slots            []time.Time
	BySpecialist     map[int64][]time.Time // специалисты без слотов не попадают в ответ
}
