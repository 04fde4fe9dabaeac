package domain

// CalendarPolicy какие статусы занимают время специалиста.
// Overlap-набор используется при создании и переносе записи,
// availability-набор при расчёте свободных слотов.
type CalendarPolicy struct {
	overlap      map[AppointmentStatus]struct{}
	availability map[AppointmentStatus]struct{}
}

// DefaultCalendarPolicy pending/confirmed блокируют запись,
// completed дополнительно скрывает слот из выдачи доступности
func DefaultCalendarPolicy() CalendarPolicy {
	return NewCalendarPolicy(
		[]AppointmentStatus{StatusPending, StatusConfirmed},
		[]AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted},
	)
}

// NewCalendarPolicy собирает политику. Availability-набор всегда
// включает overlap-набор, чтобы каждый выданный слот можно было забронировать.
func NewCalendarPolicy(overlap, availability []AppointmentStatus) CalendarPolicy {
	p := CalendarPolicy{
		overlap:      make(map[AppointmentStatus]struct{}, len(overlap)),
		availability: make(map[AppointmentStatus]struct{}, len(overlap)+len(availability)),
	}
	for _, s := range overlap {
		p.overlap[s] = struct{}{}
		p.availability[s] = struct{}{}
	}
	for _, s := range availability {
		p.availability[s] = struct{}{}
	}
	return p
}

func (p CalendarPolicy) OccupiesForOverlap(s AppointmentStatus) bool {
	_, ok := p.overlap[s]
	return ok
}

func (p CalendarPolicy) OccupiesForAvailability(s AppointmentStatus) bool {
	_, ok := p.availability[s]
	return ok
}

// OverlapStatuses статусы в порядке AllStatuses (для SQL фильтра)
func (p CalendarPolicy) OverlapStatuses() []AppointmentStatus {
	return ordered(p.overlap)
}

func (p CalendarPolicy) AvailabilityStatuses() []AppointmentStatus {
	return ordered(p.availability)
}

func ordered(set map[AppointmentStatus]struct{}) []AppointmentStatus {
	result := make([]AppointmentStatus, 0, len(set))
	for _, s := range AllStatuses {
		if _, ok := set[s]; ok {
			result = append(result, s)
		}
	}
	return result
}
