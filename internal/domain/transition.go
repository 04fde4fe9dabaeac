package domain

var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusCancelledByClient, StatusCancelledByAdmin, StatusCompleted, StatusNoShow},
	StatusConfirmed: {StatusCancelledByClient, StatusCancelledByAdmin, StatusCompleted, StatusNoShow},
	// completed и no_show можно поправить друг на друга, отменённые записи закрыты
	StatusCompleted: {StatusNoShow},
	StatusNoShow:    {StatusCompleted},
}

// CanTransition reports whether status from may change to status to.
// Same-status writes are allowed and treated as no-op transitions.
func CanTransition(from, to AppointmentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
