package get_schedule

import (
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/scheduling"
)

// ScheduleResponse действующая сетка рабочего дня и календарная политика
type ScheduleResponse struct {
	WorkStartHour        int      `json:"workStartHour"`
	WorkEndHour          int      `json:"workEndHour"`
	SlotStepMinutes      int      `json:"slotStepMinutes"`
	Timezone             string   `json:"timezone"`
	AssignUnassigned     bool     `json:"assignUnassigned"`
	OverlapStatuses      []string `json:"overlapStatuses"`
	AvailabilityStatuses []string `json:"availabilityStatuses"`
}

// NewScheduleResponse собирает ответ из сетки и политики
func NewScheduleResponse(grid scheduling.WorkingDay, policy domain.CalendarPolicy, assignUnassigned bool) *ScheduleResponse {
	timezone := "UTC"
	if grid.Location != nil {
		timezone = grid.Location.String()
	}

	return &ScheduleResponse{
		WorkStartHour:        grid.StartHour,
		WorkEndHour:          grid.EndHour,
		SlotStepMinutes:      grid.StepMinutes,
		Timezone:             timezone,
		AssignUnassigned:     assignUnassigned,
		OverlapStatuses:      statusNames(policy.OverlapStatuses()),
		AvailabilityStatuses: statusNames(policy.AvailabilityStatuses()),
	}
}

func statusNames(statuses []domain.AppointmentStatus) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
