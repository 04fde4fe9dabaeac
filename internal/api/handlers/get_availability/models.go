package get_availability

import (
	"strconv"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	getAvailability "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_availability"
)

// ToUseCaseRequest создает запрос use case из query параметров.
// Дата интерпретируется в часовом поясе бизнеса.
func ToUseCaseRequest(serviceID int64, specialistID *int64, dateStr string, loc *time.Location) (*getAvailability.Request, error) {
	date, err := time.ParseInLocation(domain.DateFormat, dateStr, loc)
	if err != nil {
		return nil, err
	}

	return &getAvailability.Request{
		ServiceID:    serviceID,
		SpecialistID: specialistID,
		Date:         date,
	}, nil
}

// FromUseCaseResponse ответ: плоский список для одного специалиста,
// иначе объект {"<specialistId>": [...]}
func FromUseCaseResponse(resp *getAvailability.Response) interface{} {
	if resp.SingleSpecialist {
		return formatSlots(resp.Slots)
	}

	result := make(map[string][]string, len(resp.BySpecialist))
	for specialistID, slots := range resp.BySpecialist {
		result[strconv.FormatInt(specialistID, 10)] = formatSlots(slots)
	}
	return result
}

func formatSlots(slots []time.Time) []string {
	result := make([]string, len(slots))
	for i, slot := range slots {
		result[i] = slot.Format(time.RFC3339)
	}
	return result
}
