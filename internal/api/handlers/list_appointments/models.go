package list_appointments

import (
	"net/url"
	"strconv"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

// ToServiceRequest формирует запрос к сервису из query параметров
// specialistId, clientId, status, dateFrom, dateTo (все опциональны)
func ToServiceRequest(requester domain.Requester, query url.Values) (*models.ListFilteredRequest, error) {
	req := &models.ListFilteredRequest{Requester: requester}

	if raw := query.Get("specialistId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.SpecialistID = &id
	}

	if raw := query.Get("clientId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		req.ClientID = &id
	}

	req.Status = optional(query, "status")
	req.DateFrom = optional(query, "dateFrom")
	req.DateTo = optional(query, "dateTo")

	return req, nil
}

func optional(query url.Values, key string) *string {
	if v := query.Get(key); v != "" {
		return &v
	}
	return nil
}
