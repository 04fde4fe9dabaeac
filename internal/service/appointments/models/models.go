package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid appointment status")

	// ErrInvalidDate возвращается при некорректной дате фильтра
	ErrInvalidDate = errors.New("invalid date")
)

// Request модели

// ListFilteredRequest фильтры списка записей; значения приходят из query string
type ListFilteredRequest struct {
	Requester    domain.Requester
	SpecialistID *int64
	ClientID     *int64
	Status       *string
	DateFrom     *string // "2025-06-10"
	DateTo       *string // "2025-06-10", включительно
}

// ToDomainFilter конвертирует request в domain фильтр.
// Даты интерпретируются как календарные дни в часовом поясе центра.
func (r *ListFilteredRequest) ToDomainFilter(loc *time.Location) (domain.AppointmentFilter, error) {
	filter := domain.AppointmentFilter{
		SpecialistID: r.SpecialistID,
		ClientID:     r.ClientID,
	}

	if r.Status != nil {
		status := domain.AppointmentStatus(*r.Status)
		if !status.IsValid() {
			return filter, ErrInvalidStatus
		}
		filter.Status = &status
	}

	if r.DateFrom != nil {
		from, err := time.ParseInLocation(domain.DateFormat, *r.DateFrom, loc)
		if err != nil {
			return filter, fmt.Errorf("%w: dateFrom", ErrInvalidDate)
		}
		filter.DateFrom = &from
	}
	if r.DateTo != nil {
		to, err := time.ParseInLocation(domain.DateFormat, *r.DateTo, loc)
		if err != nil {
			return filter, fmt.Errorf("%w: dateTo", ErrInvalidDate)
		}
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return filter, fmt.Errorf("%w: dateTo is before dateFrom", ErrInvalidDate)
	}

	return filter, nil
}

// Response модели

// AppointmentResponse ответ с данными записи
type AppointmentResponse struct {
	ID              int64     `json:"id"`
	ClientID        int64     `json:"clientId"`
	SpecialistID    *int64    `json:"specialistId"`
	ServiceID       int64     `json:"serviceId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          string    `json:"status"`
	ClientNotes     *string   `json:"clientNotes,omitempty"`
	AdminNotes      *string   `json:"adminNotes,omitempty"`

	// Денормализованные данные
	ServiceName              string  `json:"serviceName"`
	ServicePrice             float64 `json:"servicePrice"`
	ClientFirstName          *string `json:"clientFirstName,omitempty"`
	ClientLastName           *string `json:"clientLastName,omitempty"`
	ClientEmail              *string `json:"clientEmail,omitempty"`
	SpecialistFirstName      *string `json:"specialistFirstName,omitempty"`
	SpecialistLastName       *string `json:"specialistLastName,omitempty"`
	SpecialistSpecialization *string `json:"specialistSpecialization,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Методы конвертации

// FromDomainDetails конвертирует domain модель в DTO
func FromDomainDetails(d *domain.AppointmentDetails) *AppointmentResponse {
	if d == nil {
		return nil
	}

	return &AppointmentResponse{
		ID:                       d.ID,
		ClientID:                 d.ClientID,
		SpecialistID:             d.SpecialistID,
		ServiceID:                d.ServiceID,
		StartTime:                d.StartTime,
		EndTime:                  d.EndTime(),
		DurationMinutes:          d.DurationMinutes,
		Status:                   string(d.Status),
		ClientNotes:              d.ClientNotes,
		AdminNotes:               d.AdminNotes,
		ServiceName:              d.ServiceName,
		ServicePrice:             d.ServicePrice,
		ClientFirstName:          d.ClientFirstName,
		ClientLastName:           d.ClientLastName,
		ClientEmail:              d.ClientEmail,
		SpecialistFirstName:      d.SpecialistFirstName,
		SpecialistLastName:       d.SpecialistLastName,
		SpecialistSpecialization: d.SpecialistSpecialization,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}
}

// FromDomainDetailsList конвертирует список domain моделей в DTO.
// Пустой список сериализуется как [], а не null.
func FromDomainDetailsList(list []*domain.AppointmentDetails) []AppointmentResponse {
	resp := make([]AppointmentResponse, 0, len(list))
	for _, d := range list {
		if item := FromDomainDetails(d); item != nil {
			resp = append(resp, *item)
		}
	}
	return resp
}
