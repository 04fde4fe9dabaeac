package get_availability

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	directoryRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/directory"
	"github.com/m04kA/SMC-AppointmentService/internal/scheduling"
)

// UseCase use case для расчёта свободных слотов
type UseCase struct {
	appointmentRepo AppointmentRepository
	directory       Directory
	txManager       TransactionManager
	metrics         Metrics
	grid            scheduling.WorkingDay
	policy          domain.CalendarPolicy
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	directory Directory,
	txManager TransactionManager,
	metrics Metrics,
	grid scheduling.WorkingDay,
	policy domain.CalendarPolicy,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		directory:       directory,
		txManager:       txManager,
		metrics:         metrics,
		grid:            grid,
		policy:          policy,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// WithTimeProvider подменяет источник времени (для тестов)
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute выполняет use case получения свободных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailability: service=%d, specialist=%s, date=%s",
		req.ServiceID, specialistLabel(req.SpecialistID), req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if req.ServiceID <= 0 {
		return nil, fmt.Errorf("%w: service_id must be positive", ErrInvalidInput)
	}
	if req.SpecialistID != nil && *req.SpecialistID <= 0 {
		return nil, fmt.Errorf("%w: specialist_id must be positive", ErrInvalidInput)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	// 2. Дата в прошлом отклоняется целиком
	now := uc.timeProvider.Now()
	if uc.grid.IsPastDate(req.Date, now) {
		uc.logger.Warn("GetAvailability: date %s is in the past", req.Date.Format(domain.DateFormat))
		return nil, ErrInvalidDate
	}

	var resp *Response

	err := uc.txManager.DoReadOnly(ctx, func(txCtx context.Context) error {
		// 3. Услуга должна существовать и быть активной
		service, err := uc.directory.GetService(txCtx, req.ServiceID)
		if err != nil {
			if errors.Is(err, directoryRepo.ErrServiceNotFound) {
				uc.logger.Warn("GetAvailability: service id=%d not found", req.ServiceID)
				return ErrServiceNotFound
			}
			uc.logger.Error("GetAvailability: failed to get service id=%d: %v", req.ServiceID, err)
			return fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
		}
		if !service.IsActive {
			uc.logger.Warn("GetAvailability: service id=%d is inactive", req.ServiceID)
			return ErrServiceNotFound
		}

		// 4. Список специалистов
		specialistIDs, err := uc.specialists(txCtx, req)
		if err != nil {
			return err
		}

		// 5. Слоты по каждому специалисту
		duration := time.Duration(service.DurationMinutes) * time.Minute
		dayStart, dayEnd := uc.grid.DayBounds(req.Date)
		bySpecialist := make(map[int64][]time.Time, len(specialistIDs))

		for _, specialistID := range specialistIDs {
			appointments, err := uc.appointmentRepo.ListBySpecialistAndDay(txCtx, specialistID, dayStart, dayEnd, uc.policy.AvailabilityStatuses())
			if err != nil {
				uc.logger.Error("GetAvailability: failed to get appointments for specialist id=%d: %v", specialistID, err)
				return fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
			}

			busy := scheduling.BusyIntervals(appointments, uc.policy)
			slots := scheduling.GenerateSlots(uc.grid, req.Date, duration, busy, now)
			if len(slots) > 0 {
				bySpecialist[specialistID] = slots
			}
		}

		// 6. Формируем ответ
		if req.SpecialistID != nil {
			slots := bySpecialist[*req.SpecialistID]
			if slots == nil {
				slots = []time.Time{}
			}
			resp = &Response{SingleSpecialist: true, Slots: slots}
		} else {
			resp = &Response{BySpecialist: bySpecialist}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := len(resp.Slots)
	for _, slots := range resp.BySpecialist {
		total += len(slots)
	}
	uc.metrics.ObserveAvailabilitySlots(total)
	uc.logger.Info("GetAvailability: found %d free slots for service=%d on %s", total, req.ServiceID, req.Date.Format(domain.DateFormat))

	return resp, nil
}

func (uc *UseCase) specialists(ctx context.Context, req *Request) ([]int64, error) {
	if req.SpecialistID != nil {
		provides, err := uc.directory.SpecialistProvides(ctx, *req.SpecialistID, req.ServiceID)
		if err != nil {
			uc.logger.Error("GetAvailability: failed to check specialist id=%d: %v", *req.SpecialistID, err)
			return nil, fmt.Errorf("%w: failed to check specialist: %v", ErrInternal, err)
		}
		if !provides {
			uc.logger.Warn("GetAvailability: specialist id=%d does not provide service id=%d", *req.SpecialistID, req.ServiceID)
			return nil, ErrSpecialistNotFound
		}
		return []int64{*req.SpecialistID}, nil
	}

	ids, err := uc.directory.ListSpecialistsFor(ctx, req.ServiceID)
	if err != nil {
		uc.logger.Error("GetAvailability: failed to list specialists for service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to list specialists: %v", ErrInternal, err)
	}
	return ids, nil
}

func specialistLabel(id *int64) string {
	if id == nil {
		return "any"
	}
	return strconv.FormatInt(*id, 10)
}
