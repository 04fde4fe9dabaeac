package create_appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	directoryRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/directory"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/outbox"
)

// UseCase use case для создания записи на приём
type UseCase struct {
	appointmentRepo  AppointmentRepository
	directory        Directory
	checker          OverlapChecker
	outbox           OutboxWriter
	txManager        TransactionManager
	metrics          Metrics
	timeProvider     TimeProvider
	logger           Logger
	assignUnassigned bool
}

// NewUseCase создает новый экземпляр use case.
// assignUnassigned: запись без специалиста сразу назначается первому свободному.
func NewUseCase(
	appointmentRepo AppointmentRepository,
	directory Directory,
	checker OverlapChecker,
	outboxWriter OutboxWriter,
	txManager TransactionManager,
	metrics Metrics,
	logger Logger,
	assignUnassigned bool,
) *UseCase {
	return &UseCase{
		appointmentRepo:  appointmentRepo,
		directory:        directory,
		checker:          checker,
		outbox:           outboxWriter,
		txManager:        txManager,
		metrics:          metrics,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
		assignUnassigned: assignUnassigned,
	}
}

// WithTimeProvider подменяет источник времени (для тестов)
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute выполняет use case создания записи.
// Проверка пересечений и вставка выполняются в одной сериализуемой транзакции.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateAppointment: client=%d, service=%d, specialist=%v, start=%s",
		req.ClientID, req.ServiceID, formatOptionalID(req.SpecialistID), req.StartTime.Format(time.RFC3339))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Время начала должно быть в будущем
	now := uc.timeProvider.Now()
	if err := validateStartTime(req.StartTime, now); err != nil {
		uc.logger.Warn("CreateAppointment: start %s is not after now %s", req.StartTime.Format(time.RFC3339), now.Format(time.RFC3339))
		return nil, err
	}

	var (
		result     *domain.Appointment
		assignment string
	)

	// 3. Все проверки и вставка в одной транзакции
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 3.1. Услуга должна существовать и быть активной
		service, err := uc.directory.GetService(txCtx, req.ServiceID)
		if err != nil {
			if errors.Is(err, directoryRepo.ErrServiceNotFound) {
				uc.logger.Warn("CreateAppointment: service id=%d not found", req.ServiceID)
				return ErrServiceNotFound
			}
			uc.logger.Error("CreateAppointment: failed to get service id=%d: %v", req.ServiceID, err)
			return fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
		}
		if !service.IsActive {
			uc.logger.Warn("CreateAppointment: service id=%d is inactive", req.ServiceID)
			return ErrServiceNotFound
		}

		start := req.StartTime
		end := start.Add(time.Duration(service.DurationMinutes) * time.Minute)

		// 3.2. Определяем специалиста
		specialistID, how, err := uc.resolveSpecialist(txCtx, req, start, end)
		if err != nil {
			return err
		}
		assignment = how

		// 3.3. Создаем запись в статусе pending, длительность копируется из услуги
		appointment := &domain.Appointment{
			ClientID:        req.ClientID,
			SpecialistID:    specialistID,
			ServiceID:       req.ServiceID,
			StartTime:       start,
			DurationMinutes: service.DurationMinutes,
			Status:          domain.StatusPending,
			ClientNotes:     req.ClientNotes,
		}

		created, err := uc.appointmentRepo.Create(txCtx, appointment)
		if err != nil {
			if appointmentRepo.IsOverlap(err) {
				uc.logger.Warn("CreateAppointment: insert rejected by overlap constraint: %v", err)
				return ErrSlotNotAvailable
			}
			if appointmentRepo.IsSerializationFailure(err) {
				uc.logger.Warn("CreateAppointment: insert hit serialization failure: %v", err)
				return ErrConcurrentUpdate
			}
			uc.logger.Error("CreateAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %v", ErrInternal, err)
		}

		// 3.4. Событие для outbox
		if err := uc.writeEvent(txCtx, created, req.ClientID, now); err != nil {
			uc.logger.Error("CreateAppointment: failed to write outbox event: %v", err)
			return fmt.Errorf("%w: failed to write outbox event: %v", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		// Ошибка сериализации при commit не означает, что время занято:
		// конфликт мог возникнуть на любых прочитанных строках
		switch {
		case appointmentRepo.IsOverlap(err):
			uc.logger.Warn("CreateAppointment: overlap on commit: %v", err)
			err = ErrSlotNotAvailable
		case appointmentRepo.IsSerializationFailure(err):
			uc.logger.Warn("CreateAppointment: serialization failure: %v", err)
			err = ErrConcurrentUpdate
		}
		if errors.Is(err, ErrSlotNotAvailable) || errors.Is(err, ErrConcurrentUpdate) {
			uc.metrics.IncAppointmentConflict("create")
			return nil, err
		}
		if isKnown(err) {
			return nil, err
		}
		uc.logger.Error("CreateAppointment: transaction failed: %v", err)
		return nil, fmt.Errorf("%w: transaction failed: %v", ErrInternal, err)
	}

	uc.metrics.IncAppointmentCreated(assignment)
	uc.logger.Info("CreateAppointment: successfully created appointment id=%d (specialist=%v, assignment=%s)",
		result.ID, formatOptionalID(result.SpecialistID), assignment)

	return &Response{
		ID:              result.ID,
		ClientID:        result.ClientID,
		SpecialistID:    result.SpecialistID,
		ServiceID:       result.ServiceID,
		StartTime:       result.StartTime,
		EndTime:         result.EndTime(),
		DurationMinutes: result.DurationMinutes,
		Status:          string(result.Status),
		ClientNotes:     result.ClientNotes,
		CreatedAt:       result.CreatedAt,
	}, nil
}

// resolveSpecialist проверяет выбранного специалиста или подбирает свободного.
// Строка специалиста блокируется до конца транзакции перед проверкой пересечений.
func (uc *UseCase) resolveSpecialist(ctx context.Context, req *Request, start, end time.Time) (*int64, string, error) {
	if req.SpecialistID != nil {
		specialistID := *req.SpecialistID

		provides, err := uc.directory.SpecialistProvides(ctx, specialistID, req.ServiceID)
		if err != nil {
			uc.logger.Error("CreateAppointment: failed to check specialist id=%d: %v", specialistID, err)
			return nil, "", fmt.Errorf("%w: failed to check specialist: %v", ErrInternal, err)
		}
		if !provides {
			uc.logger.Warn("CreateAppointment: specialist id=%d does not provide service id=%d", specialistID, req.ServiceID)
			return nil, "", ErrSpecialistNotProvidesService
		}

		free, err := uc.isFree(ctx, specialistID, start, end)
		if err != nil {
			return nil, "", err
		}
		if !free {
			uc.logger.Warn("CreateAppointment: specialist id=%d is busy at %s", specialistID, start.Format(time.RFC3339))
			return nil, "", ErrSlotNotAvailable
		}
		return &specialistID, assignmentRequested, nil
	}

	anyProvides, err := uc.directory.AnySpecialistProvides(ctx, req.ServiceID)
	if err != nil {
		uc.logger.Error("CreateAppointment: failed to check specialists for service id=%d: %v", req.ServiceID, err)
		return nil, "", fmt.Errorf("%w: failed to check specialists: %v", ErrInternal, err)
	}
	if !anyProvides {
		uc.logger.Warn("CreateAppointment: no specialist provides service id=%d", req.ServiceID)
		return nil, "", ErrNoSpecialistForService
	}

	if !uc.assignUnassigned {
		return nil, assignmentUnassigned, nil
	}

	candidates, err := uc.directory.ListSpecialistsFor(ctx, req.ServiceID)
	if err != nil {
		uc.logger.Error("CreateAppointment: failed to list specialists for service id=%d: %v", req.ServiceID, err)
		return nil, "", fmt.Errorf("%w: failed to list specialists: %v", ErrInternal, err)
	}

	// Кандидаты идут по возрастанию ID, поэтому блокировки берутся в одном порядке
	for _, candidate := range candidates {
		free, err := uc.isFree(ctx, candidate, start, end)
		if err != nil {
			return nil, "", err
		}
		if free {
			id := candidate
			uc.logger.Info("CreateAppointment: auto-assigned specialist id=%d", id)
			return &id, assignmentAuto, nil
		}
	}

	uc.logger.Warn("CreateAppointment: all %d specialists for service id=%d are busy at %s",
		len(candidates), req.ServiceID, start.Format(time.RFC3339))
	return nil, "", ErrSlotNotAvailable
}

func (uc *UseCase) isFree(ctx context.Context, specialistID int64, start, end time.Time) (bool, error) {
	if err := uc.directory.LockSpecialist(ctx, specialistID); err != nil {
		if errors.Is(err, directoryRepo.ErrSpecialistNotFound) {
			return false, ErrSpecialistNotProvidesService
		}
		uc.logger.Error("CreateAppointment: failed to lock specialist id=%d: %v", specialistID, err)
		return false, fmt.Errorf("%w: failed to lock specialist: %v", ErrInternal, err)
	}

	conflict, err := uc.checker.HasConflict(ctx, specialistID, start, end, nil)
	if err != nil {
		if appointmentRepo.IsSerializationFailure(err) {
			uc.logger.Warn("CreateAppointment: overlap check hit serialization failure: %v", err)
			return false, ErrConcurrentUpdate
		}
		uc.logger.Error("CreateAppointment: overlap check failed for specialist id=%d: %v", specialistID, err)
		return false, fmt.Errorf("%w: overlap check failed: %v", ErrInternal, err)
	}

	return !conflict, nil
}

func (uc *UseCase) writeEvent(ctx context.Context, a *domain.Appointment, clientID int64, now time.Time) error {
	evt := domain.NewAppointmentEvent(a, domain.Requester{UserID: clientID, Role: domain.RoleClient}, now)
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return uc.outbox.Insert(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   evt.AggregateID(),
		EventType:     domain.EventAppointmentCreated,
		Payload:       payload,
	})
}

func isKnown(err error) bool {
	for _, known := range []error{
		ErrInvalidInput,
		ErrInvalidDate,
		ErrServiceNotFound,
		ErrSpecialistNotProvidesService,
		ErrNoSpecialistForService,
		ErrSlotNotAvailable,
		ErrConcurrentUpdate,
		ErrInternal,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return "any"
	}
	return fmt.Sprintf("%d", *id)
}
