package update_appointment

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

// UseCase use case для изменения записи с учётом роли
type UseCase struct {
	appointmentRepo AppointmentRepository
	directory       Directory
	checker         OverlapChecker
	outbox          OutboxWriter
	txManager       TransactionManager
	metrics         Metrics
	policy          domain.CalendarPolicy
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	directory Directory,
	checker OverlapChecker,
	outboxWriter OutboxWriter,
	txManager TransactionManager,
	metrics Metrics,
	policy domain.CalendarPolicy,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		directory:       directory,
		checker:         checker,
		outbox:          outboxWriter,
		txManager:       txManager,
		metrics:         metrics,
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

// Execute выполняет use case изменения записи
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("UpdateAppointment: id=%d, user=%d, role=%s", req.AppointmentID, req.Requester.UserID, req.Requester.Role)

	if req.AppointmentID <= 0 {
		return nil, fmt.Errorf("%w: appointment id must be positive", ErrInvalidInput)
	}

	// 1. Авторизация по роли и построение варианта изменения (до открытия транзакции)
	patch, err := buildPatch(req)
	if err != nil {
		uc.logger.Warn("UpdateAppointment: patch rejected for user=%d role=%s: %v", req.Requester.UserID, req.Requester.Role, err)
		return nil, err
	}

	var changed domain.AppointmentUpdate

	// 2. Чтение, проверки и запись в одной транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 2.1. Текущее состояние записи (с блокировкой строки)
		current, err := uc.appointmentRepo.GetByIDForUpdate(txCtx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				uc.logger.Warn("UpdateAppointment: appointment id=%d not found", req.AppointmentID)
				return ErrAppointmentNotFound
			}
			uc.logger.Error("UpdateAppointment: failed to get appointment id=%d: %v", req.AppointmentID, err)
			return fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
		}

		// 2.2. Применяем вариант изменения своей роли
		var upd domain.AppointmentUpdate
		switch p := patch.(type) {
		case domain.AdminPatch:
			upd, err = uc.applyAdmin(txCtx, current, p)
		case domain.SpecialistStatusPatch:
			upd, err = uc.applySpecialist(txCtx, current, p, req.Requester)
		case domain.ClientCancel:
			upd, err = uc.applyClientCancel(current, req.Requester)
		default:
			err = ErrAccessDenied
		}
		if err != nil {
			return err
		}

		// 2.3. Сохраняем
		if err := uc.appointmentRepo.Update(txCtx, current.ID, upd); err != nil {
			if appointmentRepo.IsOverlap(err) {
				uc.logger.Warn("UpdateAppointment: update rejected by overlap constraint: %v", err)
				return ErrSlotNotAvailable
			}
			if appointmentRepo.IsSerializationFailure(err) {
				uc.logger.Warn("UpdateAppointment: update hit serialization failure: %v", err)
				return ErrConcurrentUpdate
			}
			uc.logger.Error("UpdateAppointment: failed to update appointment id=%d: %v", current.ID, err)
			return fmt.Errorf("%w: failed to update appointment: %v", ErrInternal, err)
		}

		// 2.4. Событие для outbox
		if err := uc.writeEvent(txCtx, applyUpdate(*current, upd), req.Requester); err != nil {
			uc.logger.Error("UpdateAppointment: failed to write outbox event: %v", err)
			return fmt.Errorf("%w: failed to write outbox event: %v", ErrInternal, err)
		}

		changed = upd
		return nil
	})

	if err != nil {
		switch {
		case appointmentRepo.IsOverlap(err):
			uc.logger.Warn("UpdateAppointment: overlap on commit: %v", err)
			err = ErrSlotNotAvailable
		case appointmentRepo.IsSerializationFailure(err):
			uc.logger.Warn("UpdateAppointment: serialization failure: %v", err)
			err = ErrConcurrentUpdate
		}
		if errors.Is(err, ErrSlotNotAvailable) || errors.Is(err, ErrConcurrentUpdate) {
			uc.metrics.IncAppointmentConflict("update")
			return nil, err
		}
		if isKnown(err) {
			return nil, err
		}
		uc.logger.Error("UpdateAppointment: transaction failed: %v", err)
		return nil, fmt.Errorf("%w: transaction failed: %v", ErrInternal, err)
	}

	uc.metrics.IncAppointmentUpdated(string(req.Requester.Role))
	uc.logger.Info("UpdateAppointment: successfully updated appointment id=%d", req.AppointmentID)

	return &Response{ID: req.AppointmentID, Changed: changed}, nil
}

// applyAdmin администратор меняет любые поля; специалист и услуга перепроверяются
// по каталогу, пересечения проверяются при любом изменении расписания
func (uc *UseCase) applyAdmin(ctx context.Context, current *domain.Appointment, p domain.AdminPatch) (domain.AppointmentUpdate, error) {
	upd := domain.AppointmentUpdate{
		ClientID:    p.ClientID,
		StartTime:   p.StartTime,
		ClientNotes: p.ClientNotes,
		AdminNotes:  p.AdminNotes,
	}

	serviceID := current.ServiceID
	duration := current.DurationMinutes

	// Новая услуга: длительность копируется заново
	if p.ServiceID != nil {
		service, err := uc.directory.GetService(ctx, *p.ServiceID)
		if err != nil && !errors.Is(err, directoryRepo.ErrServiceNotFound) {
			uc.logger.Error("UpdateAppointment: failed to get service id=%d: %v", *p.ServiceID, err)
			return upd, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
		}
		if err != nil || !service.IsActive {
			uc.logger.Warn("UpdateAppointment: service id=%d not found or inactive", *p.ServiceID)
			return upd, ErrServiceNotAvailable
		}
		serviceID = service.ID
		duration = service.DurationMinutes
		upd.ServiceID = &serviceID
		if duration != current.DurationMinutes {
			upd.DurationMinutes = &duration
		}
	}

	specialistID := current.SpecialistID
	switch {
	case p.SpecialistID != nil:
		specialistID = p.SpecialistID
		upd.SpecialistID = p.SpecialistID
	case p.ClearSpecialist:
		specialistID = nil
		upd.ClearSpecialist = true
	}

	// Специалист должен оказывать итоговую услугу
	if specialistID != nil && (p.SpecialistID != nil || p.ServiceID != nil) {
		provides, err := uc.directory.SpecialistProvides(ctx, *specialistID, serviceID)
		if err != nil {
			uc.logger.Error("UpdateAppointment: failed to check specialist id=%d: %v", *specialistID, err)
			return upd, fmt.Errorf("%w: failed to check specialist: %v", ErrInternal, err)
		}
		if !provides {
			uc.logger.Warn("UpdateAppointment: specialist id=%d does not provide service id=%d", *specialistID, serviceID)
			return upd, ErrSpecialistNotProvidesService
		}
	}

	status := current.Status
	if p.Status != nil {
		if !domain.CanTransition(current.Status, *p.Status) {
			uc.logger.Warn("UpdateAppointment: transition %s -> %s is not allowed", current.Status, *p.Status)
			return upd, ErrInvalidTransition
		}
		status = *p.Status
		upd.Status = p.Status
	}

	start := current.StartTime
	if p.StartTime != nil {
		start = *p.StartTime
	}

	scheduleChanged := upd.SpecialistID != nil || upd.StartTime != nil || upd.DurationMinutes != nil
	becameOccupying := !uc.policy.OccupiesForOverlap(current.Status) && uc.policy.OccupiesForOverlap(status)

	if specialistID != nil && uc.policy.OccupiesForOverlap(status) && (scheduleChanged || becameOccupying) {
		end := start.Add(time.Duration(duration) * time.Minute)
		if err := uc.ensureFree(ctx, *specialistID, start, end, current.ID); err != nil {
			return upd, err
		}
	}

	return upd, nil
}

// applySpecialist специалист отмечает итог приёма или пишет заметку к своей записи
func (uc *UseCase) applySpecialist(ctx context.Context, current *domain.Appointment, p domain.SpecialistStatusPatch, requester domain.Requester) (domain.AppointmentUpdate, error) {
	specialistID, err := uc.directory.SpecialistIDByUserID(ctx, requester.UserID)
	if err != nil {
		if errors.Is(err, directoryRepo.ErrSpecialistNotFound) {
			uc.logger.Warn("UpdateAppointment: user=%d has no specialist profile", requester.UserID)
			return domain.AppointmentUpdate{}, ErrAccessDenied
		}
		uc.logger.Error("UpdateAppointment: failed to resolve specialist for user=%d: %v", requester.UserID, err)
		return domain.AppointmentUpdate{}, fmt.Errorf("%w: failed to resolve specialist: %v", ErrInternal, err)
	}

	if !current.IsAssignedTo(specialistID) {
		uc.logger.Warn("UpdateAppointment: specialist id=%d is not assigned to appointment id=%d", specialistID, current.ID)
		return domain.AppointmentUpdate{}, ErrAccessDenied
	}

	if p.Status != nil && !domain.CanTransition(current.Status, *p.Status) {
		uc.logger.Warn("UpdateAppointment: transition %s -> %s is not allowed", current.Status, *p.Status)
		return domain.AppointmentUpdate{}, ErrInvalidTransition
	}

	return domain.AppointmentUpdate{Status: p.Status, AdminNotes: p.AdminNotes}, nil
}

// applyClientCancel клиент отменяет свою запись из pending или confirmed
func (uc *UseCase) applyClientCancel(current *domain.Appointment, requester domain.Requester) (domain.AppointmentUpdate, error) {
	if current.ClientID != requester.UserID {
		uc.logger.Warn("UpdateAppointment: user=%d is not the owner of appointment id=%d", requester.UserID, current.ID)
		return domain.AppointmentUpdate{}, ErrAccessDenied
	}

	if current.Status != domain.StatusPending && current.Status != domain.StatusConfirmed {
		uc.logger.Warn("UpdateAppointment: appointment id=%d in status %s cannot be cancelled by client", current.ID, current.Status)
		return domain.AppointmentUpdate{}, ErrAccessDenied
	}

	status := domain.StatusCancelledByClient
	return domain.AppointmentUpdate{Status: &status}, nil
}

func (uc *UseCase) ensureFree(ctx context.Context, specialistID int64, start, end time.Time, appointmentID int64) error {
	if err := uc.directory.LockSpecialist(ctx, specialistID); err != nil {
		if errors.Is(err, directoryRepo.ErrSpecialistNotFound) {
			return ErrSpecialistNotProvidesService
		}
		uc.logger.Error("UpdateAppointment: failed to lock specialist id=%d: %v", specialistID, err)
		return fmt.Errorf("%w: failed to lock specialist: %v", ErrInternal, err)
	}

	conflict, err := uc.checker.HasConflict(ctx, specialistID, start, end, &appointmentID)
	if err != nil {
		if appointmentRepo.IsSerializationFailure(err) {
			uc.logger.Warn("UpdateAppointment: overlap check hit serialization failure: %v", err)
			return ErrConcurrentUpdate
		}
		uc.logger.Error("UpdateAppointment: overlap check failed for specialist id=%d: %v", specialistID, err)
		return fmt.Errorf("%w: overlap check failed: %v", ErrInternal, err)
	}
	if conflict {
		uc.logger.Warn("UpdateAppointment: specialist id=%d is busy at %s", specialistID, start.Format(time.RFC3339))
		return ErrSlotNotAvailable
	}

	return nil
}

func (uc *UseCase) writeEvent(ctx context.Context, a domain.Appointment, actor domain.Requester) error {
	evt := domain.NewAppointmentEvent(&a, actor, uc.timeProvider.Now())
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return uc.outbox.Insert(ctx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   evt.AggregateID(),
		EventType:     domain.EventAppointmentUpdated,
		Payload:       payload,
	})
}

// applyUpdate состояние записи после изменения
func applyUpdate(a domain.Appointment, upd domain.AppointmentUpdate) domain.Appointment {
	if upd.ClientID != nil {
		a.ClientID = *upd.ClientID
	}
	if upd.SpecialistID != nil {
		a.SpecialistID = upd.SpecialistID
	} else if upd.ClearSpecialist {
		a.SpecialistID = nil
	}
	if upd.ServiceID != nil {
		a.ServiceID = *upd.ServiceID
	}
	if upd.StartTime != nil {
		a.StartTime = *upd.StartTime
	}
	if upd.DurationMinutes != nil {
		a.DurationMinutes = *upd.DurationMinutes
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.ClientNotes != nil {
		a.ClientNotes = upd.ClientNotes
	}
	if upd.AdminNotes != nil {
		a.AdminNotes = upd.AdminNotes
	}
	return a
}

func isKnown(err error) bool {
	for _, known := range []error{
		ErrInvalidInput,
		ErrEmptyPatch,
		ErrInvalidStatus,
		ErrInvalidTransition,
		ErrAppointmentNotFound,
		ErrServiceNotAvailable,
		ErrSpecialistNotProvidesService,
		ErrAccessDenied,
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
