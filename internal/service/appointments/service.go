package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	directoryRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/directory"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

// Service сервис чтения записей с учётом роли
type Service struct {
	appointmentRepo AppointmentRepository
	directory       Directory
	location        *time.Location
	logger          Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointmentRepo AppointmentRepository,
	directory Directory,
	location *time.Location,
	logger Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		appointmentRepo: appointmentRepo,
		directory:       directory,
		location:        location,
		logger:          logger,
	}
}

// ListForClient записи клиента, сначала новые
func (s *Service) ListForClient(ctx context.Context, clientID int64) ([]models.AppointmentResponse, error) {
	s.logger.Info("ListForClient: fetching appointments for client=%d", clientID)

	list, err := s.appointmentRepo.ListByClient(ctx, clientID)
	if err != nil {
		s.logger.Error("ListForClient: repository error for client=%d: %v", clientID, err)
		return nil, fmt.Errorf("%w: ListForClient - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("ListForClient: successfully fetched %d appointments for client=%d", len(list), clientID)
	return models.FromDomainDetailsList(list), nil
}

// ListFiltered список записей по фильтрам
// Администратор видит все записи и фильтрует свободно.
// Специалист видит только свои: фильтр specialistId всегда заменяется его собственным.
// Остальным ролям доступ запрещён.
func (s *Service) ListFiltered(ctx context.Context, req *models.ListFilteredRequest) ([]models.AppointmentResponse, error) {
	s.logger.Info("ListFiltered: user=%d role=%s", req.Requester.UserID, req.Requester.Role)

	filter, err := req.ToDomainFilter(s.location)
	if err != nil {
		s.logger.Warn("ListFiltered: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	switch req.Requester.Role {
	case domain.RoleAdmin:
	case domain.RoleSpecialist:
		specialistID, err := s.directory.SpecialistIDByUserID(ctx, req.Requester.UserID)
		if err != nil {
			if errors.Is(err, directoryRepo.ErrSpecialistNotFound) {
				s.logger.Warn("ListFiltered: user=%d has no specialist profile", req.Requester.UserID)
				return nil, ErrAccessDenied
			}
			s.logger.Error("ListFiltered: failed to resolve specialist for user=%d: %v", req.Requester.UserID, err)
			return nil, fmt.Errorf("%w: ListFiltered - directory error: %v", ErrInternal, err)
		}
		filter.SpecialistID = &specialistID
	default:
		s.logger.Warn("ListFiltered: access denied for user=%d role=%s", req.Requester.UserID, req.Requester.Role)
		return nil, ErrAccessDenied
	}

	list, err := s.appointmentRepo.ListFiltered(ctx, filter)
	if err != nil {
		s.logger.Error("ListFiltered: repository error: %v", err)
		return nil, fmt.Errorf("%w: ListFiltered - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("ListFiltered: successfully fetched %d appointments", len(list))
	return models.FromDomainDetailsList(list), nil
}

// GetByID получает запись по ID
// Доступно администратору, владельцу записи и назначенному специалисту
func (s *Service) GetByID(ctx context.Context, id int64, requester domain.Requester) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d for user=%d", id, requester.UserID)

	details, err := s.appointmentRepo.GetDetails(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("GetByID: appointment id=%d not found", id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("GetByID: repository error for appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if err := s.checkAccess(ctx, &details.Appointment, requester); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d to appointment id=%d", requester.UserID, id)
		return nil, err
	}

	s.logger.Info("GetByID: successfully fetched appointment id=%d", id)
	return models.FromDomainDetails(details), nil
}

// checkAccess проверяет, что пользователь администратор, владелец или назначенный специалист
func (s *Service) checkAccess(ctx context.Context, a *domain.Appointment, requester domain.Requester) error {
	switch requester.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleClient:
		if a.ClientID == requester.UserID {
			return nil
		}
	case domain.RoleSpecialist:
		if a.SpecialistID == nil {
			return ErrAccessDenied
		}
		specialistID, err := s.directory.SpecialistIDByUserID(ctx, requester.UserID)
		if err != nil {
			if errors.Is(err, directoryRepo.ErrSpecialistNotFound) {
				return ErrAccessDenied
			}
			s.logger.Error("checkAccess: failed to resolve specialist for user=%d: %v", requester.UserID, err)
			return fmt.Errorf("%w: checkAccess - directory error: %v", ErrInternal, err)
		}
		if a.IsAssignedTo(specialistID) {
			return nil
		}
	}

	return ErrAccessDenied
}
