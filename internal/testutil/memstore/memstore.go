// Package memstore in-memory реализация хранилища записей, каталога и outbox
// для тестов use case и сервисов. Транзакции выполняются строго по очереди
// и откатывают состояние при ошибке.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	directoryRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/directory"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/outbox"
)

type txKey struct{}

// Store данные всех таблиц
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       int64
	appointments map[int64]domain.Appointment
	services     map[int64]domain.Service
	providers    map[int64][]int64 // serviceID -> specialistIDs
	specialists  map[int64]int64   // userID -> specialistID
	events       []outbox.Event

	// CreateErr если задан, Create возвращает эту ошибку
	CreateErr error
	// UpdateErr если задан, Update возвращает эту ошибку
	UpdateErr error
	// OccupyingErr если задан, ListOccupying возвращает эту ошибку
	OccupyingErr error
	// CommitErr если задан, транзакция откатывается с этой ошибкой после успешного fn
	CommitErr error
	// BeforeCreate вызывается внутри Create до вставки
	BeforeCreate func()
}

// New пустое хранилище
func New() *Store {
	return &Store{
		appointments: make(map[int64]domain.Appointment),
		services:     make(map[int64]domain.Service),
		providers:    make(map[int64][]int64),
		specialists:  make(map[int64]int64),
	}
}

// AddService добавляет услугу в каталог
func (s *Store) AddService(svc domain.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

// AddSpecialist регистрирует специалиста с профилем пользователя и его услугами
func (s *Store) AddSpecialist(specialistID, userID int64, serviceIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specialists[userID] = specialistID
	for _, id := range serviceIDs {
		s.providers[id] = append(s.providers[id], specialistID)
		sort.Slice(s.providers[id], func(i, j int) bool { return s.providers[id][i] < s.providers[id][j] })
	}
}

// Seed вставляет запись как есть (ID назначается, если не задан)
func (s *Store) Seed(a domain.Appointment) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextID++
		a.ID = s.nextID
	} else if a.ID > s.nextID {
		s.nextID = a.ID
	}
	s.appointments[a.ID] = a
	return a.ID
}

// All все записи по возрастанию ID
func (s *Store) All() []domain.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Events записанные события outbox
func (s *Store) Events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.events...)
}

// ---- TransactionManager ----

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, fn)
}

func (s *Store) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, fn)
}

func (s *Store) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, fn)
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	if s.CommitErr != nil {
		s.restore(snapshot)
		return s.CommitErr
	}
	return nil
}

type state struct {
	nextID       int64
	appointments map[int64]domain.Appointment
	events       []outbox.Event
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[int64]domain.Appointment, len(s.appointments))
	for id, a := range s.appointments {
		copied[id] = a
	}
	return state{nextID: s.nextID, appointments: copied, events: append([]outbox.Event(nil), s.events...)}
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = st.nextID
	s.appointments = st.appointments
	s.events = st.events
}

// ---- Appointment store ----

func (s *Store) Create(_ context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	if s.BeforeCreate != nil {
		s.BeforeCreate()
	}
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = s.nextID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	s.appointments[a.ID] = *a
	created := *a
	return &created, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *Store) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return s.GetByID(ctx, id)
}

func (s *Store) GetDetails(_ context.Context, id int64) (*domain.AppointmentDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	return s.details(a), nil
}

func (s *Store) ListByClient(ctx context.Context, clientID int64) ([]*domain.AppointmentDetails, error) {
	return s.ListFiltered(ctx, domain.AppointmentFilter{ClientID: &clientID})
}

func (s *Store) ListFiltered(_ context.Context, f domain.AppointmentFilter) ([]*domain.AppointmentDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.AppointmentDetails, 0)
	for _, a := range s.appointments {
		if f.SpecialistID != nil && !a.IsAssignedTo(*f.SpecialistID) {
			continue
		}
		if f.ClientID != nil && a.ClientID != *f.ClientID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if f.DateFrom != nil && a.StartTime.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && !a.StartTime.Before(f.DateTo.AddDate(0, 0, 1)) {
			continue
		}
		result = append(result, s.details(a))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].StartTime.After(result[j].StartTime)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *Store) ListOccupying(_ context.Context, specialistID int64, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error) {
	if s.OccupyingErr != nil {
		return nil, s.OccupyingErr
	}
	return s.filter(func(a domain.Appointment) bool {
		return a.IsAssignedTo(specialistID) && hasStatus(statuses, a.Status)
	}), nil
}

func (s *Store) ListBySpecialistAndDay(_ context.Context, specialistID int64, dayStart, dayEnd time.Time, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error) {
	return s.filter(func(a domain.Appointment) bool {
		return a.IsAssignedTo(specialistID) &&
			hasStatus(statuses, a.Status) &&
			a.StartTime.Before(dayEnd) &&
			a.EndTime().After(dayStart)
	}), nil
}

func (s *Store) Update(_ context.Context, id int64, upd domain.AppointmentUpdate) error {
	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}
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
	a.UpdatedAt = time.Now()
	s.appointments[id] = a
	return nil
}

func (s *Store) filter(keep func(a domain.Appointment) bool) []*domain.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Appointment, 0)
	for _, a := range s.appointments {
		if keep(a) {
			copied := a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result
}

func (s *Store) details(a domain.Appointment) *domain.AppointmentDetails {
	svc := s.services[a.ServiceID]
	return &domain.AppointmentDetails{Appointment: a, ServiceName: svc.Name, ServicePrice: svc.Price}
}

func hasStatus(statuses []domain.AppointmentStatus, status domain.AppointmentStatus) bool {
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

// ---- Directory ----

func (s *Store) GetService(_ context.Context, id int64) (*domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, directoryRepo.ErrServiceNotFound
	}
	return &svc, nil
}

func (s *Store) SpecialistProvides(_ context.Context, specialistID, serviceID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.providers[serviceID] {
		if id == specialistID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AnySpecialistProvides(_ context.Context, serviceID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.providers[serviceID]) > 0, nil
}

func (s *Store) ListSpecialistsFor(_ context.Context, serviceID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64{}, s.providers[serviceID]...), nil
}

func (s *Store) SpecialistIDByUserID(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.specialists[userID]
	if !ok {
		return 0, directoryRepo.ErrSpecialistNotFound
	}
	return id, nil
}

func (s *Store) LockSpecialist(_ context.Context, specialistID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.specialists {
		if id == specialistID {
			return nil
		}
	}
	return directoryRepo.ErrSpecialistNotFound
}

// ---- Outbox ----

func (s *Store) Insert(_ context.Context, evt outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}
