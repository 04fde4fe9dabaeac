package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// OccupyingLister источник записей, занимающих календарь специалиста.
// Внутри транзакции строки должны блокироваться (FOR UPDATE).
type OccupyingLister interface {
	ListOccupying(ctx context.Context, specialistID int64, statuses []domain.AppointmentStatus) ([]*domain.Appointment, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
}

// Checker проверяет пересечение кандидата с существующими записями специалиста
type Checker struct {
	store  OccupyingLister
	policy domain.CalendarPolicy
	logger Logger
}

// NewChecker создает проверку пересечений
func NewChecker(store OccupyingLister, policy domain.CalendarPolicy, logger Logger) *Checker {
	return &Checker{store: store, policy: policy, logger: logger}
}

// HasConflict reports whether [start, end) intersects an occupying appointment of the
// specialist. excludeID skips the appointment being rescheduled. Must be called with a
// transactional context so that the result still holds at insert time.
func (c *Checker) HasConflict(ctx context.Context, specialistID int64, start, end time.Time, excludeID *int64) (bool, error) {
	existing, err := c.store.ListOccupying(ctx, specialistID, c.policy.OverlapStatuses())
	if err != nil {
		return false, fmt.Errorf("list occupying appointments: %w", err)
	}

	candidate := Interval{Start: start, End: end}
	for _, a := range existing {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.StartTime.IsZero() || a.DurationMinutes <= 0 {
			c.logger.Warn("OverlapChecker: skipping appointment id=%d with broken interval (start=%v, duration=%d)",
				a.ID, a.StartTime, a.DurationMinutes)
			continue
		}
		if candidate.Overlaps(Interval{Start: a.StartTime, End: a.EndTime()}) {
			return true, nil
		}
	}

	return false, nil
}

// BusyIntervals переводит записи в занятые интервалы по availability-политике
func BusyIntervals(appointments []*domain.Appointment, policy domain.CalendarPolicy) []Interval {
	busy := make([]Interval, 0, len(appointments))
	for _, a := range appointments {
		if !policy.OccupiesForAvailability(a.Status) {
			continue
		}
		if a.StartTime.IsZero() || a.DurationMinutes <= 0 {
			continue
		}
		busy = append(busy, Interval{Start: a.StartTime, End: a.EndTime()})
	}
	return busy
}
