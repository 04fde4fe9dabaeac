package scheduling

import "time"

// WorkingDay сетка рабочего дня в часовом поясе бизнеса
type WorkingDay struct {
	StartHour   int
	EndHour     int
	StepMinutes int
	Location    *time.Location
}

// Window возвращает [открытие, закрытие) для календарной даты date
func (w WorkingDay) Window(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(w.location()).Date()
	open := time.Date(y, m, d, w.StartHour, 0, 0, 0, w.location())
	closeAt := time.Date(y, m, d, w.EndHour, 0, 0, 0, w.location())
	return open, closeAt
}

// DayBounds возвращает [00:00, 00:00 следующего дня) для даты date
func (w WorkingDay) DayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.In(w.location()).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, w.location())
	return start, start.AddDate(0, 0, 1)
}

// IsPastDate true, если календарная дата date раньше сегодняшней в часовом поясе бизнеса
func (w WorkingDay) IsPastDate(date, now time.Time) bool {
	dayStart, _ := w.DayBounds(date)
	todayStart, _ := w.DayBounds(now)
	return dayStart.Before(todayStart)
}

func (w WorkingDay) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// GenerateSlots returns the ordered start times on date where a visit of the given
// duration fits inside working hours, does not intersect any busy interval and
// starts strictly after now. A slot may end exactly at closing time.
func GenerateSlots(grid WorkingDay, date time.Time, duration time.Duration, busy []Interval, now time.Time) []time.Time {
	step := time.Duration(grid.StepMinutes) * time.Minute
	if duration <= 0 || step <= 0 {
		return []time.Time{}
	}

	open, closeAt := grid.Window(date)
	slots := make([]time.Time, 0)

	for start := open; !start.Add(duration).After(closeAt); start = start.Add(step) {
		if !start.After(now) {
			continue
		}
		if overlapsAny(Interval{Start: start, End: start.Add(duration)}, busy) {
			continue
		}
		slots = append(slots, start)
	}

	return slots
}
