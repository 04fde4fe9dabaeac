package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultGrid() WorkingDay {
	return WorkingDay{StartHour: 9, EndHour: 18, StepMinutes: 30, Location: time.UTC}
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 10, hour, minute, 0, 0, time.UTC)
}

func TestGenerateSlots_ScenarioOneBooking(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	busy := []Interval{{Start: at(10, 0), End: at(10, 30)}}

	slots := GenerateSlots(defaultGrid(), date, 30*time.Minute, busy, now)

	require.Len(t, slots, 17)
	assert.Equal(t, at(9, 0), slots[0])
	assert.Equal(t, at(9, 30), slots[1])
	assert.Equal(t, at(10, 30), slots[2])
	assert.Equal(t, at(17, 30), slots[16])
	assert.NotContains(t, slots, at(10, 0))
}

func TestGenerateSlots_LastSlotEndsAtClosing(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	slots := GenerateSlots(defaultGrid(), date, 90*time.Minute, nil, now)

	require.NotEmpty(t, slots)
	assert.Equal(t, at(16, 30), slots[len(slots)-1])
}

func TestGenerateSlots_TodayOnlyStrictlyFuture(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := at(11, 0)

	slots := GenerateSlots(defaultGrid(), date, 30*time.Minute, nil, now)

	require.NotEmpty(t, slots)
	assert.Equal(t, at(11, 30), slots[0])
}

func TestGenerateSlots_ServiceLongerThanDay(t *testing.T) {
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	slots := GenerateSlots(defaultGrid(), date, 10*time.Hour, nil, now)

	assert.Empty(t, slots)
	assert.NotNil(t, slots)
}

func TestGenerateSlots_UsesBusinessTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	grid := WorkingDay{StartHour: 9, EndHour: 10, StepMinutes: 30, Location: loc}
	date := time.Date(2025, 6, 10, 0, 0, 0, 0, loc)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	slots := GenerateSlots(grid, date, 30*time.Minute, nil, now)

	require.Len(t, slots, 2)
	assert.True(t, slots[0].Equal(time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC)))
}

func TestInterval_Overlaps(t *testing.T) {
	booked := Interval{Start: at(10, 0), End: at(10, 30)}

	assert.False(t, Interval{Start: at(9, 30), End: at(10, 0)}.Overlaps(booked), "touching before")
	assert.False(t, Interval{Start: at(10, 30), End: at(11, 0)}.Overlaps(booked), "touching after")
	assert.True(t, Interval{Start: at(9, 45), End: at(10, 15)}.Overlaps(booked), "partial")
	assert.True(t, Interval{Start: at(9, 0), End: at(11, 0)}.Overlaps(booked), "containing")
	assert.True(t, Interval{Start: at(10, 10), End: at(10, 20)}.Overlaps(booked), "contained")
}

func TestWorkingDay_IsPastDate(t *testing.T) {
	grid := defaultGrid()
	now := at(15, 0)

	assert.True(t, grid.IsPastDate(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, grid.IsPastDate(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, grid.IsPastDate(time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), now))
}
