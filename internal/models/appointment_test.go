package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		from  AppointmentStatus
		event LifecycleEvent
		to    AppointmentStatus
		ok    bool
	}{
		{StatusRequested, EventConfirmed, StatusConfirmed, true},
		{StatusRequested, EventCancelled, StatusCancelled, true},
		{StatusRequested, EventRejected, StatusCancelled, true},
		{StatusRequested, EventCompleted, "", false},
		{StatusConfirmed, EventCancelled, StatusCancelled, true},
		{StatusConfirmed, EventCompleted, StatusCompleted, true},
		{StatusConfirmed, EventConfirmed, "", false},
		{StatusCompleted, EventCancelled, "", false},
		{StatusCancelled, EventConfirmed, "", false},
	}
	for _, tc := range cases {
		to, ok := NextStatus(tc.from, tc.event)
		assert.Equal(t, tc.ok, ok, "%s + %s", tc.from, tc.event)
		if tc.ok {
			assert.Equal(t, tc.to, to)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusRequested.Blocking())
	assert.True(t, StatusConfirmed.Blocking())
	assert.False(t, StatusCancelled.Blocking())
	assert.False(t, StatusCompleted.Blocking())

	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusRequested.Terminal())

	assert.False(t, AppointmentStatus("archived").Valid())
}

func TestOverlaps(t *testing.T) {
	// Half-open intervals: shared endpoints do not overlap.
	assert.True(t, Overlaps(540, 570, 555, 585))
	assert.True(t, Overlaps(540, 600, 550, 560))
	assert.False(t, Overlaps(540, 570, 570, 600))
	assert.False(t, Overlaps(570, 600, 540, 570))
	assert.False(t, Overlaps(540, 570, 600, 630))
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)
	assert.Equal(t, "09:30", FormatClock(570))

	_, err = ParseClock("9:30am")
	assert.Error(t, err)
	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestWeekdayOf(t *testing.T) {
	// 2026-09-07 is a Monday.
	date, err := ParseDate("2026-09-07")
	require.NoError(t, err)
	assert.Equal(t, Mon, WeekdayOf(date))
	assert.Equal(t, Sun, WeekdayOf(date.AddDate(0, 0, 6)))
}

func TestEndsAt(t *testing.T) {
	appt := Appointment{Date: "2026-09-07", EndTime: "09:30"}
	end, err := appt.EndsAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC), end)

	appt.EndTime = "bad"
	_, err = appt.EndsAt()
	assert.Error(t, err)
}
