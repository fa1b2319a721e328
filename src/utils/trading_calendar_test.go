package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func jakarta(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	return loc
}

func TestFallbackTradingHours(t *testing.T) {
	loc := jakarta(t)
	tc := &TradingCalendar{Fallback: true, Timezone: loc}

	wednesday := func(hour, min int) time.Time {
		return time.Date(2026, time.August, 19, hour, min, 0, 0, loc)
	}

	assert.False(t, tc.IsOpenOnMinute(wednesday(8, 59)))
	assert.True(t, tc.IsOpenOnMinute(wednesday(9, 0)))
	assert.True(t, tc.IsOpenOnMinute(wednesday(12, 30)))
	assert.True(t, tc.IsOpenOnMinute(wednesday(15, 59)))
	assert.False(t, tc.IsOpenOnMinute(wednesday(16, 0)))
}

func TestFallbackWeekendClosed(t *testing.T) {
	loc := jakarta(t)
	tc := &TradingCalendar{Fallback: true, Timezone: loc}

	saturday := time.Date(2026, time.August, 22, 10, 0, 0, 0, loc)
	sunday := time.Date(2026, time.August, 23, 10, 0, 0, 0, loc)
	monday := time.Date(2026, time.August, 24, 10, 0, 0, 0, loc)

	assert.False(t, tc.IsTradingDay(saturday))
	assert.False(t, tc.IsTradingDay(sunday))
	assert.False(t, tc.IsOpenOnMinute(saturday))
	assert.True(t, tc.IsTradingDay(monday))
}

func TestFallbackNormalizesForeignZones(t *testing.T) {
	tc := &TradingCalendar{Fallback: true, Timezone: jakarta(t)}

	// 03:00 UTC on a Wednesday is 10:00 in Jakarta
	assert.True(t, tc.IsOpenOnMinute(time.Date(2026, time.August, 19, 3, 0, 0, 0, time.UTC)))
	// 13:00 UTC is already 20:00 in Jakarta
	assert.False(t, tc.IsOpenOnMinute(time.Date(2026, time.August, 19, 13, 0, 0, 0, time.UTC)))
}

// -----------------------------------------------------------------------------

func TestGetCalendarNeverNil(t *testing.T) {
	for _, mic := range []string{"xidx", " XIDX ", "", "not-a-mic", "xnys"} {
		tc := GetCalendar(mic, "Asia/Jakarta")
		require.NotNil(t, tc, "mic %q", mic)
		assert.NotNil(t, tc.Timezone, "mic %q", mic)
	}
}

func TestCalendarClosesWeekends(t *testing.T) {
	tc := GetCalendar("xnys", "America/New_York")

	saturday := time.Date(2026, time.August, 22, 12, 0, 0, 0, time.UTC)
	assert.False(t, tc.IsTradingDay(saturday))
	assert.False(t, tc.IsOpenOnMinute(saturday))
}
