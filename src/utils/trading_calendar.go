package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar calculates trading days using scmhub/calendar.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar resolves a MIC code (ISO 10383) to a trading calendar. The feed
// covers the Jakarta board, so unknown codes fall back to xidx hours.
func GetCalendar(mic string, fallbackTZ string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = "xidx"
	}

	// scmhub/calendar.GetCalendar returns a calendar by MIC
	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != "xidx" {
		cal = calendar.GetCalendar("xidx")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s'. Using simple fallback (Mon-Fri 09:00-16:00 %s).", mic, fallbackTZ)
		loc, _ := time.LoadLocation(fallbackTZ)
		if loc == nil {
			loc = time.UTC // Worst case
		}
		return &TradingCalendar{Fallback: true, Timezone: loc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	// Normalize to timezone if available
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		// Simple fallback: Mon-Fri
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	// Library handles IsHoliday / IsBusinessDay
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	// Normalize to timezone if available
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()

		// 09:00 - 16:00 Jakarta time
		if hour >= 9 && hour < 16 {
			return true
		}
		return false
	}

	return tc.Calendar.IsOpen(t)
}
