package utils

import (
	"context"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
)

// Venue hours change on the minute, finer polling buys nothing.
const scheduleTick = 30 * time.Second

// -----------------------------------------------------------------------------
// SessionScheduler drives the subscription along venue hours: connect when
// the market opens, disconnect when it closes. It only acts on open/close
// transitions, manual commands between transitions stay in effect.
// -----------------------------------------------------------------------------

type SessionScheduler struct {
	MIC        string
	Calendar   *TradingCalendar
	Controller interfaces.ISubscriptionController
	Logger     *logger.Logger

	tick     time.Duration
	now      func() time.Time
	lastOpen bool
}

// -----------------------------------------------------------------------------

func NewSessionScheduler(mic string, cal *TradingCalendar, ctrl interfaces.ISubscriptionController, log *logger.Logger) *SessionScheduler {
	return &SessionScheduler{
		MIC:        mic,
		Calendar:   cal,
		Controller: ctrl,
		Logger:     log,
		tick:       scheduleTick,
		now:        time.Now,
	}
}

// -----------------------------------------------------------------------------

// Run polls the calendar until the context is cancelled. Starting during
// market hours counts as an open transition, so the subscription comes up
// right away.
func (s *SessionScheduler) Run(ctx context.Context) {
	s.Logger.Info("Session scheduler tracking %s hours", s.MIC)

	s.evaluate()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Session scheduler stopped")
			return
		case <-ticker.C:
			s.evaluate()
		}
	}
}

// -----------------------------------------------------------------------------

func (s *SessionScheduler) evaluate() {
	open := s.Calendar.IsOpenOnMinute(s.now())
	if open == s.lastOpen {
		return
	}
	s.lastOpen = open

	if open {
		s.Logger.Info("Market %s opened, starting subscription", s.MIC)
		if err := s.Controller.Connect(); err != nil {
			s.Logger.Warning("Scheduled connect failed: %v", err)
		}
		return
	}

	s.Logger.Info("Market %s closed, stopping subscription", s.MIC)
	s.Controller.Disconnect()
}
