package subscription

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"
	"github.com/ahfrd/grpc-stream-client-side/src/transport"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// StreamSession
// -----------------------------------------------------------------------------

// StreamSession is one open subscription against the feed. It owns the
// receive goroutine and reports exactly one terminal outcome once the batch
// channel closes. A session is never reused, parameter changes open a new one.
type StreamSession struct {
	ID       string
	Params   models.MSubscriptionParams
	OpenedAt time.Time

	logger  *logger.Logger
	cancel  context.CancelFunc
	batches chan *models.MRecordBatch

	cancelRequested atomic.Bool

	mu      sync.Mutex
	outcome string
	cause   error
}

// -----------------------------------------------------------------------------

func newStreamSession(params models.MSubscriptionParams, log *logger.Logger) *StreamSession {
	return &StreamSession{
		ID:       uuid.NewString(),
		Params:   params,
		OpenedAt: time.Now(),
		logger:   log,
		batches:  make(chan *models.MRecordBatch, 16),
		outcome:  models.OutcomeActive,
	}
}

// -----------------------------------------------------------------------------

// Open dials the subscribe stream and starts the receive loop. On failure no
// goroutine is spawned and the batch channel stays open but empty.
func (s *StreamSession) Open(parentCtx context.Context, tr interfaces.IStreamTransport) error {
	streamCtx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel

	stream, err := tr.OpenStream(streamCtx, s.Params)
	if err != nil {
		cancel()
		return err
	}

	s.logger.Debug("Session %s opened (filter=%s sort=%s)", s.ID, s.Params.Filter, s.Params.SortKey)
	go s.receiveLoop(stream)
	return nil
}

// -----------------------------------------------------------------------------

// Batches returns the ordered delivery channel. It closes when the stream
// terminates for any reason; consumers must drain it fully.
func (s *StreamSession) Batches() <-chan *models.MRecordBatch {
	return s.batches
}

// -----------------------------------------------------------------------------

// Cancel requests teardown. Idempotent. The request flag is raised before the
// context is cancelled so a racing clean end still classifies as cancelled.
func (s *StreamSession) Cancel() {
	if s.cancelRequested.Swap(true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// -----------------------------------------------------------------------------

// Outcome reports how the session ended. Only meaningful after the batch
// channel has closed; before that it returns OutcomeActive.
func (s *StreamSession) Outcome() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.cause
}

// -----------------------------------------------------------------------------

func (s *StreamSession) receiveLoop(stream interfaces.IRecordStream) {
	defer close(s.batches)

	for {
		batch, err := stream.Recv()
		if err != nil {
			s.classify(err)
			return
		}
		s.batches <- batch
	}
}

// -----------------------------------------------------------------------------

// classify fixes the terminal outcome. A requested cancel wins over anything
// the stream reports, including a clean EOF that races the teardown.
func (s *StreamSession) classify(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.cancelRequested.Load() || transport.IsCancellation(err):
		s.outcome = models.OutcomeCancelled
	case errors.Is(err, io.EOF):
		s.outcome = models.OutcomeCompleted
	default:
		s.outcome = models.OutcomeErrored
		s.cause = err
	}
}
