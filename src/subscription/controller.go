package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/analysis"
	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/interfaces"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/metrics"
	"github.com/ahfrd/grpc-stream-client-side/src/models"
	"github.com/ahfrd/grpc-stream-client-side/src/transport"
	"github.com/ahfrd/grpc-stream-client-side/src/utils"
)

// -----------------------------------------------------------------------------
// SubscriptionController
// -----------------------------------------------------------------------------

// SubscriptionController owns the subscription lifecycle. It holds at most one
// current session, consumes its batches on a dedicated goroutine and exposes
// the observable state. Parameter changes restart the session through a
// debounce window so rapid edits coalesce into a single reopen.
type SubscriptionController struct {
	transport interfaces.IStreamTransport
	db        interfaces.IDatabase
	metrics   *metrics.Metrics
	logger    *logger.Logger
	debounce  time.Duration
	rootCtx   context.Context

	updates chan models.MLatestData

	mu          sync.Mutex
	closed      bool
	params      models.MSubscriptionParams
	session     *StreamSession
	state       models.MConnectionState
	display     []models.MInstrument
	summary     models.MMarketSummary
	stats       models.MStreamStats
	history     *utils.SummaryRing
	timer       *time.Timer
	timerGen    uint64
	lastBatchAt time.Time
	wg          sync.WaitGroup
}

// -----------------------------------------------------------------------------

// NewSubscriptionController wires the controller. db and m may be nil, the
// run history and metrics are then skipped. historyDepth <= 0 falls back to
// the default summary retention.
func NewSubscriptionController(
	ctx context.Context,
	tr interfaces.IStreamTransport,
	params models.MSubscriptionParams,
	debounce time.Duration,
	historyDepth int,
	db interfaces.IDatabase,
	m *metrics.Metrics,
	log *logger.Logger,
) *SubscriptionController {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &SubscriptionController{
		transport: tr,
		db:        db,
		metrics:   m,
		logger:    log,
		debounce:  debounce,
		rootCtx:   ctx,
		params:    params,
		updates:   make(chan models.MLatestData, 64),
		display:   []models.MInstrument{},
		history:   utils.NewSummaryRing(historyDepth),
	}
}

// -----------------------------------------------------------------------------

// Updates returns the push channel carrying a snapshot after every state
// change. It closes when the controller closes. Slow readers miss
// intermediate snapshots, never the newest one.
func (c *SubscriptionController) Updates() <-chan models.MLatestData {
	return c.updates
}

// -----------------------------------------------------------------------------

// Connect opens a session with the current parameters. No-op when a session
// is already active. Fails when the transport is unusable or the controller
// is closed; the failure is also recorded in the connection state.
func (c *SubscriptionController) Connect() error {
	c.mu.Lock()
	sess, err := c.connectLocked()
	c.mu.Unlock()

	if sess != nil {
		c.metrics.RecordSessionOpened()
		c.saveSessionRecord(sess, models.OutcomeActive, "", 0, time.Time{})
	}
	return err
}

// connectLocked performs the state transition. The caller handles metrics and
// history for the returned session outside the lock.
func (c *SubscriptionController) connectLocked() (*StreamSession, error) {
	if c.closed {
		return nil, &helpers.SubscriptionError{StreamClientError: helpers.StreamClientError{
			Message: "subscription controller is closed"}}
	}
	if c.transport == nil || !c.transport.Ready() {
		err := helpers.ErrTransportUninitialized
		c.state.LastError = err.Message
		c.pushLocked("UPDATE")
		return nil, err
	}
	if c.session != nil {
		return nil, nil
	}

	sess := newStreamSession(c.params, c.logger)
	c.state.MessageCount = 0
	c.state.LastError = ""

	if err := sess.Open(c.rootCtx, c.transport); err != nil {
		c.state.IsConnected = false
		c.state.LastError = err.Error()
		c.pushLocked("UPDATE")
		return nil, err
	}

	c.session = sess
	c.state.IsConnected = true
	c.stats.SessionsOpened++
	c.stats.SessionID = sess.ID
	c.lastBatchAt = time.Time{}
	c.logger.Info("Session %s connecting (filter=%s sort=%s)", sess.ID, c.params.Filter, c.params.SortKey)
	c.pushLocked("UPDATE")

	c.wg.Add(1)
	go c.consume(sess)
	return sess, nil
}

// -----------------------------------------------------------------------------

// Disconnect stops the active session and any pending restart. Idempotent,
// never an error. The displayed data stays in place.
func (c *SubscriptionController) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	if c.session == nil {
		return
	}
	c.logger.Info("Disconnect requested for session %s", c.session.ID)
	c.session.Cancel()
}

// -----------------------------------------------------------------------------

// SetParameters stores the new parameters. Equal values are a no-op. While a
// session is active the restart is deferred by the debounce window and only
// the latest value wins.
func (c *SubscriptionController) SetParameters(params models.MSubscriptionParams) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &helpers.SubscriptionError{StreamClientError: helpers.StreamClientError{
			Message: "subscription controller is closed"}}
	}
	if !params.Valid() {
		c.mu.Unlock()
		return &helpers.ValidationError{StreamClientError: helpers.StreamClientError{
			Message: fmt.Sprintf("unknown filter or sort key: %s/%s", params.Filter, params.SortKey)}}
	}
	if c.params.Equal(params) {
		c.mu.Unlock()
		return nil
	}

	c.params = params
	deferred := false
	if c.session != nil {
		if c.timer != nil {
			c.timer.Stop()
			deferred = true
		}
		c.timerGen++
		gen := c.timerGen
		c.timer = time.AfterFunc(c.debounce, func() { c.restartFromDebounce(gen) })
		c.logger.Debug("Parameter change queued (filter=%s sort=%s), restart in %s", params.Filter, params.SortKey, c.debounce)
	}
	c.pushLocked("UPDATE")
	c.mu.Unlock()

	if deferred {
		c.metrics.RecordRestartDeferred()
	}
	return nil
}

// restartFromDebounce runs when the debounce window elapses. A generation
// check drops timers that were superseded or stopped after firing.
func (c *SubscriptionController) restartFromDebounce(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.session == nil {
		// session ended while the timer was pending, the stored parameters
		// apply on the next explicit connect
		c.mu.Unlock()
		return
	}

	old := c.session
	old.Cancel()
	c.session = nil
	c.logger.Info("Applying new parameters (filter=%s sort=%s), restarting session", c.params.Filter, c.params.SortKey)
	sess, err := c.connectLocked()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("Failed to reopen session after parameter change: %v", err)
	}
	if sess != nil {
		c.metrics.RecordSessionOpened()
		c.saveSessionRecord(sess, models.OutcomeActive, "", 0, time.Time{})
	}
}

// -----------------------------------------------------------------------------

// State returns a copy of the current connection state.
func (c *SubscriptionController) State() models.MConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the full observable state including the displayed batch.
func (c *SubscriptionController) Snapshot() models.MLatestData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked("INITIAL")
}

// History returns up to n retained summary points, oldest first. n <= 0
// returns everything retained.
func (c *SubscriptionController) History(n int) []models.MSummaryPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		return c.history.All()
	}
	return c.history.Latest(n)
}

// -----------------------------------------------------------------------------

// Close terminates the controller and waits for the consume goroutine to
// drain. Further Connect calls fail. Idempotent.
func (c *SubscriptionController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopTimerLocked()
	if c.session != nil {
		c.session.Cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
	close(c.updates)
}

// -----------------------------------------------------------------------------
// Consume loop
// -----------------------------------------------------------------------------

func (c *SubscriptionController) consume(sess *StreamSession) {
	defer c.wg.Done()

	var seq int64

	for batch := range sess.Batches() {
		c.mu.Lock()
		if c.session != sess || c.closed {
			// superseded session, drain without touching the view
			c.mu.Unlock()
			continue
		}

		seq++
		c.state.MessageCount++

		if batch.IsOK() && batch.Instruments != nil {
			now := time.Now()
			interval := 0.0
			if !c.lastBatchAt.IsZero() {
				interval = now.Sub(c.lastBatchAt).Seconds()
			}
			c.lastBatchAt = now

			c.state.LastUpdate = now.UnixMilli()
			c.display = make([]models.MInstrument, len(batch.Instruments))
			copy(c.display, batch.Instruments)
			c.summary = analysis.ComputeSummary(batch.Instruments)
			c.stats.BatchesOK++
			c.stats.LastBatchSeconds = interval
			c.history.Append(models.MSummaryPoint{
				Timestamp:       now.UnixMilli(),
				Instruments:     c.summary.Instruments,
				Advancing:       c.summary.Advancing,
				Declining:       c.summary.Declining,
				Unchanged:       c.summary.Unchanged,
				TotalVolume:     c.summary.TotalVolume,
				IntervalSeconds: interval,
			})
			c.pushLocked("UPDATE")
			c.mu.Unlock()

			c.metrics.RecordBatchAccepted(len(batch.Instruments), interval)
		} else {
			c.stats.BatchesRejected++
			c.pushLocked("UPDATE")
			c.mu.Unlock()

			c.logger.Warning("Ignoring batch with code=%s message=%q from session %s", batch.Code, batch.Message, sess.ID)
			c.metrics.RecordBatchRejected()
		}

		c.saveBatchLog(sess, seq, batch)
	}

	// terminal: the batch channel closed, classify and settle the state
	outcome, cause := sess.Outcome()
	finished := time.Now()

	c.mu.Lock()
	var detail string
	if c.session == sess {
		c.session = nil
		c.state.IsConnected = false
		c.stats.SessionID = ""

		switch outcome {
		case models.OutcomeErrored:
			detail = transport.HumanizeError(cause)
			c.state.LastError = detail
			c.logger.Error("Session %s failed: %v", sess.ID, cause)
		case models.OutcomeCompleted:
			c.logger.Info("Session %s completed, feed closed the stream", sess.ID)
		case models.OutcomeCancelled:
			c.logger.Info("Session %s stopped", sess.ID)
		}
		c.pushLocked("UPDATE")
	} else {
		if outcome == models.OutcomeErrored {
			detail = transport.HumanizeError(cause)
		}
		c.logger.Debug("Superseded session %s ended with outcome=%s", sess.ID, outcome)
	}
	c.mu.Unlock()

	c.metrics.RecordSessionEnded(outcome, finished.Sub(sess.OpenedAt).Seconds())
	c.saveSessionRecord(sess, outcome, detail, seq, finished)
}

// -----------------------------------------------------------------------------
// Internal helpers
// -----------------------------------------------------------------------------

func (c *SubscriptionController) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

// pushLocked offers the current snapshot to the updates channel without
// blocking the lifecycle on slow observers.
func (c *SubscriptionController) pushLocked(kind string) {
	if c.closed {
		return
	}
	select {
	case c.updates <- c.snapshotLocked(kind):
	default:
	}
}

func (c *SubscriptionController) snapshotLocked(kind string) models.MLatestData {
	instruments := make([]models.MInstrument, len(c.display))
	copy(instruments, c.display)

	return models.MLatestData{
		Type:        kind,
		State:       c.state,
		Params:      c.params,
		Instruments: instruments,
		Summary:     c.summary,
		Stats:       c.stats,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// -----------------------------------------------------------------------------

func (c *SubscriptionController) saveSessionRecord(sess *StreamSession, outcome, detail string, batches int64, finished time.Time) {
	if c.db == nil {
		return
	}
	record := &models.MSessionRecord{
		SessionID:  sess.ID,
		Filter:     sess.Params.Filter,
		SortKey:    sess.Params.SortKey,
		Outcome:    outcome,
		Detail:     detail,
		Batches:    batches,
		OpenedAt:   sess.OpenedAt,
		FinishedAt: finished,
	}
	if err := c.db.SaveSession(record); err != nil {
		c.logger.Error("Failed to save session record %s: %v", sess.ID, err)
	}
}

func (c *SubscriptionController) saveBatchLog(sess *StreamSession, seq int64, batch *models.MRecordBatch) {
	if c.db == nil {
		return
	}
	entry := &models.MBatchLogEntry{
		SessionID:   sess.ID,
		Seq:         seq,
		Code:        batch.Code,
		Message:     batch.Message,
		Instruments: len(batch.Instruments),
		ReceivedAt:  time.Now(),
	}
	if err := c.db.SaveBatchLog(entry); err != nil {
		c.logger.Error("Failed to save batch log for session %s: %v", sess.ID, err)
	}
}
