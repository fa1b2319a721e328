package interfaces

import "github.com/ahfrd/grpc-stream-client-side/src/models"

// -----------------------------------------------------------------------------
// IDatabase interface for the run history store.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize prepares the schema. Tables are dropped and recreated, the
	// history only covers the current run.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveSession inserts or updates one session record keyed by session id.
	SaveSession(record *models.MSessionRecord) error

	// -----------------------------------------------------------------------------

	// SaveBatchLog appends one batch entry to the session's log.
	SaveBatchLog(entry *models.MBatchLogEntry) error

	// -----------------------------------------------------------------------------

	// RecentSessions returns up to limit sessions, newest first.
	RecentSessions(limit int) ([]models.MSessionRecord, error)

	// -----------------------------------------------------------------------------

	// RecentBatches returns up to limit batch entries for one session, newest first.
	RecentBatches(sessionID string, limit int) ([]models.MBatchLogEntry, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes history older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close closes the underlying handle.
	Close() error
}
