package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	_ "modernc.org/sqlite"
)

// History queries fall back to this window when the caller passes no limit.
const defaultHistoryLimit = 50

// Retention applied when the config leaves retention_hours unset.
const defaultRetentionHours = 24

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return &helpers.DatabaseError{StreamClientError: helpers.StreamClientError{
			Message: fmt.Sprintf("failed to open sqlite database '%s'", dsn), Cause: err}}
	}

	if err := db.Ping(); err != nil {
		return &helpers.DatabaseError{StreamClientError: helpers.StreamClientError{
			Message: fmt.Sprintf("failed to reach sqlite database '%s'", dsn), Cause: err}}
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	// Recreate Tables
	return d.recreateTables()
}

// -----------------------------------------------------------------------------

// recreateTables drops and rebuilds the history tables. The history only
// describes the current run.
func (d *AsyncSQLiteDB) recreateTables() error {
	// Drop sessions
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS sessions"); err != nil {
		return fmt.Errorf("failed to drop sessions: %w", err)
	}

	// Create sessions
	// SQLite types: INTEGER for int64, TEXT for string. Times are unix millis.
	query := `
		CREATE TABLE sessions (
			session_id TEXT PRIMARY KEY,
			filter TEXT,
			sort_key TEXT,
			outcome TEXT,
			detail TEXT,
			batches INTEGER,
			opened_at INTEGER,
			finished_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}

	// Drop batch_log
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS batch_log"); err != nil {
		return fmt.Errorf("failed to drop batch_log: %w", err)
	}

	// Create batch_log
	query = `
		CREATE TABLE batch_log (
			session_id TEXT,
			seq INTEGER,
			code TEXT,
			message TEXT,
			instruments INTEGER,
			received_at INTEGER,
			PRIMARY KEY (session_id, seq)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create batch_log: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// SaveSession upserts one session record. The controller writes the record at
// open with outcome "active" and again at termination.
func (d *AsyncSQLiteDB) SaveSession(record *models.MSessionRecord) error {
	finished := int64(0)
	if !record.FinishedAt.IsZero() {
		finished = record.FinishedAt.UnixMilli()
	}

	query := `
		INSERT INTO sessions (session_id, filter, sort_key, outcome, detail, batches, opened_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			outcome = excluded.outcome,
			detail = excluded.detail,
			batches = excluded.batches,
			finished_at = excluded.finished_at
	`
	_, err := d.DB.Exec(query,
		record.SessionID, record.Filter, record.SortKey, record.Outcome,
		record.Detail, record.Batches, record.OpenedAt.UnixMilli(), finished)
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveBatchLog(entry *models.MBatchLogEntry) error {
	query := `
		INSERT INTO batch_log (session_id, seq, code, message, instruments, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := d.DB.Exec(query,
		entry.SessionID, entry.Seq, entry.Code, entry.Message,
		entry.Instruments, entry.ReceivedAt.UnixMilli())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecentSessions(limit int) ([]models.MSessionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
		SELECT session_id, filter, sort_key, outcome, detail, batches, opened_at, finished_at
		FROM sessions
		ORDER BY opened_at DESC
		LIMIT ?
	`
	rows, err := d.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MSessionRecord
	for rows.Next() {
		var rec models.MSessionRecord
		var opened, finished int64
		if err := rows.Scan(&rec.SessionID, &rec.Filter, &rec.SortKey, &rec.Outcome,
			&rec.Detail, &rec.Batches, &opened, &finished); err != nil {
			return nil, err
		}
		rec.OpenedAt = time.UnixMilli(opened).UTC()
		if finished > 0 {
			rec.FinishedAt = time.UnixMilli(finished).UTC()
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecentBatches(sessionID string, limit int) ([]models.MBatchLogEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
		SELECT session_id, seq, code, message, instruments, received_at
		FROM batch_log
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`
	rows, err := d.DB.Query(query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.MBatchLogEntry
	for rows.Next() {
		var entry models.MBatchLogEntry
		var received int64
		if err := rows.Scan(&entry.SessionID, &entry.Seq, &entry.Code, &entry.Message,
			&entry.Instruments, &received); err != nil {
			return nil, err
		}
		entry.ReceivedAt = time.UnixMilli(received).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// -----------------------------------------------------------------------------

// CleanupOldData prunes batch entries and terminal sessions past the retention
// window. The active session row is never removed.
func (d *AsyncSQLiteDB) CleanupOldData() error {
	hours := d.Config.Storage.RetentionHours
	if hours <= 0 {
		hours = defaultRetentionHours
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).UnixMilli()

	d.Logger.Info("Cleaning up history older than %dh (received_at < %d)", hours, cutoff)

	if _, err := d.DB.Exec("DELETE FROM batch_log WHERE received_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup batch_log error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM sessions WHERE finished_at > 0 AND finished_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup sessions error: %v", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
