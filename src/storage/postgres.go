package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahfrd/grpc-stream-client-side/src/helpers"
	"github.com/ahfrd/grpc-stream-client-side/src/logger"
	"github.com/ahfrd/grpc-stream-client-side/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Use the executable name as the schema so several tools can share one
	// database without clashing.
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return &helpers.DatabaseError{StreamClientError: helpers.StreamClientError{
			Message: "failed to open postgres database", Cause: err}}
	}

	if err := db.Ping(); err != nil {
		return &helpers.DatabaseError{StreamClientError: helpers.StreamClientError{
			Message: "failed to reach postgres database", Cause: err}}
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.recreateTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

// recreateTables drops and rebuilds the history tables. The history only
// describes the current run.
func (d *PostgresDB) recreateTables() error {
	sessionsTable := fmt.Sprintf(`"%s"."sessions"`, d.Schema)
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, sessionsTable)); err != nil {
		return fmt.Errorf("failed to drop sessions: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE %s (
			session_id TEXT PRIMARY KEY,
			filter TEXT,
			sort_key TEXT,
			outcome TEXT,
			detail TEXT,
			batches BIGINT,
			opened_at BIGINT,
			finished_at BIGINT
		);
	`, sessionsTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create sessions: %w", err)
	}

	batchLogTable := fmt.Sprintf(`"%s"."batch_log"`, d.Schema)
	if _, err := d.DB.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, batchLogTable)); err != nil {
		return fmt.Errorf("failed to drop batch_log: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE %s (
			session_id TEXT,
			seq BIGINT,
			code TEXT,
			message TEXT,
			instruments INTEGER,
			received_at BIGINT,
			PRIMARY KEY (session_id, seq)
		);
	`, batchLogTable)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create batch_log: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveSession(record *models.MSessionRecord) error {
	finished := int64(0)
	if !record.FinishedAt.IsZero() {
		finished = record.FinishedAt.UnixMilli()
	}

	query := fmt.Sprintf(`
		INSERT INTO "%s"."sessions" (session_id, filter, sort_key, outcome, detail, batches, opened_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			outcome = EXCLUDED.outcome,
			detail = EXCLUDED.detail,
			batches = EXCLUDED.batches,
			finished_at = EXCLUDED.finished_at
	`, d.Schema)
	_, err := d.DB.Exec(query,
		record.SessionID, record.Filter, record.SortKey, record.Outcome,
		record.Detail, record.Batches, record.OpenedAt.UnixMilli(), finished)
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveBatchLog(entry *models.MBatchLogEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."batch_log" (session_id, seq, code, message, instruments, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.Schema)
	_, err := d.DB.Exec(query,
		entry.SessionID, entry.Seq, entry.Code, entry.Message,
		entry.Instruments, entry.ReceivedAt.UnixMilli())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecentSessions(limit int) ([]models.MSessionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := fmt.Sprintf(`
		SELECT session_id, filter, sort_key, outcome, detail, batches, opened_at, finished_at
		FROM "%s"."sessions"
		ORDER BY opened_at DESC
		LIMIT $1
	`, d.Schema)
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

func (d *PostgresDB) RecentBatches(sessionID string, limit int) ([]models.MBatchLogEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := fmt.Sprintf(`
		SELECT session_id, seq, code, message, instruments, received_at
		FROM "%s"."batch_log"
		WHERE session_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, d.Schema)
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
func (d *PostgresDB) CleanupOldData() error {
	hours := d.Config.Storage.RetentionHours
	if hours <= 0 {
		hours = defaultRetentionHours
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).UnixMilli()

	d.Logger.Info("Cleaning up history older than %dh (received_at < %d)", hours, cutoff)

	query := fmt.Sprintf(`DELETE FROM "%s"."batch_log" WHERE received_at < $1`, d.Schema)
	if _, err := d.DB.Exec(query, cutoff); err != nil {
		d.Logger.Error("Cleanup batch_log error: %v", err)
	}
	query = fmt.Sprintf(`DELETE FROM "%s"."sessions" WHERE finished_at > 0 AND finished_at < $1`, d.Schema)
	if _, err := d.DB.Exec(query, cutoff); err != nil {
		d.Logger.Error("Cleanup sessions error: %v", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
