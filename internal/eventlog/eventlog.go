package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aryanox/ipalchemist/internal/model"
)

// Event kinds recorded in the log.
const (
	KindApplied         = "applied"
	KindCleared         = "cleared"
	KindRotationStarted = "rotation_started"
	KindRotationStopped = "rotation_stopped"
	KindTorRenewed      = "tor_renewed"
)

// Event is one recorded rotation event.
type Event struct {
	ID         int64
	Timestamp  time.Time
	Kind       string
	Proxy      string
	Protocol   string
	ObservedIP string
	LatencyMs  int
	Detail     string
}

// DB is the SQLite-backed event log.
//
// Design decision: one database file per data directory rather than
// per session, so queries across restarts need no file juggling.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so status queries don't
	// block the rotation loop's inserts.
	EnableWAL bool
}

// DefaultOptions returns the default event log options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the event log under dir.
func Open(dir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dir, "events.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("event log not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check event log path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create event log directory: %w", err)
		}
	}

	// modernc.org/sqlite uses DSN modes: rwc allows creation, rw does
	// not.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	// SQLite supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	edb := &DB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // Already failing
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := edb.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("create event log schema: %w", err)
	}
	return edb, nil
}

// Close closes the database connection.
func (e *DB) Close() error {
	return e.db.Close()
}

func (e *DB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		kind TEXT NOT NULL,
		proxy TEXT,
		protocol TEXT,
		observed_ip TEXT,
		latency_ms INTEGER DEFAULT -1,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	`
	_, err := e.db.ExecContext(context.Background(), schema)
	return err
}

// RecordApply logs a successful egress apply.
func (e *DB) RecordApply(ctx context.Context, record model.ProxyRecord) error {
	return e.insert(ctx, Event{
		Kind:       KindApplied,
		Proxy:      record.Addr(),
		Protocol:   string(record.Protocol),
		ObservedIP: record.ObservedIP,
		LatencyMs:  record.LatencyMs,
	})
}

// Record logs an arbitrary event of the given kind.
func (e *DB) Record(ctx context.Context, kind, detail string) error {
	return e.insert(ctx, Event{Kind: kind, Detail: detail, LatencyMs: -1})
}

func (e *DB) insert(ctx context.Context, event Event) error {
	query := `
	INSERT INTO events (kind, proxy, protocol, observed_ip, latency_ms, detail)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := e.db.ExecContext(ctx, query,
		event.Kind,
		event.Proxy,
		event.Protocol,
		event.ObservedIP,
		event.LatencyMs,
		event.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (e *DB) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT id, timestamp, kind, proxy, protocol, observed_ip, latency_ms, detail
	FROM events
	ORDER BY id DESC
	LIMIT ?
	`
	rows, err := e.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var events []Event
	for rows.Next() {
		var (
			event    Event
			proxy    sql.NullString
			protocol sql.NullString
			observed sql.NullString
			detail   sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &event.Kind, &proxy, &protocol, &observed, &event.LatencyMs, &detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Proxy = proxy.String
		event.Protocol = protocol.String
		event.ObservedIP = observed.String
		event.Detail = detail.String
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// PurgeBefore deletes events older than cutoff and returns how many
// rows went away.
func (e *DB) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := e.db.ExecContext(ctx, "DELETE FROM events WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	return result.RowsAffected()
}
