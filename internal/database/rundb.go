package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/addrcluster/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "addrcluster.db"

// storedTimeFormat is fixed width so that text ordering is time ordering.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrRunNotFound is returned when no run has the requested id.
	ErrRunNotFound = errors.New("run not found")

	// ErrAddressNotFound is returned when an address is not in a stored run.
	ErrAddressNotFound = errors.New("address not found in run")
)

// RunDB stores finished runs and their cluster membership.
type RunDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the run database in dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		mode = "rw"
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; batch runs save concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per processed record file
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		input_digest TEXT,
		started_at TEXT NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		summary_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- The KeyMap of each run; position keeps the UserMap order
	CREATE TABLE IF NOT EXISTS cluster_members (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		address TEXT NOT NULL,
		cluster_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (run_id, address)
	);

	CREATE INDEX IF NOT EXISTS idx_members_cluster ON cluster_members(run_id, cluster_id);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunMetadata is the summary row of a stored run.
type RunMetadata struct {
	ID          string
	Source      string
	InputDigest string
	StartedAt   time.Time
	Failed      bool
	Summary     model.Summary
}

// SaveRun stores a run and, if it has a cluster view, its membership.
// Saving the same run id twice replaces the earlier row.
func (rdb *RunDB) SaveRun(ctx context.Context, run *model.Run) (err error) {
	if run.Error != nil && run.ErrorMessage == "" {
		run.ErrorMessage = run.Error.Error()
	}

	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}
	reportJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM cluster_members WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear cluster members: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, source, input_digest, started_at, failed, summary_json, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source = excluded.source,
		input_digest = excluded.input_digest,
		started_at = excluded.started_at,
		failed = excluded.failed,
		summary_json = excluded.summary_json,
		report_json = excluded.report_json
	`,
		run.ID,
		run.Source,
		run.InputDigest,
		run.StartedAt.UTC().Format(storedTimeFormat),
		run.Failed(),
		string(summaryJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if run.Clusters != nil {
		if err = insertMembers(ctx, tx, run.ID, run.Clusters); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// insertMembers writes the KeyMap of view.
func insertMembers(ctx context.Context, tx *sql.Tx, runID string, view *model.ClusterView) error {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO cluster_members (run_id, address, cluster_id, position) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare member insert: %w", err)
	}
	defer stmt.Close()

	position := 0
	view.Each(func(id model.ClusterID, addresses []string) bool {
		for _, addr := range addresses {
			if _, err = stmt.ExecContext(ctx, runID, addr, int64(id), position); err != nil {
				return false
			}
			position++
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to insert cluster member: %w", err)
	}
	return nil
}

// metadataColumns are the columns read by scanMetadata.
const metadataColumns = `id, source, input_digest, started_at, failed, summary_json`

// scanMetadata reads one row of metadataColumns.
func scanMetadata(scan func(dest ...any) error) (RunMetadata, error) {
	var meta RunMetadata
	var digest sql.NullString
	var startedAt, summaryJSON string

	if err := scan(&meta.ID, &meta.Source, &digest, &startedAt, &meta.Failed, &summaryJSON); err != nil {
		return RunMetadata{}, err
	}
	meta.InputDigest = digest.String
	meta.StartedAt = parseTimestamp(startedAt)
	if summaryJSON != "" {
		if err := json.Unmarshal([]byte(summaryJSON), &meta.Summary); err != nil {
			return RunMetadata{}, fmt.Errorf("failed to parse summary of run %s: %w", meta.ID, err)
		}
	}
	return meta, nil
}

// queryMetadata runs a metadata query.
func (rdb *RunDB) queryMetadata(ctx context.Context, query string, args ...any) ([]RunMetadata, error) {
	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	results := make([]RunMetadata, 0)
	for rows.Next() {
		meta, err := scanMetadata(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// ListRuns returns the stored runs of source, newest first.
// An empty source lists every run.
func (rdb *RunDB) ListRuns(ctx context.Context, source string) ([]RunMetadata, error) {
	query := `SELECT ` + metadataColumns + ` FROM runs`
	args := make([]any, 0, 1)
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY started_at DESC, created_at DESC`
	return rdb.queryMetadata(ctx, query, args...)
}

// LatestRuns returns at most n runs of source, newest first.
func (rdb *RunDB) LatestRuns(ctx context.Context, source string, n int) ([]RunMetadata, error) {
	return rdb.queryMetadata(ctx, `
	SELECT `+metadataColumns+` FROM runs
	WHERE source = ?
	ORDER BY started_at DESC, created_at DESC
	LIMIT ?
	`, source, n)
}

// GetRunMetadata returns the summary row of a run.
func (rdb *RunDB) GetRunMetadata(ctx context.Context, id string) (*RunMetadata, error) {
	row := rdb.db.QueryRowContext(ctx, `SELECT `+metadataColumns+` FROM runs WHERE id = ?`, id)
	meta, err := scanMetadata(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &meta, nil
}

// GetRun returns the stored report of a run. Records, cluster view and
// edges are not part of the report.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal([]byte(reportJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &run, nil
}

// LookupAddress returns the cluster of address in a stored run.
func (rdb *RunDB) LookupAddress(ctx context.Context, runID, address string) (model.ClusterID, error) {
	var id int64
	err := rdb.db.QueryRowContext(ctx, `
	SELECT cluster_id FROM cluster_members WHERE run_id = ? AND address = ?
	`, runID, address).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrAddressNotFound, address)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up address: %w", err)
	}
	return model.ClusterID(id), nil
}

// ClusterMembers returns the addresses of a stored cluster in UserMap order.
// An unknown cluster yields an empty slice.
func (rdb *RunDB) ClusterMembers(ctx context.Context, runID string, clusterID model.ClusterID) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT address FROM cluster_members
	WHERE run_id = ? AND cluster_id = ?
	ORDER BY position
	`, runID, int64(clusterID))
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster members: %w", err)
	}
	defer rows.Close()

	members := make([]string, 0)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan cluster member: %w", err)
		}
		members = append(members, addr)
	}
	return members, rows.Err()
}

// keyMap loads the stored KeyMap of a run.
func (rdb *RunDB) keyMap(ctx context.Context, runID string) (map[string]int64, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT address, cluster_id FROM cluster_members WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster members: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]int64)
	for rows.Next() {
		var addr string
		var id int64
		if err := rows.Scan(&addr, &id); err != nil {
			return nil, fmt.Errorf("failed to scan cluster member: %w", err)
		}
		keys[addr] = id
	}
	return keys, rows.Err()
}

// timestampFormats are the formats SQLite may return, most specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses s with the first matching format, or returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
