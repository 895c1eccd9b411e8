package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/amirsamani13/househunt-hq-sub000/models"
)

// SQLiteStore holds operational data: scrape run history, structured
// run logs and the command queue polled by the scheduler. Domain data
// lives in Postgres; this file can be deleted without losing listings.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL DEFAULT 'running',
		listings_found INTEGER NOT NULL DEFAULT 0,
		listings_new INTEGER NOT NULL DEFAULT 0,
		listings_duplicate INTEGER NOT NULL DEFAULT 0,
		listings_skipped INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER,
		timestamp DATETIME NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command TEXT NOT NULL,
		params TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON logs(run_id);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (source, started_at, status) VALUES (?, ?, ?)`,
		run.Source, run.StartedAt, run.Status,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, status = ?, listings_found = ?, listings_new = ?,
			listings_duplicate = ?, listings_skipped = ?, errors_count = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsFound, run.ListingsNew,
		run.ListingsDuplicate, run.ListingsSkipped, run.ErrorsCount, run.ErrorMessage,
		run.ID,
	)
	return err
}

func (s *SQLiteStore) GetLastRunTime(source string) (time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRow(
		`SELECT MAX(started_at) FROM runs WHERE source = ?`, source,
	).Scan(&t)
	if err != nil || !t.Valid {
		return time.Time{}, err
	}
	return t.Time, nil
}

func (s *SQLiteStore) GetSourceStats(source string) (*models.SourceStats, error) {
	stats := &models.SourceStats{Source: source}

	var lastRun sql.NullTime
	var lastStatus sql.NullString
	err := s.db.QueryRow(
		`SELECT started_at, status FROM runs WHERE source = ? ORDER BY started_at DESC LIMIT 1`,
		source,
	).Scan(&lastRun, &lastStatus)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	if lastRun.Valid {
		stats.LastRunAt = &lastRun.Time
	}
	stats.LastRunStatus = lastStatus.String

	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(listings_new), 0),
			COALESCE(AVG(CASE WHEN status = 'completed' THEN 1.0 ELSE 0.0 END), 0)
		FROM runs WHERE source = ?`,
		source,
	).Scan(&stats.TotalListings, &stats.SuccessRate)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// =============================================================================
// Logs
// =============================================================================

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, source string) error {
	_, err := s.db.Exec(
		`INSERT INTO logs (run_id, timestamp, level, message, source) VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, source,
	)
	return err
}

// PruneLogs removes log rows older than the cutoff.
func (s *SQLiteStore) PruneLogs(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM logs WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	var raw []byte
	if params != nil {
		raw, _ = json.Marshal(params)
	}
	_, err := s.db.Exec(
		`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, string(raw), time.Now(),
	)
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(
		`SELECT id, command, COALESCE(params, ''), created_at FROM commands
		WHERE processed_at IS NULL ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params string
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt); err != nil {
			return nil, err
		}
		if params != "" {
			cmd.Params = json.RawMessage(params)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	params := &models.CommandParams{}
	if len(cmd.Params) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(cmd.Params, params); err != nil {
		return nil, fmt.Errorf("parse command params: %w", err)
	}
	return params, nil
}
