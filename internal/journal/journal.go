package journal

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/google/uuid"
    _ "modernc.org/sqlite"
)

// Run statuses recorded in the ledger.
const (
    StatusRunning   = "running"
    StatusCompleted = "completed"
    StatusFailed    = "failed"
)

// Journal is the durable per-run ledger. The Redis status document is
// ephemeral and overwritten by each run; the journal keeps history.
type Journal struct {
    db *sql.DB
}

func Open(path string) (*Journal, error) {
    db, err := sql.Open("sqlite", path)
    if err != nil {
        return nil, err
    }
    j := &Journal{db: db}
    if err := j.migrate(); err != nil {
        return nil, err
    }
    return j, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate() error {
    stmts := []string{
        `CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            trigger TEXT,
            status TEXT,
            total_sources INTEGER,
            sources_done INTEGER,
            events_scraped INTEGER,
            error TEXT,
            started_at TIMESTAMP,
            finished_at TIMESTAMP
        );`,
        `CREATE TABLE IF NOT EXISTS run_errors (
            run_id TEXT,
            source TEXT,
            message TEXT,
            created_at TIMESTAMP
        );`,
        `CREATE INDEX IF NOT EXISTS idx_run_errors_run ON run_errors(run_id);`,
    }
    for _, stmt := range stmts {
        if _, err := j.db.Exec(stmt); err != nil {
            return err
        }
    }
    return nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Run is one ledger row.
type Run struct {
    RunID         string     `json:"run_id"`
    Trigger       string     `json:"trigger"`
    Status        string     `json:"status"`
    TotalSources  int        `json:"total_sources"`
    SourcesDone   int        `json:"sources_done"`
    EventsScraped int        `json:"events_scraped"`
    Error         *string    `json:"error"`
    StartedAt     time.Time  `json:"started_at"`
    FinishedAt    *time.Time `json:"finished_at"`
}

// SourceError is one recorded per-source failure.
type SourceError struct {
    RunID     string    `json:"run_id"`
    Source    string    `json:"source"`
    Message   string    `json:"message"`
    CreatedAt time.Time `json:"created_at"`
}

func (j *Journal) StartRun(ctx context.Context, runID, trigger string, totalSources int, ts time.Time) error {
    _, err := j.db.ExecContext(ctx, `INSERT INTO runs(run_id, trigger, status, total_sources, sources_done, events_scraped, started_at)
        VALUES(?, ?, ?, ?, 0, 0, ?)`, runID, trigger, StatusRunning, totalSources, ts)
    return err
}

func (j *Journal) UpdateProgress(ctx context.Context, runID string, sourcesDone, eventsScraped int) error {
    _, err := j.db.ExecContext(ctx, `UPDATE runs SET sources_done=?, events_scraped=? WHERE run_id=?`,
        sourcesDone, eventsScraped, runID)
    return err
}

func (j *Journal) RecordSourceError(ctx context.Context, runID, source, message string, ts time.Time) error {
    if len(message) > 240 {
        message = message[:240]
    }
    _, err := j.db.ExecContext(ctx, `INSERT INTO run_errors(run_id, source, message, created_at) VALUES(?, ?, ?, ?)`,
        runID, source, message, ts)
    return err
}

func (j *Journal) FinishRun(ctx context.Context, runID, status string, sourcesDone, eventsScraped int, errMsg string, ts time.Time) error {
    var errVal any
    if errMsg != "" {
        if len(errMsg) > 240 {
            errMsg = errMsg[:240]
        }
        errVal = errMsg
    }
    _, err := j.db.ExecContext(ctx, `UPDATE runs SET status=?, sources_done=?, events_scraped=?, error=?, finished_at=? WHERE run_id=?`,
        status, sourcesDone, eventsScraped, errVal, ts, runID)
    return err
}

func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
    rows, err := j.db.QueryContext(ctx, `SELECT run_id, trigger, status, total_sources, sources_done, events_scraped, error, started_at, finished_at
        FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var runs []Run
    for rows.Next() {
        var r Run
        var errMsg sql.NullString
        var finished sql.NullTime
        if err := rows.Scan(&r.RunID, &r.Trigger, &r.Status, &r.TotalSources, &r.SourcesDone, &r.EventsScraped, &errMsg, &r.StartedAt, &finished); err != nil {
            return nil, err
        }
        if errMsg.Valid {
            r.Error = &errMsg.String
        }
        if finished.Valid {
            r.FinishedAt = &finished.Time
        }
        runs = append(runs, r)
    }
    return runs, rows.Err()
}

func (j *Journal) RunErrors(ctx context.Context, runID string) ([]SourceError, error) {
    rows, err := j.db.QueryContext(ctx, `SELECT run_id, source, message, created_at FROM run_errors WHERE run_id=? ORDER BY created_at ASC`, runID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []SourceError
    for rows.Next() {
        var e SourceError
        if err := rows.Scan(&e.RunID, &e.Source, &e.Message, &e.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, e)
    }
    return out, rows.Err()
}

// Health returns err if DB not reachable.
func (j *Journal) Health(ctx context.Context) error {
    row := j.db.QueryRowContext(ctx, `SELECT 1`)
    var v int
    if err := row.Scan(&v); err != nil {
        return fmt.Errorf("journal health: %w", err)
    }
    return nil
}
