package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
	"github.com/claypark-dev/agent-sentry/internal/redaction"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id             TEXT PRIMARY KEY,
	ts             INTEGER NOT NULL,
	action_type    TEXT NOT NULL,
	detail         TEXT NOT NULL,
	allowed        INTEGER NOT NULL,
	decision       TEXT NOT NULL,
	risk_level     TEXT NOT NULL,
	security_level INTEGER NOT NULL,
	reason         TEXT NOT NULL,
	task_id        TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts);
`

// Store persists audit records to an append-only sqlite table. Records are
// only ever inserted; there is no update or delete path.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenStore opens (creating if needed) the audit database at path.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Report implements Recorder. Persistence failures are logged and dropped;
// they never block or alter a security decision.
func (s *Store) Report(ctx context.Context, rec Record) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, ts, action_type, detail, allowed, decision, risk_level, security_level, reason, task_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Time.Unix(), rec.ActionType,
		redaction.RedactText(rec.Detail), boolToInt(rec.Allowed),
		rec.Decision.String(), rec.Risk.String(), rec.SecurityLevel,
		rec.Reason, rec.TaskID)
	if err != nil && s.logger != nil {
		s.logger.Error("audit record not persisted", "error", err, "record_id", rec.ID)
	}
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, action_type, detail, allowed, decision, risk_level, security_level, reason, COALESCE(task_id, '')
		 FROM audit_log ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec      Record
			ts       int64
			allowed  int
			decision string
			risk     string
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.ActionType, &rec.Detail, &allowed,
			&decision, &risk, &rec.SecurityLevel, &rec.Reason, &rec.TaskID); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Time = timeFromUnix(ts)
		rec.Allowed = allowed != 0
		if d, err := guardtypes.ParseDecision(decision); err == nil {
			rec.Decision = d
		}
		if r, err := guardtypes.ParseRiskLevel(risk); err == nil {
			rec.Risk = r
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
