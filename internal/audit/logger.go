// Package audit provides the append-only security decision trail. Every
// permission decision — allowed or not — is reported exactly once by the
// permission checker, with the action type, the (redacted) action detail,
// the security level in effect, and the specific reason.
package audit

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
	"github.com/claypark-dev/agent-sentry/internal/redaction"
)

// Action types recorded in the trail.
const (
	ActionShellCommand = "shell_command"
	ActionFilePath     = "file_path"
	ActionDomain       = "domain"
	ActionInjection    = "injection_scan"
	ActionExecution    = "sandbox_execution"
)

// Record is one audit trail entry.
type Record struct {
	ID            string
	Time          time.Time
	ActionType    string
	Detail        string
	Allowed       bool
	Decision      guardtypes.Decision
	Risk          guardtypes.RiskLevel
	SecurityLevel int
	Reason        string
	TaskID        string
}

// NewRecordID returns a lexicographically sortable unique entry id.
func NewRecordID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// Recorder receives audit records. Implementations must not block decision
// making on delivery failures; a record that cannot be persisted is logged
// and dropped, never retried by the core.
type Recorder interface {
	Report(ctx context.Context, rec Record)
}

// Logger writes audit records as structured slog events.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a slog-backed audit recorder.
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// Report implements Recorder. The detail field is redacted before logging;
// secrets embedded in a checked command must not survive into log storage.
func (l *Logger) Report(ctx context.Context, rec Record) {
	attrs := []slog.Attr{
		slog.String("audit_type", "security_decision"),
		slog.String("record_id", rec.ID),
		slog.Int64("timestamp", rec.Time.Unix()),
		slog.String("action_type", rec.ActionType),
		slog.String("detail", redaction.RedactText(rec.Detail)),
		slog.Bool("allowed", rec.Allowed),
		slog.String("decision", rec.Decision.String()),
		slog.String("risk_level", rec.Risk.String()),
		slog.Int("security_level", rec.SecurityLevel),
		slog.String("reason", rec.Reason),
	}
	if rec.TaskID != "" {
		attrs = append(attrs, slog.String("task_id", rec.TaskID))
	}

	level := slog.LevelInfo
	switch rec.Risk {
	case guardtypes.RiskLevelCritical, guardtypes.RiskLevelHigh:
		if !rec.Allowed {
			level = slog.LevelWarn
		}
	default:
	}
	l.logger.LogAttrs(ctx, level, "security decision", attrs...)
}

// Multi fans a record out to several recorders.
type Multi []Recorder

// Report implements Recorder.
func (m Multi) Report(ctx context.Context, rec Record) {
	for _, r := range m {
		r.Report(ctx, rec)
	}
}
