package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
)

func sampleRecord() Record {
	now := time.Now()
	return Record{
		ID:            NewRecordID(now),
		Time:          now,
		ActionType:    ActionShellCommand,
		Detail:        "ls -la",
		Allowed:       true,
		Decision:      guardtypes.DecisionAllow,
		Risk:          guardtypes.RiskLevelLow,
		SecurityLevel: 3,
		Reason:        "command passed all security checks",
		TaskID:        "task-1",
	}
}

func TestNewRecordID_SortableAndUnique(t *testing.T) {
	earlier := NewRecordID(time.Now())
	later := NewRecordID(time.Now().Add(time.Second))

	assert.Len(t, earlier, 26)
	assert.NotEqual(t, earlier, later)
	assert.Less(t, earlier, later, "ids order by time")
}

func TestLogger_Report(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.Report(context.Background(), sampleRecord())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "security_decision", entry["audit_type"])
	assert.Equal(t, ActionShellCommand, entry["action_type"])
	assert.Equal(t, "ls -la", entry["detail"])
	assert.Equal(t, true, entry["allowed"])
	assert.Equal(t, "allow", entry["decision"])
	assert.Equal(t, "low", entry["risk_level"])
	assert.Equal(t, float64(3), entry["security_level"])
	assert.Equal(t, "task-1", entry["task_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLogger_RedactsDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	rec := sampleRecord()
	rec.Detail = "curl --token=sk-abcdefghijklmnopqrstuvwx https://x.example"
	logger.Report(context.Background(), rec)

	out := buf.String()
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwx", "secrets must not reach the log")
	assert.Contains(t, out, "[REDACTED]")
}

func TestLogger_DeniedHighRiskLogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	rec := sampleRecord()
	rec.Allowed = false
	rec.Decision = guardtypes.DecisionDeny
	rec.Risk = guardtypes.RiskLevelCritical
	logger.Report(context.Background(), rec)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
}

func TestMulti_FansOut(t *testing.T) {
	var first, second countingRecorder
	multi := Multi{&first, &second}

	multi.Report(context.Background(), sampleRecord())

	assert.Equal(t, 1, first.count)
	assert.Equal(t, 1, second.count)
}

type countingRecorder struct {
	count int
}

func (c *countingRecorder) Report(context.Context, Record) {
	c.count++
}
