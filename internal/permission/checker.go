package permission

import (
	"context"
	"time"

	"github.com/claypark-dev/agent-sentry/internal/audit"
	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
)

// Checker binds the pure check functions to an audit recorder so that every
// decision — allow and deny alike — is reported exactly once. The tool
// layer calls a Checker rather than the bare functions.
type Checker struct {
	recorder audit.Recorder
	opts     guardtypes.CheckOptions
	taskID   string
	now      func() time.Time
}

// NewChecker creates a Checker for one task context. taskID is the optional
// correlation id attached to every record.
func NewChecker(recorder audit.Recorder, opts guardtypes.CheckOptions, taskID string) *Checker {
	return &Checker{
		recorder: recorder,
		opts:     opts.Normalize(),
		taskID:   taskID,
		now:      time.Now,
	}
}

// Command checks a raw shell command and records the decision.
func (c *Checker) Command(ctx context.Context, raw string) guardtypes.SecurityCheckResult {
	res := CheckCommand(raw, c.opts)
	c.report(ctx, audit.ActionShellCommand, raw, res)
	return res
}

// FilePath checks a file path and records the decision.
func (c *Checker) FilePath(ctx context.Context, path string) guardtypes.SecurityCheckResult {
	res := CheckFilePath(path, c.opts)
	c.report(ctx, audit.ActionFilePath, path, res)
	return res
}

// Domain checks an outbound destination and records the decision.
func (c *Checker) Domain(ctx context.Context, domain string) guardtypes.SecurityCheckResult {
	res := CheckDomain(domain, c.opts)
	c.report(ctx, audit.ActionDomain, domain, res)
	return res
}

// Options returns the normalized options in effect for this checker.
func (c *Checker) Options() guardtypes.CheckOptions {
	return c.opts
}

func (c *Checker) report(ctx context.Context, actionType, detail string, res guardtypes.SecurityCheckResult) {
	if c.recorder == nil {
		return
	}
	now := c.now()
	c.recorder.Report(ctx, audit.Record{
		ID:            audit.NewRecordID(now),
		Time:          now,
		ActionType:    actionType,
		Detail:        detail,
		Allowed:       res.Allowed(),
		Decision:      res.Decision,
		Risk:          res.Risk,
		SecurityLevel: c.opts.SecurityLevel,
		Reason:        res.Reason,
		TaskID:        c.taskID,
	})
}
