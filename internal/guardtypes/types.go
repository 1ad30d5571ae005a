// Package guardtypes defines the shared types used by the security policy
// pipeline: permission decisions, risk levels, pattern severities, and the
// options/result values exchanged between the permission engine and its
// callers.
package guardtypes

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	// ErrUnknownDecision is returned when parsing an unrecognized decision string
	ErrUnknownDecision = errors.New("unknown decision")

	// ErrUnknownRiskLevel is returned when parsing an unrecognized risk level string
	ErrUnknownRiskLevel = errors.New("unknown risk level")
)

// Decision represents the outcome of a permission check.
type Decision int

const (
	// DecisionDeny blocks the action outright.
	DecisionDeny Decision = iota

	// DecisionNeedsApproval requires explicit human confirmation before the
	// action proceeds. Distinguishable from deny so the calling layer can
	// prompt instead of giving up.
	DecisionNeedsApproval

	// DecisionAllow permits the action.
	DecisionAllow
)

// String representations for Decision values.
const (
	DenyString          = "deny"
	NeedsApprovalString = "needs_approval"
	AllowString         = "allow"
)

// String returns a string representation of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionDeny:
		return DenyString
	case DecisionNeedsApproval:
		return NeedsApprovalString
	case DecisionAllow:
		return AllowString
	default:
		return DenyString
	}
}

// ParseDecision converts a string to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch s {
	case DenyString:
		return DecisionDeny, nil
	case NeedsApprovalString:
		return DecisionNeedsApproval, nil
	case AllowString:
		return DecisionAllow, nil
	default:
		return DecisionDeny, fmt.Errorf("%w: %q", ErrUnknownDecision, s)
	}
}

// RiskLevel represents the security risk level of an action.
type RiskLevel int

const (
	// RiskLevelUnknown indicates actions whose risk level cannot be determined
	RiskLevelUnknown RiskLevel = iota

	// RiskLevelLow indicates actions with minimal security risk
	RiskLevelLow

	// RiskLevelMedium indicates actions with moderate security risk
	RiskLevelMedium

	// RiskLevelHigh indicates actions with high security risk
	RiskLevelHigh

	// RiskLevelCritical indicates actions that must be blocked
	RiskLevelCritical
)

// String representations for RiskLevel values.
const (
	UnknownRiskLevelString  = "unknown"
	LowRiskLevelString      = "low"
	MediumRiskLevelString   = "medium"
	HighRiskLevelString     = "high"
	CriticalRiskLevelString = "critical"
)

// String returns a string representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLevelLow:
		return LowRiskLevelString
	case RiskLevelMedium:
		return MediumRiskLevelString
	case RiskLevelHigh:
		return HighRiskLevelString
	case RiskLevelCritical:
		return CriticalRiskLevelString
	default:
		return UnknownRiskLevelString
	}
}

// ParseRiskLevel converts a string to a RiskLevel for user configuration.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case UnknownRiskLevelString:
		return RiskLevelUnknown, nil
	case LowRiskLevelString:
		return RiskLevelLow, nil
	case MediumRiskLevelString:
		return RiskLevelMedium, nil
	case HighRiskLevelString:
		return RiskLevelHigh, nil
	case CriticalRiskLevelString:
		return RiskLevelCritical, nil
	default:
		return RiskLevelUnknown, fmt.Errorf("%w: %q", ErrUnknownRiskLevel, s)
	}
}

// PatternSeverity classifies a dangerous command pattern. Severity is fixed
// at definition time; SeverityAlwaysBlock can never be downgraded by
// configuration at any security level.
type PatternSeverity int

const (
	// SeverityNeedsApproval marks patterns that require human confirmation.
	SeverityNeedsApproval PatternSeverity = iota

	// SeverityAlwaysBlock marks patterns that are denied unconditionally.
	SeverityAlwaysBlock
)

// String returns a string representation of the pattern severity.
func (s PatternSeverity) String() string {
	if s == SeverityAlwaysBlock {
		return "always_block"
	}
	return "needs_approval"
}

// ThreatSeverity classifies an injection threat finding.
type ThreatSeverity int

const (
	// ThreatSeverityLow marks informational findings.
	ThreatSeverityLow ThreatSeverity = iota

	// ThreatSeverityMedium marks findings recorded for audit but not blocking.
	ThreatSeverityMedium

	// ThreatSeverityHigh marks findings that make the content unclean.
	ThreatSeverityHigh
)

// String returns a string representation of the threat severity.
func (s ThreatSeverity) String() string {
	switch s {
	case ThreatSeverityMedium:
		return MediumRiskLevelString
	case ThreatSeverityHigh:
		return HighRiskLevelString
	default:
		return LowRiskLevelString
	}
}

// SecurityCheckResult is the verdict of a single permission check. A deny or
// needs-approval result is terminal for the invocation; the pipeline stops
// and nothing executes.
type SecurityCheckResult struct {
	Decision Decision
	// Reason names the specific rule that produced the verdict. Never a
	// generic "denied".
	Reason string
	Risk   RiskLevel
}

// Allowed reports whether the check permits the action to proceed.
func (r SecurityCheckResult) Allowed() bool {
	return r.Decision == DecisionAllow
}

// Security level bounds. Level 1 blocks everything; level 5 allows anything
// not always-blocked.
const (
	MinSecurityLevel = 1
	MaxSecurityLevel = 5

	// DefaultSecurityLevel is the baseline strictness when no configuration
	// is supplied.
	DefaultSecurityLevel = 3
)

// CheckOptions carries the per-call configuration for permission checks: the
// active security level plus the six user override lists. Overrides extend
// but never weaken always-blocked rules; a user blocklist entry always wins
// over a default allowlist entry.
type CheckOptions struct {
	SecurityLevel int

	ShellAllow  []string
	ShellBlock  []string
	DirAllow    []string
	DirBlock    []string
	DomainAllow []string
	DomainBlock []string
}

// Normalize returns a copy of the options with the security level clamped
// to the valid [MinSecurityLevel, MaxSecurityLevel] range. A zero level is
// treated as unset and replaced with the default.
func (o CheckOptions) Normalize() CheckOptions {
	switch {
	case o.SecurityLevel == 0:
		o.SecurityLevel = DefaultSecurityLevel
	case o.SecurityLevel < MinSecurityLevel:
		o.SecurityLevel = MinSecurityLevel
	case o.SecurityLevel > MaxSecurityLevel:
		o.SecurityLevel = MaxSecurityLevel
	}
	return o
}
