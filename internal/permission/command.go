// Package permission implements the tiered permission-decision engine. It
// consumes parsed commands, file paths, and outbound domains together with a
// security level (1-5) and user overrides, and produces a terminal
// SecurityCheckResult for each. The check functions are pure: no side
// effects, no shared mutable state beyond the immutable policy tables, safe
// to call from any goroutine.
//
// Decision precedence inside each check is strict top to bottom; once a step
// produces a verdict, evaluation stops.
package permission

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
	"github.com/claypark-dev/agent-sentry/internal/policy"
	"github.com/claypark-dev/agent-sentry/internal/shellparse"
)

// CheckCommand decides whether a raw shell command may run. The raw string
// is NFKC-normalized before any matching so unicode homoglyphs cannot slip
// a blocked command past the tables.
func CheckCommand(raw string, opts guardtypes.CheckOptions) guardtypes.SecurityCheckResult {
	opts = opts.Normalize()
	raw = norm.NFKC.String(raw)

	// Step 1: level 1 blocks all shell commands.
	if opts.SecurityLevel == guardtypes.MinSecurityLevel {
		return deny(guardtypes.RiskLevelCritical,
			"all shell commands blocked at security level 1")
	}

	// Step 2: command substitution is never allowed. This parser cannot
	// safely analyze substituted content.
	if shellparse.HasCommandSubstitution(raw) {
		return deny(guardtypes.RiskLevelHigh,
			"command substitution ($(...) or backticks) is not permitted")
	}

	// Step 3: always-block patterns outrank the variable-expansion gate, so
	// a command like "rm -rf $HOME" is denied outright rather than queued
	// for approval. Then variable expansion needs a human to confirm what
	// expands.
	if res, matched := matchAlwaysBlocked(raw); matched {
		return res
	}
	if shellparse.HasVariableExpansion(raw) {
		return needsApproval(guardtypes.RiskLevelMedium,
			"variable expansion requires approval: expanded value cannot be verified")
	}

	// Step 4: structural parse.
	parsed, err := shellparse.Parse(raw)
	if err != nil {
		return deny(guardtypes.RiskLevelHigh,
			fmt.Sprintf("command could not be parsed safely: %v", err))
	}
	if len(parsed) == 0 {
		return deny(guardtypes.RiskLevelLow, "empty command")
	}
	flat := shellparse.Flatten(parsed)

	// Step 5: dangerous pattern table, in order, against the raw string
	// and every flattened fragment. First match wins; an ambiguity between
	// the raw and tokenized views therefore resolves to the stricter
	// verdict.
	if res, matched := matchDangerous(raw, flat); matched {
		return res
	}

	// Step 6: binary allow/block lists.
	if res, matched := checkBinaries(flat, opts); matched {
		return res
	}

	// Step 7: path arguments and sudo.
	for _, cmd := range flat {
		for _, arg := range cmd.Args {
			if !looksLikePath(arg) {
				continue
			}
			if res := CheckFilePath(arg, opts); !res.Allowed() {
				return res
			}
		}
	}
	for _, cmd := range flat {
		if cmd.HasSudo {
			return needsApproval(guardtypes.RiskLevelHigh,
				"sudo requires explicit approval")
		}
	}

	// Step 8: redirects are gated at the strictest levels.
	if opts.SecurityLevel <= 2 {
		for _, cmd := range flat {
			if cmd.HasRedirects {
				return needsApproval(guardtypes.RiskLevelMedium,
					fmt.Sprintf("output redirection requires approval at security level %d", opts.SecurityLevel))
			}
		}
	}

	// Step 9: nothing objected.
	return allow("command passed all security checks")
}

// matchAlwaysBlocked runs only the always-block rows of the pattern table
// against the raw string, ahead of the variable-expansion gate.
func matchAlwaysBlocked(raw string) (guardtypes.SecurityCheckResult, bool) {
	for _, p := range policy.DangerousPatterns {
		if p.Severity != guardtypes.SeverityAlwaysBlock {
			continue
		}
		if p.Pattern.MatchString(raw) {
			return deny(guardtypes.RiskLevelCritical,
				fmt.Sprintf("blocked pattern: %s", p.Description)), true
		}
	}
	return guardtypes.SecurityCheckResult{}, false
}

// matchDangerous runs the dangerous-pattern table against the raw string
// and the flattened fragments, in table order with first match winning.
func matchDangerous(raw string, flat []*shellparse.ParsedCommand) (guardtypes.SecurityCheckResult, bool) {
	for _, p := range policy.DangerousPatterns {
		matched := p.Pattern.MatchString(raw)
		if !matched {
			for _, cmd := range flat {
				if p.Pattern.MatchString(cmd.Raw) {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}
		if p.Severity == guardtypes.SeverityAlwaysBlock {
			return deny(guardtypes.RiskLevelCritical,
				fmt.Sprintf("blocked pattern: %s", p.Description)), true
		}
		return needsApproval(guardtypes.RiskLevelHigh,
			fmt.Sprintf("dangerous pattern requires approval: %s", p.Description)), true
	}
	return guardtypes.SecurityCheckResult{}, false
}

// checkBinaries applies the user blocklist (highest priority, independent
// of level) and the allowlist constraint for levels 2 and 3. Levels 4 and 5
// impose no allowlist here; the always-block patterns already ran.
func checkBinaries(flat []*shellparse.ParsedCommand, opts guardtypes.CheckOptions) (guardtypes.SecurityCheckResult, bool) {
	for _, cmd := range flat {
		if inList(opts.ShellBlock, cmd.Binary) {
			return deny(guardtypes.RiskLevelHigh,
				fmt.Sprintf("binary %q is in the user blocklist", cmd.Binary)), true
		}
	}
	if opts.SecurityLevel > 3 {
		return guardtypes.SecurityCheckResult{}, false
	}
	for _, cmd := range flat {
		if policy.IsDefaultAllowedBinary(cmd.Binary) || inList(opts.ShellAllow, cmd.Binary) {
			continue
		}
		if opts.SecurityLevel == 2 {
			return deny(guardtypes.RiskLevelMedium,
				fmt.Sprintf("binary %q is not in the allowlist at security level 2", cmd.Binary)), true
		}
		return needsApproval(guardtypes.RiskLevelMedium,
			fmt.Sprintf("binary %q is not in the allowlist and requires approval", cmd.Binary)), true
	}
	return guardtypes.SecurityCheckResult{}, false
}

// looksLikePath is the heuristic for argument tokens that should run
// through the file path check.
func looksLikePath(arg string) bool {
	return strings.HasPrefix(arg, "/") ||
		strings.HasPrefix(arg, "~") ||
		strings.HasPrefix(arg, "./") ||
		strings.HasPrefix(arg, "../")
}

// inList matches a binary name against an override list using basenames on
// both sides, following the allowlist matching in the policy tables.
func inList(list []string, binary string) bool {
	for _, entry := range list {
		if entry == "" {
			continue
		}
		if baseName(entry) == baseName(binary) {
			return true
		}
	}
	return false
}

func baseName(s string) string {
	if i := strings.LastIndexByte(s, '/'); i != -1 {
		return s[i+1:]
	}
	return s
}

func deny(risk guardtypes.RiskLevel, reason string) guardtypes.SecurityCheckResult {
	return guardtypes.SecurityCheckResult{Decision: guardtypes.DecisionDeny, Reason: reason, Risk: risk}
}

func needsApproval(risk guardtypes.RiskLevel, reason string) guardtypes.SecurityCheckResult {
	return guardtypes.SecurityCheckResult{Decision: guardtypes.DecisionNeedsApproval, Reason: reason, Risk: risk}
}

func allow(reason string) guardtypes.SecurityCheckResult {
	return guardtypes.SecurityCheckResult{Decision: guardtypes.DecisionAllow, Reason: reason, Risk: guardtypes.RiskLevelLow}
}
