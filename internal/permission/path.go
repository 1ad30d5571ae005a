package permission

import (
	"fmt"
	"strings"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
	"github.com/claypark-dev/agent-sentry/internal/policy"
)

// CheckFilePath decides whether a file path may be accessed. Always-blocked
// system directories are denied unconditionally; beyond that the verdict
// depends on the security level and the user's directory overrides.
func CheckFilePath(path string, opts guardtypes.CheckOptions) guardtypes.SecurityCheckResult {
	opts = opts.Normalize()
	normalized := policy.NormalizePath(path)

	if policy.IsAlwaysBlockedPath(normalized) {
		return deny(guardtypes.RiskLevelCritical,
			fmt.Sprintf("path %q is under an always-blocked system directory", path))
	}

	if policy.EscapesWorkspace(normalized) {
		return needsApproval(guardtypes.RiskLevelMedium,
			fmt.Sprintf("path %q climbs above the working directory and cannot be checked against blocked directories", path))
	}

	if opts.SecurityLevel == guardtypes.MaxSecurityLevel {
		return allow("security level 5 allows all paths outside blocked directories")
	}

	if prefixInList(opts.DirBlock, normalized) {
		return deny(guardtypes.RiskLevelHigh,
			fmt.Sprintf("path %q is in the user directory blocklist", path))
	}

	if policy.IsDefaultAllowedPath(normalized) || prefixInList(opts.DirAllow, normalized) {
		return allow("path is in an allowed directory")
	}

	if opts.SecurityLevel == 4 {
		return allow("security level 4 allows paths not explicitly blocked")
	}

	return needsApproval(guardtypes.RiskLevelMedium,
		fmt.Sprintf("path %q is not in an allowed directory and requires approval", path))
}

// prefixInList reports whether the normalized path equals or sits beneath
// any entry of a user directory override list.
func prefixInList(list []string, path string) bool {
	for _, entry := range list {
		if entry == "" {
			continue
		}
		prefix := policy.NormalizePath(entry)
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
