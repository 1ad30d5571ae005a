package permission

import (
	"fmt"
	"strings"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
	"github.com/claypark-dev/agent-sentry/internal/policy"
)

// CheckDomain decides whether an outbound network call to the destination
// may proceed. Loopback, private-range, link-local, and internal-suffixed
// destinations are denied at every level, even when a user allowlist names
// them: the assistant must never be steerable into the local network.
func CheckDomain(domain string, opts guardtypes.CheckOptions) guardtypes.SecurityCheckResult {
	opts = opts.Normalize()

	if opts.SecurityLevel == guardtypes.MinSecurityLevel {
		return deny(guardtypes.RiskLevelCritical,
			"all outbound network access blocked at security level 1")
	}

	if policy.IsAlwaysBlockedDomain(domain) {
		return deny(guardtypes.RiskLevelCritical,
			fmt.Sprintf("destination %q is loopback, private, or internal and is never allowed", domain))
	}

	if domainInList(opts.DomainBlock, domain) {
		return deny(guardtypes.RiskLevelHigh,
			fmt.Sprintf("domain %q is in the user blocklist", domain))
	}

	if opts.SecurityLevel <= 3 {
		if policy.IsDefaultAllowedDomain(domain) || domainInList(opts.DomainAllow, domain) {
			return allow("domain is on the outbound allowlist")
		}
		return needsApproval(guardtypes.RiskLevelMedium,
			fmt.Sprintf("domain %q is not on the allowlist and requires approval", domain))
	}

	return allow("domain allowed at permissive security level")
}

// domainInList matches the domain or any parent against an override list.
func domainInList(list []string, domain string) bool {
	d := policy.NormalizeDomain(domain)
	for _, entry := range list {
		e := policy.NormalizeDomain(entry)
		if e == "" {
			continue
		}
		if d == e || strings.HasSuffix(d, "."+e) {
			return true
		}
	}
	return false
}
