package policy

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultAllowedBinaries is the baseline binary allowlist consulted at
// security levels 2 and 3. Everything here is a read-mostly developer tool;
// anything destructive it can still express is caught by the dangerous
// pattern table, which runs first.
var DefaultAllowedBinaries = map[string]struct{}{
	"ls": {}, "cat": {}, "head": {}, "tail": {}, "grep": {}, "rg": {},
	"find": {}, "wc": {}, "sort": {}, "uniq": {}, "cut": {}, "tr": {},
	"echo": {}, "printf": {}, "pwd": {}, "date": {}, "whoami": {},
	"which": {}, "env": {}, "file": {}, "stat": {}, "du": {}, "df": {},
	"basename": {}, "dirname": {}, "realpath": {}, "readlink": {},
	"sed": {}, "awk": {}, "jq": {}, "diff": {}, "cmp": {}, "xargs": {},
	"mkdir": {}, "touch": {}, "cp": {}, "mv": {}, "ln": {},
	"tar": {}, "gzip": {}, "gunzip": {}, "zip": {}, "unzip": {},
	"git": {}, "go": {}, "node": {}, "npm": {}, "python": {},
	"python3": {}, "pip": {}, "pip3": {}, "make": {}, "cargo": {},
	"sleep": {}, "true": {}, "false": {}, "test": {}, "uname": {},
}

// IsDefaultAllowedBinary reports whether the binary name is on the default
// allowlist. Matching uses the basename so "/bin/ls" and "ls" agree.
func IsDefaultAllowedBinary(binary string) bool {
	_, ok := DefaultAllowedBinaries[filepath.Base(binary)]
	return ok
}

// alwaysBlockedDirPatterns are glob patterns for directories no file access
// may ever touch, at any security level and under any override. The bare
// entries match the directory itself, the "/**" entries everything beneath.
var alwaysBlockedDirPatterns = []string{
	"/",
	"/etc", "/etc/**",
	"/usr", "/usr/**",
	"/bin", "/bin/**",
	"/sbin", "/sbin/**",
	"/System", "/System/**",
	"/Library", "/Library/**",
	"/var", "/var/**",
	"/boot", "/boot/**",
	"/root", "/root/**",
	"/proc", "/proc/**",
	"/sys", "/sys/**",
}

// defaultAllowedDirPatterns are glob patterns for absolute locations file
// access is allowed into without user overrides: the scratch directory and
// the user home tree. Relative paths are workspace-relative and allowed
// without consulting the globs.
var defaultAllowedDirPatterns = []string{
	"/tmp", "/tmp/**",
}

var (
	alwaysBlockedDirGlobs  []glob.Glob
	defaultAllowedDirGlobs []glob.Glob
)

func init() {
	alwaysBlockedDirGlobs = compileDirGlobs(alwaysBlockedDirPatterns)

	patterns := defaultAllowedDirPatterns
	if home, err := os.UserHomeDir(); err == nil && home != "/" {
		patterns = append(patterns, home, home+"/**")
	}
	defaultAllowedDirGlobs = compileDirGlobs(patterns)
}

// compileDirGlobs compiles directory glob patterns with "/" as separator.
// A bad pattern is a fatal startup misconfiguration.
func compileDirGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		globs = append(globs, glob.MustCompile(p, '/'))
	}
	return globs
}

// NormalizePath cleans a path for policy matching, expanding a leading "~"
// to the user home directory. Relative paths stay relative so workspace
// patterns can match them.
func NormalizePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + strings.TrimPrefix(path, "~")
		}
	}
	return filepath.Clean(path)
}

// IsAlwaysBlockedPath reports whether the path falls under an
// always-blocked directory. This rule cannot be weakened by any override.
// Matching is textual on the cleaned path; verdicts never depend on the
// working directory of the checking process.
func IsAlwaysBlockedPath(path string) bool {
	return matchAnyGlob(alwaysBlockedDirGlobs, NormalizePath(path))
}

// EscapesWorkspace reports whether the cleaned path climbs above the
// working directory. Where such a path lands cannot be verified without
// resolving against the checker's own location, so the permission engine
// treats it as unverifiable, never as allowed.
func EscapesWorkspace(path string) bool {
	p := NormalizePath(path)
	return p == ".." || strings.HasPrefix(p, "../")
}

// IsDefaultAllowedPath reports whether the path falls under a
// default-allowed directory. A relative path that stays at or below the
// working directory is workspace-relative and allowed; one that escapes
// upward is not.
func IsDefaultAllowedPath(path string) bool {
	p := NormalizePath(path)
	if !filepath.IsAbs(p) {
		return !EscapesWorkspace(p)
	}
	return matchAnyGlob(defaultAllowedDirGlobs, p)
}

func matchAnyGlob(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// DefaultAllowedDomains are outbound destinations allowed without approval
// at security levels 2 and 3.
var DefaultAllowedDomains = []string{
	"api.anthropic.com",
	"api.openai.com",
	"generativelanguage.googleapis.com",
	"github.com",
	"raw.githubusercontent.com",
	"objects.githubusercontent.com",
	"pypi.org",
	"files.pythonhosted.org",
	"registry.npmjs.org",
	"proxy.golang.org",
	"sum.golang.org",
	"crates.io",
	"en.wikipedia.org",
	"duckduckgo.com",
}

// blockedDomainSuffixes are name suffixes that always denote internal
// infrastructure.
var blockedDomainSuffixes = []string{".internal", ".localhost", ".local"}

// NormalizeDomain lowercases a domain and strips any port and trailing dot
// before table matching. A bracketed IPv6 host keeps everything inside the
// brackets, port and all other trailing text discarded. No DNS resolution
// is ever attempted.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	if strings.HasPrefix(d, "[") {
		if end := strings.Index(d, "]"); end != -1 {
			return d[1:end]
		}
		return strings.TrimPrefix(d, "[")
	}
	if i := strings.LastIndex(d, ":"); i != -1 && strings.Count(d, ":") == 1 {
		d = d[:i]
	}
	return d
}

// IsAlwaysBlockedDomain reports whether the destination is loopback,
// private, link-local, unique-local, or an internal-suffixed name. These
// are denied unconditionally, regardless of level or user allowlist, to
// keep the assistant from reaching into the local network.
func IsAlwaysBlockedDomain(domain string) bool {
	d := NormalizeDomain(domain)
	if d == "" || d == "localhost" {
		return true
	}
	for _, suffix := range blockedDomainSuffixes {
		if strings.HasSuffix(d, suffix) {
			return true
		}
	}
	if addr, err := netip.ParseAddr(d); err == nil {
		return addr.IsLoopback() ||
			addr.IsPrivate() ||
			addr.IsLinkLocalUnicast() ||
			addr.IsLinkLocalMulticast() ||
			addr.IsUnspecified()
	}
	return false
}

// IsDefaultAllowedDomain reports whether the domain or one of its parents
// is on the default outbound allowlist.
func IsDefaultAllowedDomain(domain string) bool {
	d := NormalizeDomain(domain)
	for _, allowed := range DefaultAllowedDomains {
		if d == allowed || strings.HasSuffix(d, "."+allowed) {
			return true
		}
	}
	return false
}
