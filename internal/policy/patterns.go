// Package policy holds the static, versioned security policy data: dangerous
// command patterns with severity, the default binary allowlist, directory
// rules, and outbound domain rules. The tables are compiled once at package
// init and never mutated at runtime; an unparseable pattern is a fatal
// startup misconfiguration and panics rather than being caught per call.
//
// The data is kept separate from the evaluation loop in the permission
// engine so the policy can be audited and tested on its own.
package policy

import (
	"regexp"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
)

// DangerousPattern pairs a compiled regex with the verdict it forces.
// Severity is fixed at definition time; an always-block pattern can never
// be downgraded by configuration at any security level.
type DangerousPattern struct {
	Pattern     *regexp.Regexp
	Description string
	Severity    guardtypes.PatternSeverity
}

// DangerousPatterns is the ordered dangerous-command table. The permission
// engine evaluates it top to bottom against both the raw command string and
// every flattened pipeline fragment; the first match wins, so always-block
// entries precede any overlapping needs-approval entries.
var DangerousPatterns = []DangerousPattern{
	// Destruction of root or home. Any rm aimed at /, /*, ~ or $HOME is
	// blocked outright regardless of flags.
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])rm\s+(-[^\s]+\s+)*(/|/\*|~|~/|\$HOME)(\s|$|[;|&])`),
		Description: "recursive removal of root or home directory",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)rm\s+(-[^\s]+\s+)*--no-preserve-root`),
		Description: "rm with --no-preserve-root",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},

	// Disk and filesystem destruction.
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])dd\s+[^;|&]*of=/dev/`),
		Description: "dd writing directly to a block device",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])(mkfs(\.\w+)?|wipefs|blkdiscard)\b`),
		Description: "filesystem creation or signature wipe",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)>\s*/dev/(sd|hd|nvme|vd|xvd)`),
		Description: "redirect onto a raw disk device",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},

	// Fork bombs.
	{
		Pattern:     regexp.MustCompile(`:\s*\(\s*\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`),
		Description: "fork bomb",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},

	// Remote code execution via download-pipe-to-shell.
	{
		Pattern:     regexp.MustCompile(`(?i)\b(curl|wget)\b[^;&]*\|\s*(ba|z|da)?sh\b`),
		Description: "download piped into a shell",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(ba)?sh\s+<\(\s*(curl|wget)\b`),
		Description: "shell process substitution from a download",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},

	// Reverse shells.
	{
		Pattern:     regexp.MustCompile(`(?i)/dev/(tcp|udp)/`),
		Description: "shell network redirection (reverse shell)",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)\b(nc|ncat|netcat)\s+[^;|&]*-[ce]\b`),
		Description: "netcat executing a program on connect",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},

	// Credential theft.
	{
		Pattern:     regexp.MustCompile(`(?i)/etc/(shadow|sudoers|gshadow)\b`),
		Description: "access to system credential files",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(\.ssh/id_(rsa|ed25519|ecdsa|dsa)\b|\.aws/credentials|\.kube/config|\.gnupg/)`),
		Description: "access to private keys or cloud credentials",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},

	// Firewall teardown.
	{
		Pattern:     regexp.MustCompile(`(?i)(iptables\s+(-F|--flush)|ufw\s+disable)`),
		Description: "firewall rules flush or disable",
		Severity:    guardtypes.SeverityAlwaysBlock,
	},

	// Context-dependent operations that a human must confirm.
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])rm\s+(-[^\s]+\s+)*-[a-z]*r[a-z]*`),
		Description: "recursive file removal",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])chmod\s+(-[^\s]+\s+)*777\b`),
		Description: "world-writable permission change",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])chown\s+[^;|&]*root\b`),
		Description: "ownership change to root",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])(shutdown|reboot|poweroff|halt)\b`),
		Description: "system power state change",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])(fdisk|parted|gdisk|sfdisk)\b`),
		Description: "disk partitioning tool",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])systemctl\s+(stop|disable|mask|poweroff|reboot|halt)\b`),
		Description: "system service shutdown",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(history\s+-c|>\s*~?/?\.(bash|zsh)_history\b|(^|[\s;|&])rm\s+[^;|&]*\.(bash|zsh)_history)`),
		Description: "shell history tampering",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])(crontab|at|batch)\s`),
		Description: "scheduled task modification",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)(^|[\s;|&])(insmod|rmmod|modprobe|sysctl\s+-w)\b`),
		Description: "kernel module or parameter change",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
	{
		Pattern:     regexp.MustCompile(`(?i)base64\s+(-d|--decode)[^;|&]*\|`),
		Description: "decoded payload piped onward",
		Severity:    guardtypes.SeverityNeedsApproval,
	},
}
