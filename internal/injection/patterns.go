// Package injection scans text entering the LLM context for prompt
// injection. It shares the pipeline's design stance: never trust the
// string, always classify it. The detector only flags; it never mutates
// the input, so the original text stays available for audit.
package injection

import (
	"regexp"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
)

// ThreatPattern is one entry of the injection detection table.
type ThreatPattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Severity    guardtypes.ThreatSeverity
	Description string
	// ExternalOnly patterns are skipped for user-sourced text. A user may
	// say "ignore my last message" about their own conversation; the same
	// phrasing arriving from a web page is suspicious.
	ExternalOnly bool
}

// threatPatterns is the ordered detection table. All patterns are
// evaluated; unlike the command tables there is no first-match-wins,
// because the audit trail wants every threat recorded.
var threatPatterns = []ThreatPattern{
	{
		Name:        "instruction_override",
		Pattern:     regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|messages?|rules?)`),
		Severity:    guardtypes.ThreatSeverityHigh,
		Description: "attempts to override earlier instructions",
	},
	{
		Name:        "instruction_override",
		Pattern:     regexp.MustCompile(`(?i)(new|updated|revised)\s+(system\s+)?instructions?\s*:`),
		Severity:    guardtypes.ThreatSeverityHigh,
		Description: "injects replacement instructions",
	},
	{
		Name:        "system_prompt_probe",
		Pattern:     regexp.MustCompile(`(?i)(reveal|show|print|repeat|output)\s+(your\s+)?(system\s+prompt|initial\s+instructions|hidden\s+instructions)`),
		Severity:    guardtypes.ThreatSeverityHigh,
		Description: "probes for the system prompt",
	},
	{
		Name:         "role_impersonation",
		Pattern:      regexp.MustCompile(`(?i)you\s+are\s+(now\s+|no\s+longer\s+)?(a|an|the)\s+\w+`),
		Severity:     guardtypes.ThreatSeverityHigh,
		Description:  "attempts to reassign the assistant's role",
		ExternalOnly: true,
	},
	{
		Name:         "mode_switch",
		Pattern:      regexp.MustCompile(`(?i)(enable|enter|activate)\s+(developer|debug|god|dan|jailbreak|unrestricted)\s+mode`),
		Severity:     guardtypes.ThreatSeverityHigh,
		Description:  "attempts to switch into an unrestricted mode",
		ExternalOnly: true,
	},
	{
		Name:         "tool_invocation_lure",
		Pattern:      regexp.MustCompile(`(?i)(run|execute|invoke)\s+(the\s+)?(shell|command|tool)\s*[:` + "`" + `]`),
		Severity:     guardtypes.ThreatSeverityHigh,
		Description:  "directs the assistant to invoke a tool",
		ExternalOnly: true,
	},
	{
		Name:         "exfiltration_lure",
		Pattern:      regexp.MustCompile(`(?i)(send|post|upload|email|forward)\s+[^.\n]{0,60}(conversation|credentials?|secrets?|api\s*keys?|passwords?|\.env)`),
		Severity:     guardtypes.ThreatSeverityHigh,
		Description:  "directs the assistant to exfiltrate data",
		ExternalOnly: true,
	},
	{
		Name:         "markup_smuggling",
		Pattern:      regexp.MustCompile(`(?i)<\s*/?\s*(system|assistant|instructions?)\s*>`),
		Severity:     guardtypes.ThreatSeverityMedium,
		Description:  "embeds conversation-role markup in content",
		ExternalOnly: true,
	},
	{
		Name:        "invisible_text",
		Pattern:     regexp.MustCompile("[\u200b\u200c\u200d\u2060\ufeff]"),
		Severity:    guardtypes.ThreatSeverityMedium,
		Description: "contains zero-width characters that can hide instructions",
	},
	{
		Name:        "prompt_leak_bait",
		Pattern:     regexp.MustCompile(`(?i)(as\s+an\s+ai|your\s+training\s+data|your\s+guidelines)\s`),
		Severity:    guardtypes.ThreatSeverityLow,
		Description: "language commonly paired with guideline manipulation",
	},
}
