package injection

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/claypark-dev/agent-sentry/internal/guardtypes"
)

// Source identifies who the scanned text came from.
type Source string

const (
	// SourceUser marks text typed by the user themselves.
	SourceUser Source = "user"
	// SourceExternal marks text fetched from outside the conversation:
	// web pages, API responses, third-party tool results.
	SourceExternal Source = "external"
)

// Threat is one finding from a scan.
type Threat struct {
	Type        string
	Description string
	Severity    guardtypes.ThreatSeverity
}

// SanitizationResult reports what a scan found. SanitizedInput is always
// the original text unchanged; the detector flags, it never rewrites.
type SanitizationResult struct {
	// Clean is true iff no high-severity threat matched. Medium and low
	// findings are recorded for audit but do not flip cleanliness.
	Clean          bool
	Threats        []Threat
	SanitizedInput string
}

// base64CandidateRe finds spans that look like base64-encoded payloads.
var base64CandidateRe = regexp.MustCompile(`[A-Za-z0-9+/]{20,}={0,2}`)

// suspiciousDecodedWords are flagged when found inside decoded base64
// content arriving from an external source.
var suspiciousDecodedWords = regexp.MustCompile(`(?i)\b(ignore|execute|run|delete|send|override|bypass|admin|root|sudo)\b`)

// maxBase64Candidates bounds decode work on adversarial input.
const maxBase64Candidates = 64

// CheckForInjection scans input for prompt-injection patterns. Patterns
// marked external-only are skipped when the source is the user. External
// content additionally gets a base64 scan: decodable spans whose plaintext
// contains instruction-like words are flagged as encoded instructions.
func CheckForInjection(input string, source Source) SanitizationResult {
	result := SanitizationResult{SanitizedInput: input}

	for _, p := range threatPatterns {
		if p.ExternalOnly && source != SourceExternal {
			continue
		}
		if p.Pattern.MatchString(input) {
			result.Threats = append(result.Threats, Threat{
				Type:        p.Name,
				Description: p.Description,
				Severity:    p.Severity,
			})
		}
	}

	if source == SourceExternal {
		if threat, found := scanEncodedInstructions(input); found {
			result.Threats = append(result.Threats, threat)
		}
	}

	result.Clean = true
	for _, t := range result.Threats {
		if t.Severity == guardtypes.ThreatSeverityHigh {
			result.Clean = false
			break
		}
	}
	return result
}

// scanEncodedInstructions decodes base64-looking spans and checks the
// plaintext against the suspicious word list.
func scanEncodedInstructions(input string) (Threat, bool) {
	candidates := base64CandidateRe.FindAllString(input, maxBase64Candidates)
	for _, candidate := range candidates {
		decoded, err := base64.StdEncoding.DecodeString(candidate)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(candidate)
		}
		if err != nil || !isMostlyPrintable(decoded) {
			continue
		}
		if suspiciousDecodedWords.Match(decoded) {
			return Threat{
				Type:        "encoded_instruction",
				Description: "base64-encoded content decodes to instruction-like text",
				Severity:    guardtypes.ThreatSeverityMedium,
			}, true
		}
	}
	return Threat{}, false
}

// isMostlyPrintable filters out binary blobs that happen to decode.
func isMostlyPrintable(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	printable := 0
	for _, b := range data {
		if b == '\n' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			printable++
		}
	}
	return printable*10 >= len(data)*9
}

// HighestSeverity returns the most severe finding, for audit routing.
func (r SanitizationResult) HighestSeverity() guardtypes.ThreatSeverity {
	highest := guardtypes.ThreatSeverityLow
	for _, t := range r.Threats {
		if t.Severity > highest {
			highest = t.Severity
		}
	}
	return highest
}

// Summary joins the threat types for log lines.
func (r SanitizationResult) Summary() string {
	if len(r.Threats) == 0 {
		return "no threats detected"
	}
	types := make([]string, len(r.Threats))
	for i, t := range r.Threats {
		types[i] = t.Type
	}
	return strings.Join(types, ",")
}
