// Package redaction removes likely secrets from text before it is written
// to logs or the audit store. The detector flags; redaction only applies to
// what gets persisted, never to what gets executed.
package redaction

import (
	"regexp"
	"strings"
)

// Placeholder replaces redacted values.
const Placeholder = "[REDACTED]"

// keyValueKeys are keys whose "key=value" or "key: value" assignments are
// redacted wherever they appear.
var keyValueKeys = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"access_key", "private_key", "authorization", "bearer",
}

// valuePatterns catch bare credential shapes without a key prefix.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),                                              // AWS access key id
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`),                                         // provider API keys
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),                                    // GitHub tokens
	regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{20,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\b`), // JWT
}

var keyValueRe = buildKeyValueRe()

func buildKeyValueRe() *regexp.Regexp {
	quoted := make([]string, len(keyValueKeys))
	for i, k := range keyValueKeys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)(\s*[=:]\s*)(\S+)`)
}

// RedactText replaces secret-looking values in text with the placeholder.
func RedactText(text string) string {
	if text == "" {
		return text
	}
	out := keyValueRe.ReplaceAllString(text, "${1}${2}"+Placeholder)
	for _, re := range valuePatterns {
		out = re.ReplaceAllString(out, Placeholder)
	}
	return out
}
