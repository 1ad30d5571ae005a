package sandbox

import (
	"os"
	"strings"
)

// DefaultPath is forced into every sandboxed environment unless the caller
// overrides PATH explicitly.
const DefaultPath = "/usr/local/bin:/usr/bin:/bin"

// inheritedVars are the only ambient variables carried into the sandbox,
// and then only after the secret-name filters pass.
var inheritedVars = []string{
	"HOME", "USER", "LOGNAME", "LANG", "LC_ALL", "TZ",
	"TMPDIR", "TERM",
}

// secretSuffixes match variable names that hold credentials.
var secretSuffixes = []string{"_KEY", "_TOKEN", "_SECRET", "_PASSWORD"}

// providerPrefixes match variables belonging to AI/cloud providers; none of
// them have any business inside a sandboxed child process.
var providerPrefixes = []string{
	"ANTHROPIC_", "OPENAI_", "GOOGLE_", "GEMINI_", "MISTRAL_",
	"AWS_", "AZURE_", "GCP_", "HF_", "COHERE_",
}

// isSecretName reports whether a variable name must never be inherited.
func isSecretName(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range secretSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	for _, prefix := range providerPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// buildEnvironment constructs the explicit environment map for one
// execution: minimal base, filtered inherited variables, then caller
// overrides, which take precedence over every default including PATH.
// The ambient process environment is never mutated.
func buildEnvironment(extra map[string]string) map[string]string {
	env := map[string]string{"PATH": DefaultPath}

	for _, name := range inheritedVars {
		if isSecretName(name) {
			continue
		}
		if value, ok := os.LookupEnv(name); ok {
			env[name] = value
		}
	}

	for name, value := range extra {
		if name == "" {
			continue
		}
		env[name] = value
	}
	return env
}

// flattenEnvironment renders the map into the KEY=VALUE slice process
// creation wants.
func flattenEnvironment(env map[string]string) []string {
	flat := make([]string, 0, len(env))
	for name, value := range env {
		flat = append(flat, name+"="+value)
	}
	return flat
}
