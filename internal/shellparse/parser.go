// Package shellparse implements the hand-written shell command parser used
// by the permission engine. It tokenizes and structurally decomposes a raw
// command string into one or more ParsedCommand values, handling quoting,
// escaping, chaining, piping, redirects, and a sudo prefix.
//
// This is deliberately not a POSIX shell interpreter. It performs no
// variable expansion, globbing, or command substitution; those constructs
// are detected on the raw string and the permission engine fails closed on
// them instead of emulating them.
package shellparse

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions
var (
	// ErrUnterminatedQuote is returned when a quoted span is never closed.
	// The permission engine treats this as a parse failure and denies.
	ErrUnterminatedQuote = errors.New("unterminated quote")

	// ErrTrailingEscape is returned when the input ends with a dangling
	// backslash outside single quotes.
	ErrTrailingEscape = errors.New("trailing escape character")
)

// ParsedCommand is one simple command: no pipes or chaining within it.
// Commands downstream of it in a pipe chain appear in Pipes; a command
// chain (";", "&&", "||") yields independent ParsedCommand roots instead.
type ParsedCommand struct {
	// Binary is the resolved executable name, with any sudo prefix
	// stripped and recorded in HasSudo.
	Binary string

	// Args are the positional arguments. Redirect targets are excluded.
	Args []string

	// Raw is the exact source substring this value was parsed from, used
	// for pattern re-matching and logging.
	Raw string

	// Pipes holds the commands downstream of this one in a pipe chain,
	// in order. Chaining never nests here.
	Pipes []*ParsedCommand

	HasRedirects bool
	HasSudo      bool
}

// redirectOps are the recognized redirect operators, longest first so that
// prefix classification never mistakes "2>&1" for "2>" or ">>" for ">".
var redirectOps = []string{"2>&1", "2>", ">>", "&>", ">", "<"}

// Parse decomposes a raw command string into its chain of root commands.
// Empty or whitespace-only input yields an empty slice, never an error.
func Parse(raw string) ([]*ParsedCommand, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	segments, err := splitChain(raw)
	if err != nil {
		return nil, err
	}

	var roots []*ParsedCommand
	for _, segment := range segments {
		stages, err := splitPipes(segment)
		if err != nil {
			return nil, err
		}

		var root *ParsedCommand
		for _, stage := range stages {
			cmd, err := parseSimple(stage)
			if err != nil {
				return nil, err
			}
			if cmd == nil {
				// Whitespace-only stage; dropped, not emitted empty.
				continue
			}
			if root == nil {
				root = cmd
				continue
			}
			root.Pipes = append(root.Pipes, cmd)
			// Sudo and redirect risk propagate upward through a pipeline.
			root.HasSudo = root.HasSudo || cmd.HasSudo
			root.HasRedirects = root.HasRedirects || cmd.HasRedirects
		}
		if root != nil {
			roots = append(roots, root)
		}
	}
	return roots, nil
}

// Flatten returns every command in the parse result, including all pipe
// stages, in source order. The permission engine matches dangerous patterns
// against this list as well as the original raw string.
func Flatten(cmds []*ParsedCommand) []*ParsedCommand {
	var flat []*ParsedCommand
	for _, cmd := range cmds {
		flat = append(flat, cmd)
		flat = append(flat, cmd.Pipes...)
	}
	return flat
}

// quoteState tracks the mutually exclusive scanner states required by the
// chain and pipe splitters: single-quote, double-quote, pending escape, and
// subshell parenthesis depth.
type quoteState struct {
	inSingle   bool
	inDouble   bool
	escaped    bool
	parenDepth int
}

// step advances the state over one byte and reports whether the byte was
// consumed by quote/escape bookkeeping. Double-quote toggling is ignored
// inside single quotes and vice versa.
func (s *quoteState) step(c byte) {
	if s.escaped {
		s.escaped = false
		return
	}
	switch c {
	case '\\':
		if !s.inSingle {
			s.escaped = true
		}
	case '\'':
		if !s.inDouble {
			s.inSingle = !s.inSingle
		}
	case '"':
		if !s.inSingle {
			s.inDouble = !s.inDouble
		}
	case '(':
		if !s.inSingle && !s.inDouble {
			s.parenDepth++
		}
	case ')':
		if !s.inSingle && !s.inDouble && s.parenDepth > 0 {
			s.parenDepth--
		}
	}
}

// splittable reports whether a chain or pipe operator at the current
// position is structural. Operators inside quotes or subshells are text.
func (s *quoteState) splittable() bool {
	return !s.inSingle && !s.inDouble && !s.escaped && s.parenDepth == 0
}

// splitChain splits raw on ";", "&&", and "||" at the top level. Subshell
// contents are never split on.
func splitChain(raw string) ([]string, error) {
	var (
		segments []string
		state    quoteState
		start    int
	)

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if state.splittable() {
			switch {
			case c == ';':
				segments = appendSegment(segments, raw[start:i])
				start = i + 1
				continue
			case c == '&' && i+1 < len(raw) && raw[i+1] == '&',
				c == '|' && i+1 < len(raw) && raw[i+1] == '|':
				segments = appendSegment(segments, raw[start:i])
				start = i + 2
				i++
				continue
			}
		}
		state.step(c)
	}
	if state.inSingle || state.inDouble {
		return nil, fmt.Errorf("%w in %q", ErrUnterminatedQuote, raw)
	}
	segments = appendSegment(segments, raw[start:])
	return segments, nil
}

// splitPipes splits a chain segment on single "|" operators. A "||" is a
// chain operator and never splits here; the lookahead guards against
// treating its first byte as a pipe.
func splitPipes(segment string) ([]string, error) {
	var (
		stages []string
		state  quoteState
		start  int
	)

	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if c == '|' && state.splittable() {
			next := byte(0)
			if i+1 < len(segment) {
				next = segment[i+1]
			}
			prev := byte(0)
			if i > 0 {
				prev = segment[i-1]
			}
			if next != '|' && prev != '|' {
				stages = appendSegment(stages, segment[start:i])
				start = i + 1
				continue
			}
		}
		state.step(c)
	}
	if state.inSingle || state.inDouble {
		return nil, fmt.Errorf("%w in %q", ErrUnterminatedQuote, segment)
	}
	stages = appendSegment(stages, segment[start:])
	return stages, nil
}

// appendSegment appends the trimmed segment, dropping whitespace-only ones.
func appendSegment(segments []string, segment string) []string {
	if strings.TrimSpace(segment) == "" {
		return segments
	}
	return append(segments, segment)
}

// tokenize splits a simple command into whitespace-delimited tokens. Quoted
// spans become single tokens with the quote characters stripped. A backslash
// inside unquoted or double-quoted text yields the following character
// literally; inside single quotes no escape processing occurs.
func tokenize(segment string) ([]string, error) {
	var (
		tokens   []string
		current  strings.Builder
		inToken  bool
		inSingle bool
		inDouble bool
	)

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	for i := 0; i < len(segment); i++ {
		c := segment[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			} else {
				current.WriteByte(c)
			}
		case c == '\\':
			if i+1 >= len(segment) {
				return nil, fmt.Errorf("%w in %q", ErrTrailingEscape, segment)
			}
			i++
			current.WriteByte(segment[i])
			inToken = true
		case inDouble:
			if c == '"' {
				inDouble = false
			} else {
				current.WriteByte(c)
			}
		case c == '\'':
			inSingle = true
			inToken = true
		case c == '"':
			inDouble = true
			inToken = true
		case c == ' ' || c == '\t' || c == '\n':
			flush()
		default:
			current.WriteByte(c)
			inToken = true
		}
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("%w in %q", ErrUnterminatedQuote, segment)
	}
	flush()
	return tokens, nil
}

// parseSimple parses one piped segment into a ParsedCommand. A segment that
// tokenizes to nothing yields nil.
func parseSimple(segment string) (*ParsedCommand, error) {
	tokens, err := tokenize(segment)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	cmd := &ParsedCommand{Raw: strings.TrimSpace(segment)}

	idx := 0
	if tokens[idx] == "sudo" {
		cmd.HasSudo = true
		idx++
	}
	if idx >= len(tokens) {
		// Bare "sudo" with nothing to run.
		cmd.Binary = "sudo"
		return cmd, nil
	}
	cmd.Binary = tokens[idx]
	idx++

	for ; idx < len(tokens); idx++ {
		token := tokens[idx]
		op := redirectPrefix(token)
		if op == "" {
			cmd.Args = append(cmd.Args, token)
			continue
		}
		cmd.HasRedirects = true
		// A bare operator consumes the following token as its target;
		// "2>&1" is self-contained and an operator with an attached
		// target ("2>/dev/null") already carries it.
		if token == op && op != "2>&1" && idx+1 < len(tokens) {
			idx++
		}
	}
	return cmd, nil
}

// redirectPrefix returns the redirect operator the token begins with, or ""
// if the token is an ordinary argument.
func redirectPrefix(token string) string {
	for _, op := range redirectOps {
		if strings.HasPrefix(token, op) {
			return op
		}
	}
	return ""
}
