package anvil

import (
	"regexp"
)

// DefaultRedactPattern matches long hexadecimal strings resembling private
// keys. Anvil prints funded account keys on startup, so everything captured
// from the process streams goes through this before reaching any sink.
const DefaultRedactPattern = `(0x)?[0-9a-fA-F]{64}`

const (
	redactedPlaceholder = "[redacted]"
	suppressedLine      = "[output line suppressed: redaction failed]"
)

// Redactor applies a line-oriented secret-masking transform to captured
// process output. The pattern is injectable policy, not a hardcoded literal.
type Redactor struct {
	pattern *regexp.Regexp
}

// NewRedactor compiles a redactor for the given pattern. An empty pattern
// falls back to DefaultRedactPattern.
func NewRedactor(pattern string) (*Redactor, error) {
	if pattern == "" {
		pattern = DefaultRedactPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Redactor{pattern: re}, nil
}

// RedactLine masks every pattern match in the line. A redaction failure must
// never propagate: if scanning panics, the whole line is suppressed rather
// than leaked.
func (r *Redactor) RedactLine(line string) (out string) {
	defer func() {
		if recover() != nil {
			out = suppressedLine
		}
	}()
	return r.pattern.ReplaceAllString(line, redactedPlaceholder)
}
