package agent

import (
	"errors"
	"strings"
)

var ErrNoQueryFound = errors.New("no fenced query block found")

const fence = "```"

type scanState int

const (
	stateOutside scanState = iota
	stateHint
	stateInside
)

// Statement keywords directly after the opening fence are query text, never a
// language hint.
var statementKeywords = map[string]struct{}{
	"select":   {},
	"with":     {},
	"show":     {},
	"describe": {},
	"desc":     {},
	"explain":  {},
	"insert":   {},
	"update":   {},
	"delete":   {},
	"replace":  {},
	"create":   {},
	"drop":     {},
	"alter":    {},
}

// Known dialect hints may also end inline, before a space or the closing fence.
var dialectHints = map[string]struct{}{
	"sql":        {},
	"mysql":      {},
	"postgresql": {},
	"postgres":   {},
	"pgsql":      {},
	"psql":       {},
	"duckdb":     {},
	"sqlite":     {},
}

// ExtractQuery returns the trimmed interior of the first complete fenced
// block in raw. An optional language hint after the opening fence is
// dropped. Unterminated or empty blocks yield ErrNoQueryFound.
func ExtractQuery(raw string) (string, error) {
	state := stateOutside
	bodyStart := 0
	for i := 0; i < len(raw); {
		switch state {
		case stateOutside:
			if strings.HasPrefix(raw[i:], fence) {
				i += len(fence)
				state = stateHint
				continue
			}
			i++
		case stateHint:
			i += hintLength(raw[i:])
			bodyStart = i
			state = stateInside
		case stateInside:
			if strings.HasPrefix(raw[i:], fence) {
				body := strings.TrimSpace(raw[bodyStart:i])
				if body == "" {
					return "", ErrNoQueryFound
				}
				return body, nil
			}
			i++
		}
	}
	return "", ErrNoQueryFound
}

// hintLength reports how many bytes of s form a language hint, including its
// terminating newline, or 0 when s does not start with one. Dialect hints also
// end at inline whitespace or the closing fence.
func hintLength(s string) int {
	n := 0
	for n < len(s) && isHintByte(s[n]) {
		n++
	}
	if n == 0 {
		return 0
	}
	word := strings.ToLower(s[:n])
	if _, ok := statementKeywords[word]; ok {
		return 0
	}
	end := n
	for end < len(s) && (s[end] == ' ' || s[end] == '\t' || s[end] == '\r') {
		end++
	}
	if end < len(s) && s[end] == '\n' {
		return end + 1
	}
	if _, ok := dialectHints[word]; ok && (end > n || strings.HasPrefix(s[n:], fence)) {
		return end
	}
	return 0
}

func isHintByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '+', c == '-', c == '.':
		return true
	}
	return false
}
