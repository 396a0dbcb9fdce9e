package agent

import (
	"errors"
	"strings"
)

var ErrStatementNotAllowed = errors.New("only read-only statements are allowed")

var readOnlyPrefixes = []string{"select", "with", "show", "describe", "desc", "explain"}

// ReadOnlyGuard rejects anything but a single read-only statement.
func ReadOnlyGuard(sqlText string) error {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	for strings.HasSuffix(normalized, ";") {
		normalized = strings.TrimSpace(strings.TrimSuffix(normalized, ";"))
	}
	if normalized == "" || strings.Contains(normalized, ";") {
		return ErrStatementNotAllowed
	}
	for _, prefix := range readOnlyPrefixes {
		if !strings.HasPrefix(normalized, prefix) {
			continue
		}
		rest := normalized[len(prefix):]
		if rest == "" || !isHintByte(rest[0]) {
			return nil
		}
	}
	return ErrStatementNotAllowed
}
