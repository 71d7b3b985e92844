package pipeline

import (
	"fmt"
	"strings"
)

// deniedKeywords are rejected anywhere in the text, even inside identifiers.
// This is a coarse substring gate, not a parser; a column named updated_at
// will be rejected, and that is the accepted trade-off.
var deniedKeywords = []string{"DROP", "DELETE", "UPDATE", "ALTER", "TRUNCATE", "INSERT"}

// Validate enforces the read-only, comment-free gate on every SQL text
// offered for execution, including post-repair rewrites.
func Validate(sqlText string) error {
	upper := strings.ToUpper(sqlText)
	for _, keyword := range deniedKeywords {
		if strings.Contains(upper, keyword) {
			return &ValidationError{Reason: fmt.Sprintf("dangerous operation found: %s, query rejected", keyword)}
		}
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT") {
		return &ValidationError{Reason: "query must start with SELECT"}
	}
	if strings.Contains(sqlText, "--") {
		return &ValidationError{Reason: "SQL contains line comments (--)"}
	}
	if strings.Contains(sqlText, "/*") || strings.Contains(sqlText, "*/") {
		return &ValidationError{Reason: "SQL contains block comment markers"}
	}
	return nil
}
