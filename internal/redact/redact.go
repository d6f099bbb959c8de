// Package redact removes credentials, SQL and file system details from
// strings before they are logged or written into an error response.
// Database drivers and the config loader include such details in their
// error messages.
package redact

import "regexp"

// Placeholders substituted for redacted fragments
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	PathPlaceholder       = "[REDACTED_PATH]"
)

// rule replaces every match of pattern with replacement, which may refer to
// capture groups.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// rules run in order; earlier rules may shape what later ones see.
var rules = []rule{
	// userinfo of a connection URL
	{
		pattern:     regexp.MustCompile(`(?i)\b(postgres(?:ql)?|pgx)://[^\s@/]+@`),
		replacement: "${1}://" + CredentialPlaceholder + "@",
	},
	// password in a key/value DSN or query string
	{
		pattern:     regexp.MustCompile(`(?i)\b(password|passwd|pwd)=[^\s&]+`),
		replacement: "${1}=" + CredentialPlaceholder,
	},
	// statement text up to the first table reference
	{
		pattern:     regexp.MustCompile(`(?i)\b(?:SELECT|INSERT|UPDATE|DELETE)\s[^;\n]*?\b(?:FROM|INTO|SET|WHERE)\s+\w+`),
		replacement: SQLPlaceholder,
	},
	// absolute paths with at least three segments
	{
		pattern:     regexp.MustCompile(`(?:/[\w.-]+){3,}`),
		replacement: PathPlaceholder,
	},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
