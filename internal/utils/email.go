package utils

import (
	"regexp"
	"strings"
)

var subjectPrefixRe = regexp.MustCompile(`(?i)^((re|fwd|fw|aw|ant|sv|vs)(\s*\[\d+\])?\s*:\s*)+`)

// NormalizeSubject strips reply/forward prefixes (including the Scandinavian
// SV:/VS: variants) so subject comparisons survive long reply chains.
func NormalizeSubject(subject string) string {
	normalized := subjectPrefixRe.ReplaceAllString(subject, "")
	return strings.TrimSpace(normalized)
}

func UniqueEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	unique := make([]string, 0, len(emails))

	for _, email := range emails {
		if _, exists := seen[email]; !exists {
			seen[email] = struct{}{}
			unique = append(unique, email)
		}
	}

	return unique
}

// ExtractDomainFromEmail returns the lower-cased domain part of an address,
// tolerating "Name <addr@domain>" forms.
func ExtractDomainFromEmail(email string) string {
	if email == "" {
		return ""
	}

	email = strings.TrimSpace(email)

	if strings.Contains(email, "<") && strings.Contains(email, ">") {
		startIdx := strings.LastIndex(email, "<") + 1
		endIdx := strings.LastIndex(email, ">")
		if startIdx > 0 && endIdx > startIdx {
			email = email[startIdx:endIdx]
		}
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(parts[1]))
}
