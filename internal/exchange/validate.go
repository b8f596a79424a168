package exchange

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"dapbuddy/backend/internal/config"
	"dapbuddy/backend/internal/models"
)

// contactDenylist catches attempts to move the hand-off out of the
// platform through free-text fields. Fixed list, checked case-insensitively.
var contactDenylist = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhats\s?app\b`),
	regexp.MustCompile(`(?i)\btelegram\b`),
	regexp.MustCompile(`(?i)\bt\.me/`),
	regexp.MustCompile(`(?i)\bcall\s+me\b`),
	regexp.MustCompile(`(?i)\bdm\s+me\b`),
	regexp.MustCompile(`\+?\d[\d\s().-]{8,}\d`), // phone-number shaped runs
}

// linkField reports whether a field name is link-shaped and therefore must
// hold an absolute URL.
func linkField(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "link") || strings.Contains(lower, "url")
}

// allowedRune keeps free-text values to a conservative character set:
// printable text without control characters.
func allowedRune(r rune) bool {
	if r == '\n' || r == '\t' {
		return true
	}
	return unicode.IsPrint(r)
}

// ValidateDetails checks a sendDetails payload against the service rule.
// Every failing field is reported; a non-nil result means the payload must
// be rejected with no state change and no log entry.
func ValidateDetails(rule *ServiceRule, details models.JoiningDetails) *ValidationError {
	verr := &ValidationError{}

	for _, field := range rule.RequiredFields {
		if strings.TrimSpace(details[field]) == "" {
			verr.add(field, "field is required")
		}
	}

	for field, value := range details {
		if strings.TrimSpace(value) == "" {
			// Required-field emptiness is already reported above; an empty
			// optional field is simply dropped by the caller.
			continue
		}
		if len(value) > config.MaxFieldValueLength {
			verr.add(field, "value too long")
			continue
		}
		for _, r := range value {
			if !allowedRune(r) {
				verr.add(field, "value contains forbidden characters")
				break
			}
		}

		if linkField(field) {
			if msg := checkLink(rule, field, value); msg != "" {
				verr.add(field, msg)
			}
			continue
		}

		// Sensitive values are opaque secrets; everything else is free
		// text and must not solicit off-platform contact.
		if !models.IsSensitiveField(field) {
			for _, pattern := range contactDenylist {
				if pattern.MatchString(value) {
					verr.add(field, "contact solicitation is not allowed")
					break
				}
			}
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

func checkLink(rule *ServiceRule, field, value string) string {
	u, err := url.Parse(value)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "must be an absolute URL"
	}
	if u.Scheme != "https" {
		return "must use https"
	}
	if pattern, ok := rule.LinkPatterns[field]; ok && !pattern.MatchString(value) {
		return "link does not match the expected format for this service"
	}
	return ""
}
