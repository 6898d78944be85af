package temporal

import (
	"regexp"
	"strings"
	"time"
)

var (
	tzTokenRe = regexp.MustCompile(`\b([A-Za-z]+/[A-Za-z_]+)\b`)
	ukRe      = regexp.MustCompile(`\buk\b`)
	utcRe     = regexp.MustCompile(`(?i)\bUTC\b`)
	gmtRe     = regexp.MustCompile(`(?i)\bGMT\b`)
)

// ParseTimezone extracts a timezone name from text. An explicit Area/City
// token wins; otherwise a few common phrasings are aliased to IANA names,
// and a literal UTC/GMT maps to "UTC". Returns "" when nothing matches.
// Candidates are not validated here; see ValidTimezone.
func ParseTimezone(text string) string {
	if m := tzTokenRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "london") && (strings.Contains(lower, "united kingdom") || ukRe.MatchString(lower)) {
		return "Europe/London"
	}
	if strings.Contains(lower, "new york") {
		return "America/New_York"
	}

	if utcRe.MatchString(text) || gmtRe.MatchString(text) {
		return "UTC"
	}
	return ""
}

// ValidTimezone reports whether name resolves in the system timezone database.
func ValidTimezone(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// location resolves a timezone name, falling back to UTC when the name is
// empty or unknown.
func location(name string) (*time.Location, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, name
}
