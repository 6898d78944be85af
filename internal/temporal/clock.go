package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	clock24Re = regexp.MustCompile(`\b((?:[01]\d|2[0-3])):([0-5]\d)\b`)
	clock12Re = regexp.MustCompile(`(?i)\b(1[0-2]|0?[1-9])(?::([0-5]\d))?\s*(am|pm)\b`)
)

// ParseClock extracts a 24-hour "HH:MM" clock time from text. An explicit
// 24-hour time takes precedence over the 12-hour am/pm form; minutes in the
// 12-hour form default to 00. Returns "" when nothing matches.
func ParseClock(text string) string {
	if m := clock24Re.FindStringSubmatch(text); m != nil {
		return m[1] + ":" + m[2]
	}

	m := clock12Re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
