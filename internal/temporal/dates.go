// Package temporal turns free-form scheduling text into calendar dates,
// clock times, and timezone names, and validates candidate start times
// against the business-hours rules. All functions are pure; the reference
// "now" is always passed in as UTC.
package temporal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"thur":      time.Thursday,
	"thurs":     time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

const monthPattern = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t)?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	monthDayRe = regexp.MustCompile(`(?i)\b(` + monthPattern + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthPattern + `)\b`)
	weekdayRe  = regexp.MustCompile(`(?i)\b(next\s+)?(mon(?:day)?|tue(?:s|sday)?|wed(?:nesday)?|thu(?:r|rs|rsday)?|fri(?:day)?|sat(?:urday)?|sun(?:day)?)\b`)
)

const dateLayout = "2006-01-02"

// ParseDate extracts a calendar date from text relative to nowUTC.
// Patterns are tried in a fixed precedence: explicit ISO date, then
// today/tomorrow, then "<Month> <day>", then "<day> <Month>", then
// "[next] <Weekday>". Returns "" when no pattern matches.
func ParseDate(text string, nowUTC time.Time) string {
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	today := truncateToDay(nowUTC)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "today") {
		return today.Format(dateLayout)
	}
	if strings.Contains(lower, "tomorrow") {
		return today.AddDate(0, 0, 1).Format(dateLayout)
	}

	if date := parseMonthDay(text, today); date != "" {
		return date
	}
	if date := parseDayMonth(text, today); date != "" {
		return date
	}
	return parseWeekday(text, today)
}

func parseMonthDay(text string, today time.Time) string {
	m := monthDayRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return ""
	}
	return rollForwardDate(months[strings.ToLower(m[1])], day, today)
}

func parseDayMonth(text string, today time.Time) string {
	m := dayMonthRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	return rollForwardDate(months[strings.ToLower(m[2])], day, today)
}

// rollForwardDate resolves a month-day pair at the current year, moving to
// next year when the result would already be in the past.
func rollForwardDate(month time.Month, day int, today time.Time) string {
	if month == 0 {
		return ""
	}
	candidate, ok := calendarDate(today.Year(), month, day)
	if !ok {
		return ""
	}
	if candidate.Before(today) {
		candidate, ok = calendarDate(today.Year()+1, month, day)
		if !ok {
			return ""
		}
	}
	return candidate.Format(dateLayout)
}

func parseWeekday(text string, today time.Time) string {
	m := weekdayRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	target, ok := weekdays[strings.ToLower(m[2])]
	if !ok {
		return ""
	}

	delta := (int(target) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		// A bare weekday name never means today.
		delta = 7
	}
	// "next <weekday>" skips the nearest occurrence and picks the one after.
	if m[1] != "" && delta < 7 {
		delta += 7
	}
	return today.AddDate(0, 0, delta).Format(dateLayout)
}

// calendarDate builds a UTC date and rejects day-of-month overflow
// (time.Date would silently normalize Feb 30 into March).
func calendarDate(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseError reports a date/time string that could not be interpreted.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("temporal: cannot parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
