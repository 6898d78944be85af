package temporal

import (
	"context"
	"time"
)

// SlotDuration is the fixed appointment length.
const SlotDuration = time.Hour

// alternativeSearchSteps bounds the forward search to 3 days of hourly steps.
const alternativeSearchSteps = 72

// WithinBusinessRules validates an appointment start against the booking
// rules, evaluated in UTC: Monday through Friday, on the hour, with the
// latest valid start at 16:00 so a one-hour slot ends by 17:00.
func WithinBusinessRules(startUTC time.Time) bool {
	t := startUTC.UTC()
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if t.Minute() != 0 {
		return false
	}
	return t.Hour() >= 9 && t.Hour() <= 16
}

// ResolveLocalStart combines a date string and a clock string under the
// named timezone into a zoned start instant. An empty or unknown timezone
// silently resolves to UTC; malformed date or clock strings are an error.
// The returned name is the zone the instant was actually resolved in.
func ResolveLocalStart(date, clock, timezone string) (time.Time, string, error) {
	loc, name := location(timezone)

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, "", &ParseError{Field: "date", Value: date, Err: err}
	}
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, "", &ParseError{Field: "time", Value: clock, Err: err}
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc)
	return start, name, nil
}

// TakenFunc reports whether an absolute start instant is already booked.
type TakenFunc func(ctx context.Context, startUTC time.Time) (bool, error)

// FindAlternatives walks forward from a conflicting start in fixed one-hour
// UTC increments, skipping instants that fail the business rules or that the
// predicate reports as taken, and returns up to limit accepted instants
// converted to the display timezone. The search is bounded; fewer results
// than limit (including none) is not an error. A predicate error aborts the
// search.
func FindAlternatives(ctx context.Context, taken TakenFunc, startUTC time.Time, displayTimezone string, limit int) ([]time.Time, error) {
	loc, _ := location(displayTimezone)
	cursor := startUTC.UTC()

	var out []time.Time
	for i := 0; i < alternativeSearchSteps && len(out) < limit; i++ {
		cursor = cursor.Add(SlotDuration)
		if !WithinBusinessRules(cursor) {
			continue
		}
		booked, err := taken(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if booked {
			continue
		}
		out = append(out, cursor.In(loc))
	}
	return out, nil
}
