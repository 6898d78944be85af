package temporal

import (
	"testing"
	"time"
)

// 2026-03-11 is a Wednesday.
var now = time.Date(2026, time.March, 11, 12, 30, 0, 0, time.UTC)

func TestParseDatePrecedence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"explicit iso wins", "book me on 2026-05-01, or maybe tomorrow", "2026-05-01"},
		{"today", "can I come in today?", "2026-03-11"},
		{"tomorrow", "Tomorrow works best", "2026-03-12"},
		{"month day future", "how about March 20", "2026-03-20"},
		{"month day with ordinal", "the 3rd slot on March 20th please", "2026-03-20"},
		{"month day past rolls a year", "Feb 15 would be great", "2027-02-15"},
		{"day month", "15 Feb in the afternoon", "2027-02-15"},
		{"day month abbreviated", "maybe 2 Sept?", "2026-09-02"},
		{"weekday", "thursday morning", "2026-03-12"},
		{"weekday same as today is a week out", "Wednesday please", "2026-03-18"},
		{"next weekday skips nearest", "next thursday", "2026-03-19"},
		{"next weekday on same weekday", "next wednesday", "2026-03-18"},
		{"weekday abbreviation", "tues would suit me", "2026-03-17"},
		{"invalid day of month", "Feb 30 ideally", ""},
		{"nothing", "hello there", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDate(tt.text, now); got != tt.want {
				t.Errorf("ParseDate(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseDatePastMonthDayAlwaysRollsForward(t *testing.T) {
	// Every month-day strictly before "now" must land exactly one year out.
	for _, text := range []string{"Jan 2", "January 2nd", "2 Jan", "Mar 10"} {
		got := ParseDate(text, now)
		if got == "" {
			t.Fatalf("ParseDate(%q) returned nothing", text)
		}
		parsed, err := time.Parse(dateLayout, got)
		if err != nil {
			t.Fatalf("ParseDate(%q) = %q, not a date: %v", text, got, err)
		}
		if parsed.Year() != now.Year()+1 {
			t.Errorf("ParseDate(%q) = %q, want year %d", text, got, now.Year()+1)
		}
	}
}

func TestParseDateWeekdayNeverToday(t *testing.T) {
	for wd := 0; wd < 7; wd++ {
		day := now.AddDate(0, 0, wd)
		name := day.Weekday().String()
		got := ParseDate(name, day)
		if got == "" {
			t.Fatalf("ParseDate(%q) returned nothing", name)
		}
		want := truncateToDay(day).AddDate(0, 0, 7).Format(dateLayout)
		if got != want {
			t.Errorf("ParseDate(%q) on a %s = %q, want %q (7 days out)", name, name, got, want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"at 15:00 sharp", "15:00"},
		{"09:30 works", "09:30"},
		{"24-hour beats 12-hour: 14:00 or 3pm", "14:00"},
		{"3pm", "15:00"},
		{"3:45pm", "15:45"},
		{"9 AM", "09:00"},
		{"12am", "00:00"},
		{"12pm", "12:00"},
		{"12:15 AM", "00:15"},
		{"no time here", ""},
	}

	for _, tt := range tests {
		if got := ParseClock(tt.text); got != tt.want {
			t.Errorf("ParseClock(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestParseTimezone(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"book me in America/New_York", "America/New_York"},
		{"I'm in london, uk", "Europe/London"},
		{"london, united kingdom", "Europe/London"},
		{"london", ""},
		{"calling from new york", "America/New_York"},
		{"times in utc please", "UTC"},
		{"gmt is fine", "UTC"},
		{"no zone at all", ""},
	}

	for _, tt := range tests {
		if got := ParseTimezone(tt.text); got != tt.want {
			t.Errorf("ParseTimezone(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestValidTimezone(t *testing.T) {
	if !ValidTimezone("America/New_York") || !ValidTimezone("UTC") {
		t.Error("expected known zones to validate")
	}
	if ValidTimezone("Mars/Colony") || ValidTimezone("") || ValidTimezone("  ") {
		t.Error("expected unknown zones to be rejected")
	}
}
