// Package dateparse turns natural-language or absolute date expressions into
// UTC timestamps, and projects recurring tasks forward to their next due date.
package dateparse

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of a parse attempt. Failures are values, not errors:
// callers branch on OK and surface Err as a diagnostic.
type Result struct {
	OK       bool
	Date     *time.Time
	Original string
	Err      string
}

// Day names indexed Monday=0, matching the weekday grammar.
var dayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	inRe          = regexp.MustCompile(`^in\s+(\d+)\s+(day|days|week|weeks|month|months)$`)
	agoRe         = regexp.MustCompile(`^(\d+)\s+(day|days|week|weeks|month|months)\s+ago$`)
	nextDayRe     = regexp.MustCompile(`^next\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	thisDayRe     = regexp.MustCompile(`^this\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	onDayRe       = regexp.MustCompile(`^on\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	bareDayRe     = regexp.MustCompile(`^(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	isoDateRe     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	usDateRe      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	monthDayYrRe  = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2}),?\s+(\d{4})$`)
	dayMonthYrRe  = regexp.MustCompile(`^(\d{1,2})\s+([a-z]+)\s+(\d{4})$`)
	monthDayRe    = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2})$`)
	isoDateTimeRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})[T\s](\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	atTimeRe      = regexp.MustCompile(`^(.+?)\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

// Parse interprets text relative to ref. Attempts run in strict priority
// order: date-with-time, relative, weekday, absolute calendar date. All
// results are stamped UTC.
func Parse(text string, ref time.Time) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{OK: false, Original: text, Err: "empty date text"}
	}

	ref = ref.UTC()

	parsed := parseDateTimeWithTime(trimmed, ref)
	if parsed == nil {
		parsed = parseRelative(trimmed, ref)
	}
	if parsed == nil {
		parsed = parseWeekday(trimmed, ref)
	}
	if parsed == nil {
		parsed = parseAbsolute(trimmed, ref)
	}

	if parsed == nil {
		return Result{
			OK:       false,
			Original: text,
			Err:      fmt.Sprintf("could not parse %q as a date", trimmed),
		}
	}

	utc := parsed.UTC()
	return Result{OK: true, Date: &utc, Original: text}
}

// pyWeekday maps a weekday onto the Monday=0..Sunday=6 scale.
func pyWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// nextWeekday returns the next occurrence of a target weekday.
func nextWeekday(ref time.Time, target int, includeToday bool) time.Time {
	daysAhead := target - pyWeekday(ref)
	if includeToday {
		if daysAhead < 0 {
			daysAhead += 7
		}
	} else {
		if daysAhead <= 0 {
			daysAhead += 7
		}
	}
	return ref.AddDate(0, 0, daysAhead)
}

func parseRelative(text string, ref time.Time) *time.Time {
	lower := strings.ToLower(strings.TrimSpace(text))

	switch lower {
	case "today", "now":
		return &ref
	case "tomorrow":
		d := ref.AddDate(0, 0, 1)
		return &d
	case "yesterday":
		d := ref.AddDate(0, 0, -1)
		return &d
	case "next week":
		d := ref.AddDate(0, 0, 7)
		return &d
	case "next month":
		// Relative month arithmetic approximates a month as 30 days.
		d := ref.AddDate(0, 0, 30)
		return &d
	case "this week":
		d := ref.AddDate(0, 0, -pyWeekday(ref))
		return &d
	}

	if m := inRe.FindStringSubmatch(lower); m != nil {
		amount, _ := strconv.Atoi(m[1])
		d := ref.AddDate(0, 0, amount*unitDays(m[2]))
		return &d
	}

	if m := agoRe.FindStringSubmatch(lower); m != nil {
		amount, _ := strconv.Atoi(m[1])
		d := ref.AddDate(0, 0, -amount*unitDays(m[2]))
		return &d
	}

	return nil
}

func unitDays(unit string) int {
	switch {
	case strings.HasPrefix(unit, "day"):
		return 1
	case strings.HasPrefix(unit, "week"):
		return 7
	default: // month
		return 30
	}
}

func parseWeekday(text string, ref time.Time) *time.Time {
	lower := strings.ToLower(strings.TrimSpace(text))

	// "next <day>" is always next week's occurrence, even when today matches.
	if m := nextDayRe.FindStringSubmatch(lower); m != nil {
		d := nextWeekday(ref, dayIndex(m[1]), false)
		return &d
	}

	// "this <day>" is this calendar week's occurrence; it may be in the past.
	if m := thisDayRe.FindStringSubmatch(lower); m != nil {
		d := ref.AddDate(0, 0, dayIndex(m[1])-pyWeekday(ref))
		return &d
	}

	// "on <day>" and a bare day name mean the next occurrence including today.
	if m := onDayRe.FindStringSubmatch(lower); m != nil {
		d := nextWeekday(ref, dayIndex(m[1]), true)
		return &d
	}

	if m := bareDayRe.FindStringSubmatch(lower); m != nil {
		d := nextWeekday(ref, dayIndex(m[1]), true)
		return &d
	}

	return nil
}

func dayIndex(name string) int {
	for i, n := range dayNames {
		if n == name {
			return i
		}
	}
	return 0
}

// makeDate builds a UTC midnight date, rejecting impossible calendar days.
func makeDate(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return nil
	}
	return &d
}

func parseAbsolute(text string, ref time.Time) *time.Time {
	trimmed := strings.TrimSpace(text)

	if m := isoDateRe.FindStringSubmatch(trimmed); m != nil {
		return makeDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]))
	}

	if m := usDateRe.FindStringSubmatch(trimmed); m != nil {
		return makeDate(atoi(m[3]), time.Month(atoi(m[1])), atoi(m[2]))
	}

	lower := strings.ToLower(trimmed)

	if m := monthDayYrRe.FindStringSubmatch(lower); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			return makeDate(atoi(m[3]), month, atoi(m[2]))
		}
	}

	if m := dayMonthYrRe.FindStringSubmatch(lower); m != nil {
		if month, ok := monthNames[m[2]]; ok {
			return makeDate(atoi(m[3]), month, atoi(m[1]))
		}
	}

	// Bare "Month D" assumes the current year, rolled forward when already past.
	if m := monthDayRe.FindStringSubmatch(lower); m != nil {
		if month, ok := monthNames[m[1]]; ok {
			d := makeDate(ref.Year(), month, atoi(m[2]))
			if d == nil {
				return nil
			}
			if d.Before(ref) {
				return makeDate(ref.Year()+1, month, atoi(m[2]))
			}
			return d
		}
	}

	return nil
}

func parseDateTimeWithTime(text string, ref time.Time) *time.Time {
	trimmed := strings.TrimSpace(text)

	if m := isoDateTimeRe.FindStringSubmatch(trimmed); m != nil {
		second := 0
		if m[6] != "" {
			second = atoi(m[6])
		}
		hour, minute := atoi(m[4]), atoi(m[5])
		if hour > 23 || minute > 59 || second > 59 {
			return nil
		}
		d := makeDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]))
		if d == nil {
			return nil
		}
		dt := d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
		return &dt
	}

	// "<date-expr> at <h>[:mm][am|pm]"
	if m := atTimeRe.FindStringSubmatch(strings.ToLower(trimmed)); m != nil {
		datePart := m[1]
		hour := atoi(m[2])
		minute := 0
		if m[3] != "" {
			minute = atoi(m[3])
		}

		switch m[4] {
		case "pm":
			if hour != 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		if hour > 23 || minute > 59 {
			return nil
		}

		parsed := parseRelative(datePart, ref)
		if parsed == nil {
			parsed = parseWeekday(datePart, ref)
		}
		if parsed == nil {
			parsed = parseAbsolute(datePart, ref)
		}
		if parsed == nil {
			return nil
		}

		dt := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), hour, minute, 0, 0, time.UTC)
		return &dt
	}

	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// FormatRelative renders a timestamp relative to now for display.
func FormatRelative(dt, now time.Time) string {
	diff := dt.Sub(now)
	days := int(math.Floor(diff.Hours() / 24))

	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "yesterday"
	case days > 1:
		return fmt.Sprintf("in %d days", days)
	default:
		return fmt.Sprintf("overdue by %d days", -days)
	}
}
