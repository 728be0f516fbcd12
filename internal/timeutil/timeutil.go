// Package timeutil holds the lenient timestamp and duration parsing
// shared by the recurrence and query engines.
package timeutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for user-supplied timestamps, tried in order. Naive
// layouts are parsed in the supplied location.
var stampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102T150405",
	"2006/01/02 15:04",
	"2006/01/02",
}

var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05 -0700",
	"20060102T150405Z0700",
}

// ParseStamp parses a timestamp string leniently and returns the
// parsed time in loc. The second return is false when the string does
// not resemble a timestamp at all. The T and Z layout letters match in
// either case: the recurrence and query parsers lowercase whole
// expressions before the timestamps inside them reach this point.
func ParseStamp(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseLayouts(s, loc); ok {
		return t, true
	}
	// T and Z are the only letters a supported layout contains, so
	// uppercasing the whole string only restores those separators.
	if upper := strings.ToUpper(s); upper != s {
		return parseLayouts(upper, loc)
	}
	return time.Time{}, false
}

func parseLayouts(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range stampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Stamp renders a time in the short human form used in task files and
// recurrence expressions. Seconds are kept only when present so the
// output re-parses to the same instant.
func Stamp(t time.Time) string {
	if t.Second() != 0 {
		return t.Format("2006-01-02 15:04:05")
	}
	return t.Format("2006-01-02 15:04")
}

var (
	spanDays    = regexp.MustCompile(`(\d+)d`)
	spanHours   = regexp.MustCompile(`(\d+)h`)
	spanMinutes = regexp.MustCompile(`(\d+)m`)
)

// ParseSpan converts a compact duration expression of the form
// (X)d(Y)h(Z)m into a duration. Each component is optional; an
// expression with none of them yields zero.
func ParseSpan(expr string) time.Duration {
	expr = strings.ToLower(expr)
	var total time.Duration
	if m := spanDays.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += time.Duration(n) * 24 * time.Hour
	}
	if m := spanHours.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += time.Duration(n) * time.Hour
	}
	if m := spanMinutes.FindStringSubmatch(expr); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += time.Duration(n) * time.Minute
	}
	return total
}

// EndOfDay reports whether t carries no time-of-day component and, if
// so, returns it pushed to the last second of that day.
func EndOfDay(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 {
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
	}
	return t
}
