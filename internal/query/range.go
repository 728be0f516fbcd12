package query

import (
	"strconv"
	"strings"
	"time"

	"tend/internal/timeutil"
)

// rangeOrigin is the low fallback bound for timestamp ranges.
var rangeOrigin = time.Date(1969, 1, 1, 0, 0, 0, 0, time.UTC)

// ParseIntRange turns a compact range expression into ordered integer
// bounds. A leading ~ runs from the domain low to the value, a
// trailing ~ from the value to the domain high, A~B spans two values,
// and a bare value is an exact match. A side that fails to parse takes
// the domain fallback for that side; parsing never fails.
func ParseIntRange(s string, low, high int) (int, int) {
	s = strings.TrimSpace(s)
	var begin, end int
	switch {
	case strings.HasPrefix(s, "~"):
		begin = low
		end = intOr(strings.TrimPrefix(s, "~"), high)
	case strings.HasSuffix(s, "~"):
		begin = intOr(strings.TrimSuffix(s, "~"), low)
		end = high
	case strings.Contains(s, "~"):
		first, second, _ := strings.Cut(s, "~")
		begin = intOr(first, low)
		end = intOr(second, high)
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return low, high
		}
		begin, end = n, n
	}
	if begin > end {
		begin, end = end, begin
	}
	return begin, end
}

// ParseTimeRange is the timestamp flavor of ParseIntRange. The low
// fallback is a fixed origin and the high fallback is the reference
// clock. A parsed end with no time-of-day component is pushed to the
// last second of its day so a bare date matches the whole day.
func ParseTimeRange(s string, now time.Time, loc *time.Location) (time.Time, time.Time) {
	s = strings.TrimSpace(s)
	begin, end := rangeOrigin, now
	switch {
	case strings.HasPrefix(s, "~"):
		if t, ok := timeutil.ParseStamp(strings.TrimPrefix(s, "~"), loc); ok {
			end = timeutil.EndOfDay(t)
		}
	case strings.HasSuffix(s, "~"):
		if t, ok := timeutil.ParseStamp(strings.TrimSuffix(s, "~"), loc); ok {
			begin = t
		}
	case strings.Contains(s, "~"):
		first, second, _ := strings.Cut(s, "~")
		if t, ok := timeutil.ParseStamp(first, loc); ok {
			begin = t
		}
		if t, ok := timeutil.ParseStamp(second, loc); ok {
			end = timeutil.EndOfDay(t)
		}
	default:
		if t, ok := timeutil.ParseStamp(s, loc); ok {
			begin = t
			end = timeutil.EndOfDay(t)
		}
	}
	if begin.After(end) {
		begin, end = end, begin
	}
	return begin, end
}

func intOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}
