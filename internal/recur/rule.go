// Package recur implements the recurrence rule engine: parsing the
// compact key=value;key=value descriptor text, expanding a rule into
// concrete occurrence timestamps, and deriving the next start/due pair
// when a recurring task is closed out.
package recur

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"tend/internal/timeutil"
)

// ErrMalformed reports a descriptor token that cannot be split into a
// key and a value. Field-level problems never raise it; they normalize
// to an absent field instead.
var ErrMalformed = errors.New("malformed recurrence expression")

// Frequency of recurrence, one of the six calendar step units.
type Frequency string

const (
	Minutely Frequency = "MINUTELY"
	Hourly   Frequency = "HOURLY"
	Daily    Frequency = "DAILY"
	Weekly   Frequency = "WEEKLY"
	Monthly  Frequency = "MONTHLY"
	Yearly   Frequency = "YEARLY"
)

var frequencies = map[string]Frequency{
	"MINUTELY": Minutely,
	"HOURLY":   Hourly,
	"DAILY":    Daily,
	"WEEKLY":   Weekly,
	"MONTHLY":  Monthly,
	"YEARLY":   Yearly,
}

var weekdaySymbols = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var symbolByWeekday = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Rule is a normalized recurrence descriptor. Every by-constraint is
// either valid for its domain or absent; the parser never stores a
// value it knows to be invalid. Zero means absent for the integer
// fields whose domains exclude zero; ByHour and BySetPos use pointers
// because zero is a meaningful value for them.
type Rule struct {
	Freq       Frequency
	Interval   int // 0 = absent, treated as 1 at generation time
	Count      int // 0 = absent
	Until      *time.Time
	ByHour     *int   // 0-23
	ByWeekday  string // SU, MO, TU, WE, TH, FR, SA
	ByMonth    int    // 1-12
	ByMonthDay int    // 1-31
	ByYearDay  int    // 1-366
	ByWeekNo   int    // 1-53
	BySetPos   *int   // signed, unchecked
	Dates      []time.Time
	Excepts    []time.Time
}

var ruleKeys = []string{
	"date=", "except=", "freq=", "count=", "until=", "interval=",
	"byhour=", "byweekday=", "bymonth=", "bymonthday=", "byyearday=",
	"byweekno=", "bysetpos=",
}

// Parse turns a recurrence expression into a Rule. An expression that
// contains none of the recognized keys denotes "no recurrence" and
// yields (nil, nil). A token that is not exactly key=value aborts the
// whole parse with ErrMalformed.
func Parse(expr string, loc *time.Location) (*Rule, error) {
	if loc == nil {
		loc = time.Local
	}
	expr = strings.ToLower(strings.TrimSpace(expr))
	recognized := false
	for _, key := range ruleKeys {
		if strings.Contains(expr, key) {
			recognized = true
			break
		}
	}
	if !recognized {
		return nil, nil
	}

	r := &Rule{}
	for _, item := range strings.Split(expr, ";") {
		if strings.Count(item, "=") != 1 {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, item)
		}
		key, value, _ := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "date":
			r.Dates = parseStampList(value, loc)
		case "except":
			r.Excepts = parseStampList(value, loc)
		case "freq":
			r.Freq = frequencies[strings.ToUpper(value)]
		case "count":
			r.Count = intOrZero(value)
		case "until":
			if t, ok := timeutil.ParseStamp(value, loc); ok {
				r.Until = &t
			}
		case "interval":
			r.Interval = intOrZero(value)
		case "byhour":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 23 {
				r.ByHour = &n
			}
		case "byweekday":
			sym := strings.ToUpper(value)
			if _, ok := weekdaySymbols[sym]; ok {
				r.ByWeekday = sym
			}
		case "bymonth":
			r.ByMonth = intInRange(value, 1, 12)
		case "bymonthday":
			r.ByMonthDay = intInRange(value, 1, 31)
		case "byyearday":
			r.ByYearDay = intInRange(value, 1, 366)
		case "byweekno":
			r.ByWeekNo = intInRange(value, 1, 53)
		case "bysetpos":
			if n, err := strconv.Atoi(value); err == nil {
				r.BySetPos = &n
			}
		}
	}
	return r, nil
}

// String re-serializes the rule to its persisted text form. Parsing
// the output yields a field-for-field identical rule.
func (r *Rule) String() string {
	if r == nil {
		return ""
	}
	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	add("freq", string(r.Freq))
	if r.Interval > 0 {
		add("interval", strconv.Itoa(r.Interval))
	}
	if r.Count > 0 {
		add("count", strconv.Itoa(r.Count))
	}
	if r.Until != nil {
		add("until", timeutil.Stamp(*r.Until))
	}
	if r.ByHour != nil {
		add("byhour", strconv.Itoa(*r.ByHour))
	}
	add("byweekday", r.ByWeekday)
	if r.ByMonth > 0 {
		add("bymonth", strconv.Itoa(r.ByMonth))
	}
	if r.ByMonthDay > 0 {
		add("bymonthday", strconv.Itoa(r.ByMonthDay))
	}
	if r.ByYearDay > 0 {
		add("byyearday", strconv.Itoa(r.ByYearDay))
	}
	if r.ByWeekNo > 0 {
		add("byweekno", strconv.Itoa(r.ByWeekNo))
	}
	if r.BySetPos != nil {
		add("bysetpos", strconv.Itoa(*r.BySetPos))
	}
	add("date", stampList(r.Dates))
	add("except", stampList(r.Excepts))
	return strings.Join(parts, ";")
}

func parseStampList(value string, loc *time.Location) []time.Time {
	var out []time.Time
	for _, entry := range strings.Split(value, ",") {
		if t, ok := timeutil.ParseStamp(entry, loc); ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func stampList(stamps []time.Time) string {
	if len(stamps) == 0 {
		return ""
	}
	parts := make([]string, len(stamps))
	for i, t := range stamps {
		parts[i] = timeutil.Stamp(t)
	}
	return strings.Join(parts, ",")
}

func intOrZero(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func intInRange(value string, low, high int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < low || n > high {
		return 0
	}
	return n
}
