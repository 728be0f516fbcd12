package recur

import (
	"sort"
	"time"
)

// DefaultLimit bounds generation for rules that carry neither a count
// nor an until date.
const DefaultLimit = 100

// Guard against rules whose constraints can never match (for example
// bymonth=2 with bymonthday=31); generation scans at most this many
// frequency periods.
const maxPeriods = 1 << 20

// Options control one occurrence-generation call. Now is the single
// reference clock for the whole call; it is never re-read.
type Options struct {
	WeekStart   time.Weekday // week boundary for weekly stepping
	Limit       int          // cap when the rule has no count; DefaultLimit if zero
	IncludePast bool         // keep occurrences before Now
	Now         time.Time    // reference clock; time.Now() if zero
}

// Occurrences expands the rule anchored at start into a finite,
// ascending, duplicate-free sequence of timestamps. A rule without a
// frequency yields nothing, including its explicit dates; keeping that
// coupling is a deliberate compatibility choice (see DESIGN.md).
func (r *Rule) Occurrences(start time.Time, opt Options) []time.Time {
	if r == nil || r.Freq == "" {
		return nil
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	limit := r.Count
	if limit <= 0 {
		limit = opt.Limit
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	all := r.expand(start, limit, opt.WeekStart)
	all = append(all, r.Dates...)
	for _, x := range r.Excepts {
		for i := 0; i < len(all); {
			if all[i].Equal(x) {
				all = append(all[:i], all[i+1:]...)
			} else {
				i++
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	all = dedupe(all)

	if opt.IncludePast {
		return all
	}
	future := all[:0]
	for _, t := range all {
		if !t.Before(now) {
			future = append(future, t)
		}
	}
	return future
}

// Next computes the start/due pair for the occurrence following start.
// A zero due means the task has no due date and nextDue stays zero.
// ok is false when the series is exhausted: no occurrence lies strictly
// after start, signaling the caller to stop spawning recurrences.
func (r *Rule) Next(start, due time.Time, opt Options) (nextStart, nextDue time.Time, ok bool) {
	opt.IncludePast = true
	for _, t := range r.Occurrences(start, opt) {
		if t.After(start) {
			nextStart = t
			ok = true
			break
		}
	}
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	if !due.IsZero() {
		nextDue = nextStart.Add(due.Sub(start))
	}
	return nextStart, nextDue, true
}

// expand generates the base occurrence set: step period by period from
// the anchor, collect the candidate days inside each period, filter
// them through the by-constraints, and pick by set position.
func (r *Rule) expand(start time.Time, limit int, wkst time.Weekday) []time.Time {
	interval := r.Interval
	if interval <= 0 {
		interval = 1
	}
	var out []time.Time
	cursor := start
	for periods := 0; periods < maxPeriods && len(out) < limit; periods++ {
		var cands []time.Time
		switch r.Freq {
		case Minutely, Hourly:
			cands = []time.Time{cursor}
		case Daily:
			cands = []time.Time{r.clockOn(cursor, start)}
		case Weekly:
			cands = r.weekCandidates(cursor, start, wkst)
		case Monthly:
			cands = r.monthCandidates(cursor, start)
		case Yearly:
			cands = r.yearCandidates(cursor, start)
		}

		kept := cands[:0]
		for _, c := range cands {
			if r.admits(c) {
				kept = append(kept, c)
			}
		}
		kept = applySetPos(kept, r.BySetPos)

		for _, c := range kept {
			if c.Before(start) {
				continue
			}
			if r.Until != nil && c.After(*r.Until) {
				return out
			}
			out = append(out, c)
			if len(out) >= limit {
				break
			}
		}

		cursor = advance(cursor, r.Freq, interval, wkst)
		if r.Until != nil && cursor.After(r.Until.AddDate(1, 0, 0)) {
			break
		}
	}
	return out
}

// admits applies every present by-constraint as a limit. Candidates
// produced by expansion already conform, so re-checking is harmless.
// The hour constraint only limits for sub-daily frequencies; for daily
// and coarser it sets the time of day during candidate construction.
func (r *Rule) admits(c time.Time) bool {
	if r.ByHour != nil && (r.Freq == Minutely || r.Freq == Hourly) && c.Hour() != *r.ByHour {
		return false
	}
	if r.ByWeekday != "" && symbolByWeekday[c.Weekday()] != r.ByWeekday {
		return false
	}
	if r.ByMonth != 0 && int(c.Month()) != r.ByMonth {
		return false
	}
	if r.ByMonthDay != 0 && c.Day() != r.ByMonthDay {
		return false
	}
	if r.ByYearDay != 0 && c.YearDay() != r.ByYearDay {
		return false
	}
	if r.ByWeekNo != 0 {
		if _, wn := c.ISOWeek(); wn != r.ByWeekNo {
			return false
		}
	}
	return true
}

// clockOn places the anchor's time of day (or the byhour override) on
// the calendar day of t.
func (r *Rule) clockOn(t, start time.Time) time.Time {
	hour := start.Hour()
	if r.ByHour != nil {
		hour = *r.ByHour
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, start.Minute(), start.Second(), 0, start.Location())
}

func (r *Rule) weekCandidates(cursor, start time.Time, wkst time.Weekday) []time.Time {
	ws := startOfWeek(cursor, wkst)
	want := start.Weekday()
	if r.ByWeekday != "" {
		want = weekdaySymbols[r.ByWeekday]
	}
	var out []time.Time
	for i := 0; i < 7; i++ {
		day := ws.AddDate(0, 0, i)
		if day.Weekday() == want {
			out = append(out, r.clockOn(day, start))
		}
	}
	return out
}

func (r *Rule) monthCandidates(cursor, start time.Time) []time.Time {
	year, month := cursor.Year(), cursor.Month()
	last := daysInMonth(year, month)
	switch {
	case r.ByMonthDay != 0:
		if r.ByMonthDay > last {
			return nil
		}
		return []time.Time{r.clockOn(time.Date(year, month, r.ByMonthDay, 0, 0, 0, 0, start.Location()), start)}
	case r.ByWeekday != "":
		return r.weekdaysIn(year, month, start)
	case r.ByYearDay != 0:
		d := yearDay(year, r.ByYearDay, start.Location())
		if d.IsZero() || d.Month() != month {
			return nil
		}
		return []time.Time{r.clockOn(d, start)}
	default:
		if start.Day() > last {
			return nil
		}
		return []time.Time{r.clockOn(time.Date(year, month, start.Day(), 0, 0, 0, 0, start.Location()), start)}
	}
}

func (r *Rule) yearCandidates(cursor, start time.Time) []time.Time {
	year := cursor.Year()
	loc := start.Location()
	switch {
	case r.ByYearDay != 0:
		d := yearDay(year, r.ByYearDay, loc)
		if d.IsZero() {
			return nil
		}
		return []time.Time{r.clockOn(d, start)}
	case r.ByWeekNo != 0:
		return r.weekNoDays(year, start)
	case r.ByMonth != 0:
		month := time.Month(r.ByMonth)
		switch {
		case r.ByMonthDay != 0:
			if r.ByMonthDay > daysInMonth(year, month) {
				return nil
			}
			return []time.Time{r.clockOn(time.Date(year, month, r.ByMonthDay, 0, 0, 0, 0, loc), start)}
		case r.ByWeekday != "":
			return r.weekdaysIn(year, month, start)
		default:
			if start.Day() > daysInMonth(year, month) {
				return nil
			}
			return []time.Time{r.clockOn(time.Date(year, month, start.Day(), 0, 0, 0, 0, loc), start)}
		}
	case r.ByMonthDay != 0:
		var out []time.Time
		for m := time.January; m <= time.December; m++ {
			if r.ByMonthDay <= daysInMonth(year, m) {
				out = append(out, r.clockOn(time.Date(year, m, r.ByMonthDay, 0, 0, 0, 0, loc), start))
			}
		}
		return out
	case r.ByWeekday != "":
		var out []time.Time
		for m := time.January; m <= time.December; m++ {
			out = append(out, r.weekdaysIn(year, m, start)...)
		}
		return out
	default:
		d := time.Date(year, start.Month(), start.Day(), 0, 0, 0, 0, loc)
		if d.Month() != start.Month() {
			// Feb 29 anniversary in a non-leap year.
			return nil
		}
		return []time.Time{r.clockOn(d, start)}
	}
}

// weekdaysIn lists every day of the month falling on the rule's
// byweekday symbol.
func (r *Rule) weekdaysIn(year int, month time.Month, start time.Time) []time.Time {
	want := weekdaySymbols[r.ByWeekday]
	var out []time.Time
	for day := 1; day <= daysInMonth(year, month); day++ {
		d := time.Date(year, month, day, 0, 0, 0, 0, start.Location())
		if d.Weekday() == want {
			out = append(out, r.clockOn(d, start))
		}
	}
	return out
}

// weekNoDays lists the days of ISO week N of the given year, narrowed
// to the byweekday symbol when present.
func (r *Rule) weekNoDays(year int, start time.Time) []time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, start.Location())
	week1 := startOfWeek(jan4, time.Monday)
	ws := week1.AddDate(0, 0, 7*(r.ByWeekNo-1))
	var out []time.Time
	for i := 0; i < 7; i++ {
		day := ws.AddDate(0, 0, i)
		if r.ByWeekday != "" && symbolByWeekday[day.Weekday()] != r.ByWeekday {
			continue
		}
		out = append(out, r.clockOn(day, start))
	}
	return out
}

func advance(cursor time.Time, freq Frequency, interval int, wkst time.Weekday) time.Time {
	switch freq {
	case Minutely:
		return cursor.Add(time.Duration(interval) * time.Minute)
	case Hourly:
		return cursor.Add(time.Duration(interval) * time.Hour)
	case Daily:
		return cursor.AddDate(0, 0, interval)
	case Weekly:
		return startOfWeek(cursor, wkst).AddDate(0, 0, 7*interval)
	case Monthly:
		return time.Date(cursor.Year(), cursor.Month()+time.Month(interval), 1,
			cursor.Hour(), cursor.Minute(), cursor.Second(), 0, cursor.Location())
	case Yearly:
		return time.Date(cursor.Year()+interval, time.January, 1,
			cursor.Hour(), cursor.Minute(), cursor.Second(), 0, cursor.Location())
	}
	return cursor
}

func applySetPos(cands []time.Time, pos *int) []time.Time {
	if pos == nil || len(cands) == 0 {
		return cands
	}
	idx := *pos
	if idx > 0 {
		idx--
	} else {
		idx = len(cands) + idx
	}
	if idx < 0 || idx >= len(cands) {
		return nil
	}
	return cands[idx : idx+1]
}

func startOfWeek(t time.Time, wkst time.Weekday) time.Time {
	back := (int(t.Weekday()) - int(wkst) + 7) % 7
	d := t.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func yearDay(year, yd int, loc *time.Location) time.Time {
	d := time.Date(year, time.January, 1, 0, 0, 0, 0, loc).AddDate(0, 0, yd-1)
	if d.Year() != year {
		return time.Time{}
	}
	return d
}

func dedupe(sorted []time.Time) []time.Time {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, t := range sorted[1:] {
		if !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}
