package task

import (
	"strings"
	"time"

	"tend/internal/timeutil"
)

// ReminderTime resolves a reminder expression against a task's start
// and due times. The expression is either an absolute timestamp or
// (start|due)(+|-)<span> with the (X)d(Y)h(Z)m span grammar. A span of
// zero falls back to defaultMinutes. ok is false when the expression
// names an absent anchor or matches neither form.
func ReminderTime(expr string, start, due *time.Time, defaultMinutes int, loc *time.Location) (time.Time, bool) {
	expr = strings.ToLower(strings.TrimSpace(expr))
	if t, ok := timeutil.ParseStamp(expr, loc); ok {
		return t, true
	}

	var anchorName, spanExpr string
	prior := false
	// Check '-' first so "start-1d" is not misread at the '+' branch.
	if i := strings.Index(expr, "-"); i >= 0 {
		anchorName, spanExpr = expr[:i], expr[i+1:]
		prior = true
	} else if i := strings.Index(expr, "+"); i >= 0 {
		anchorName, spanExpr = expr[:i], expr[i+1:]
	} else {
		return time.Time{}, false
	}

	var anchor *time.Time
	switch anchorName {
	case "start":
		anchor = start
	case "due":
		anchor = due
	default:
		return time.Time{}, false
	}
	if anchor == nil {
		return time.Time{}, false
	}

	span := timeutil.ParseSpan(spanExpr)
	if span == 0 {
		span = time.Duration(defaultMinutes) * time.Minute
	}
	if prior {
		return anchor.Add(-span), true
	}
	return anchor.Add(span), true
}

// UpcomingReminder describes one reminder falling inside an agenda
// window.
type UpcomingReminder struct {
	Task   Task
	At     time.Time
	Notify string
}

// UpcomingReminders resolves every reminder on every task and keeps
// the ones falling within [now-60s, now+interval]. The notify method
// degrades to display when email is requested but no address is
// configured.
func UpcomingReminders(tasks []Task, now time.Time, interval time.Duration, defaultMinutes int, userEmail string, loc *time.Location) []UpcomingReminder {
	begin := now.Add(-time.Minute)
	end := now.Add(interval)
	var out []UpcomingReminder
	for _, t := range tasks {
		for _, rem := range t.Reminders {
			at, ok := ReminderTime(rem.Remind, t.Start, t.Due, defaultMinutes, loc)
			if !ok || at.Before(begin) || at.After(end) {
				continue
			}
			notify := strings.ToLower(rem.Notify)
			if notify != "email" || userEmail == "" {
				notify = "display"
			}
			out = append(out, UpcomingReminder{Task: t, At: at, Notify: notify})
		}
	}
	return out
}
