// Package ical renders tasks as iCalendar VTODO components (RFC 5545).
package ical

import (
	"fmt"
	"strings"
	"time"

	"tend/internal/recur"
	"tend/internal/task"
	"tend/internal/timeutil"
)

const prodID = "-//tend//tend//EN"

// foldWidth is the maximum content-line length before folding.
const foldWidth = 75

// Export renders tasks as a VCALENDAR document. aliases maps alias to
// uid and is used to resolve RELATED-TO references; userEmail, when
// set, becomes the ATTENDEE of email alarms. now supplies DTSTAMP for
// tasks without an updated timestamp, and loc interprets naive
// absolute reminder stamps.
func Export(tasks []task.Task, aliases map[string]string, userEmail string, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:" + prodID + "\r\n")
	for _, t := range tasks {
		writeTodo(&b, t, aliases, userEmail, now, loc)
	}
	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

func writeTodo(b *strings.Builder, t task.Task, aliases map[string]string, userEmail string, now time.Time, loc *time.Location) {
	b.WriteString("BEGIN:VTODO\r\n")
	writeLine(b, "UID:"+t.UID)
	writeLine(b, "DTSTAMP:"+stampOrNow(t.Updated, now))
	writeLine(b, "CREATED:"+stampOrNow(t.Created, now))
	if t.Description != "" {
		writeLine(b, "SUMMARY:"+escapeText(t.Description))
	}
	writeLine(b, "STATUS:"+statusName(t.Status))
	if t.Due != nil {
		writeLine(b, "DUE:"+utcStamp(*t.Due))
	}
	if t.Start != nil {
		writeLine(b, "DTSTART:"+utcStamp(*t.Start))
	}
	if t.Completed != nil {
		writeLine(b, "COMPLETED:"+utcStamp(*t.Completed))
	}
	if t.Percent > 0 {
		writeLine(b, fmt.Sprintf("PERCENT-COMPLETE:%d", t.Percent))
	}
	if t.Priority > 0 {
		writeLine(b, fmt.Sprintf("PRIORITY:%d", t.Priority))
	}
	if len(t.Tags) > 0 {
		writeLine(b, "CATEGORIES:"+strings.ToUpper(strings.Join(t.Tags, ",")))
	}
	if t.Rule != nil && t.Rule.Freq != "" {
		writeLine(b, "RRULE:"+rruleValue(t.Rule))
		if len(t.Rule.Dates) > 0 {
			writeLine(b, "RDATE:"+stampList(t.Rule.Dates))
		}
		if len(t.Rule.Excepts) > 0 {
			writeLine(b, "EXDATE:"+stampList(t.Rule.Excepts))
		}
	}
	if t.Parent != "" {
		if uid, ok := aliases[strings.ToLower(t.Parent)]; ok {
			writeLine(b, "RELATED-TO:"+uid)
		}
	}
	if t.Notes != "" {
		writeLine(b, "DESCRIPTION:"+escapeText(t.Notes))
	}
	for _, r := range t.Reminders {
		writeAlarm(b, r, userEmail, loc)
	}
	b.WriteString("END:VTODO\r\n")
}

func writeAlarm(b *strings.Builder, r task.Reminder, userEmail string, loc *time.Location) {
	if r.Remind == "" {
		return
	}
	trigger, ok := triggerValue(r.Remind, loc)
	if !ok {
		return
	}
	b.WriteString("BEGIN:VALARM\r\n")
	writeLine(b, trigger)
	action := strings.ToUpper(r.Notify)
	if action != "EMAIL" {
		action = "DISPLAY"
	}
	writeLine(b, "ACTION:"+action)
	if action == "EMAIL" && userEmail != "" {
		writeLine(b, "ATTENDEE:mailto:"+userEmail)
	}
	b.WriteString("END:VALARM\r\n")
}

// triggerValue converts a reminder expression into a TRIGGER property.
// Absolute timestamps become VALUE=DATE-TIME triggers; relative ones
// become durations, anchored to DTSTART or (RELATED=END) to DUE.
func triggerValue(remind string, loc *time.Location) (string, bool) {
	if at, ok := timeutil.ParseStamp(remind, loc); ok {
		return "TRIGGER;VALUE=DATE-TIME:" + utcStamp(at), true
	}
	expr := strings.ToLower(remind)
	var anchor, sign string
	switch {
	case strings.HasPrefix(expr, "start-"):
		anchor, sign = "start", "-"
	case strings.HasPrefix(expr, "start+"):
		anchor, sign = "start", ""
	case strings.HasPrefix(expr, "due-"):
		anchor, sign = "due", "-"
	case strings.HasPrefix(expr, "due+"):
		anchor, sign = "due", ""
	default:
		return "", false
	}
	span := timeutil.ParseSpan(expr[len(anchor)+1:])
	value := sign + isoDuration(span)
	if anchor == "due" {
		return "TRIGGER;RELATED=END:" + value, true
	}
	return "TRIGGER:" + value, true
}

func isoDuration(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int(d/time.Minute) % 60
	var b strings.Builder
	b.WriteString("P")
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || minutes > 0 || days == 0 {
		b.WriteString("T")
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if minutes > 0 || (hours == 0 && days == 0) {
			fmt.Fprintf(&b, "%dM", minutes)
		}
	}
	return b.String()
}

func statusName(status string) string {
	switch status {
	case task.StatusDone:
		return "COMPLETED"
	case task.StatusCancelled:
		return "CANCELLED"
	case task.StatusTodo, "":
		return "NEEDS-ACTION"
	default:
		return "IN-PROCESS"
	}
}

func rruleValue(r *recur.Rule) string {
	var parts []string
	add := func(key string, value string) {
		if value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	add("FREQ", string(r.Freq))
	if r.Interval > 1 {
		add("INTERVAL", fmt.Sprint(r.Interval))
	}
	if r.Count > 0 {
		add("COUNT", fmt.Sprint(r.Count))
	}
	if r.Until != nil {
		add("UNTIL", utcStamp(*r.Until))
	}
	if r.ByHour != nil {
		add("BYHOUR", fmt.Sprint(*r.ByHour))
	}
	add("BYDAY", r.ByWeekday)
	if r.ByMonth > 0 {
		add("BYMONTH", fmt.Sprint(r.ByMonth))
	}
	if r.ByMonthDay != 0 {
		add("BYMONTHDAY", fmt.Sprint(r.ByMonthDay))
	}
	if r.ByYearDay != 0 {
		add("BYYEARDAY", fmt.Sprint(r.ByYearDay))
	}
	if r.ByWeekNo != 0 {
		add("BYWEEKNO", fmt.Sprint(r.ByWeekNo))
	}
	if r.BySetPos != nil {
		add("BYSETPOS", fmt.Sprint(*r.BySetPos))
	}
	return strings.Join(parts, ";")
}

func stampList(stamps []time.Time) string {
	parts := make([]string, len(stamps))
	for i, t := range stamps {
		parts[i] = utcStamp(t)
	}
	return strings.Join(parts, ",")
}

func utcStamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func stampOrNow(t *time.Time, now time.Time) string {
	if t != nil {
		return utcStamp(*t)
	}
	return utcStamp(now)
}

// escapeText quotes the characters RFC 5545 reserves in TEXT values.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	return s
}

// writeLine folds a content line at foldWidth characters, indenting
// continuations with a single space, and terminates it with CRLF.
func writeLine(b *strings.Builder, line string) {
	for len(line) > foldWidth {
		b.WriteString(line[:foldWidth])
		b.WriteString("\r\n")
		line = " " + line[foldWidth:]
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}
