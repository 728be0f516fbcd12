package ical

import (
	"strings"
	"testing"
	"time"

	"tend/internal/recur"
	"tend/internal/task"
)

func TestExportVTodoFields(t *testing.T) {
	rule, err := recur.Parse("freq=weekly;byweekday=mo;count=4", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	due := time.Date(2024, 1, 8, 17, 0, 0, 0, time.UTC)
	tasks := []task.Task{{
		UID:         "uid-1",
		Alias:       "mail",
		Description: "Answer support mail",
		Parent:      "inbox",
		Tags:        []string{"urgent", "email"},
		Priority:    2,
		Percent:     25,
		Status:      task.StatusInProgress,
		Start:       &start,
		Due:         &due,
		Rule:        rule,
		Reminders:   []task.Reminder{{Remind: "start-15m"}, {Remind: "due-1h", Notify: "email"}},
		Notes:       "check the backlog first",
	}}
	aliases := map[string]string{"mail": "uid-1", "inbox": "uid-0"}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := Export(tasks, aliases, "me@example.com", now, time.UTC)

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"VERSION:2.0\r\n",
		"BEGIN:VTODO\r\n",
		"UID:uid-1\r\n",
		"SUMMARY:Answer support mail\r\n",
		"STATUS:IN-PROCESS\r\n",
		"DTSTART:20240108T090000Z\r\n",
		"DUE:20240108T170000Z\r\n",
		"PERCENT-COMPLETE:25\r\n",
		"PRIORITY:2\r\n",
		"CATEGORIES:URGENT,EMAIL\r\n",
		"RRULE:FREQ=WEEKLY;COUNT=4;BYDAY=MO\r\n",
		"RELATED-TO:uid-0\r\n",
		"DESCRIPTION:check the backlog first\r\n",
		"TRIGGER:-PT15M\r\n",
		"TRIGGER;RELATED=END:-PT1H\r\n",
		"ACTION:EMAIL\r\n",
		"ATTENDEE:mailto:me@example.com\r\n",
		"END:VTODO\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestExportStatusMapping(t *testing.T) {
	cases := map[string]string{
		task.StatusTodo:      "NEEDS-ACTION",
		task.StatusDone:      "COMPLETED",
		task.StatusCancelled: "CANCELLED",
		task.StatusBlocked:   "IN-PROCESS",
		"":                   "NEEDS-ACTION",
	}
	for status, want := range cases {
		if got := statusName(status); got != want {
			t.Errorf("statusName(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestTriggerValue(t *testing.T) {
	cases := []struct {
		remind string
		want   string
		ok     bool
	}{
		{"start-15m", "TRIGGER:-PT15M", true},
		{"start+1h", "TRIGGER:PT1H", true},
		{"due-1d2h30m", "TRIGGER;RELATED=END:-P1DT2H30M", true},
		{"due+30m", "TRIGGER;RELATED=END:PT30M", true},
		{"2024-01-08 08:30", "TRIGGER;VALUE=DATE-TIME:20240108T083000Z", true},
		{"whenever", "", false},
	}
	for _, tc := range cases {
		got, ok := triggerValue(tc.remind, time.UTC)
		if ok != tc.ok || got != tc.want {
			t.Errorf("triggerValue(%q) = %q, %v; want %q, %v", tc.remind, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExportUnresolvedParentOmitted(t *testing.T) {
	tasks := []task.Task{{UID: "uid-9", Parent: "ghost", Status: task.StatusTodo}}
	out := Export(tasks, map[string]string{}, "", time.Now(), time.UTC)
	if strings.Contains(out, "RELATED-TO") {
		t.Errorf("RELATED-TO emitted for unresolved parent:\n%s", out)
	}
}

func TestFoldLongLines(t *testing.T) {
	var b strings.Builder
	long := "DESCRIPTION:" + strings.Repeat("x", 150)
	writeLine(&b, long)
	out := b.String()
	for i, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if len(line) > foldWidth {
			t.Errorf("line %d is %d chars, want <= %d", i, len(line), foldWidth)
		}
		if i > 0 && !strings.HasPrefix(line, " ") {
			t.Errorf("continuation line %d lacks leading space: %q", i, line)
		}
	}
	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	if strings.TrimSuffix(unfolded, "\r\n") != long {
		t.Error("unfolding does not restore the original line")
	}
}
