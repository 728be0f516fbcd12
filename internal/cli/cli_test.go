package cli

import (
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tend/internal/config"
	"tend/internal/task"
)

func testApp() *App {
	cfg := config.Config{
		PriorityHigh:    3,
		PriorityMedium:  6,
		PriorityNormal:  9,
		DefaultReminder: "start-15m",
	}
	return &App{
		cfg: cfg,
		loc: time.UTC,
		now: func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestLookup(t *testing.T) {
	tasks := []task.Task{
		{UID: "uid-1", Alias: "mail"},
		{UID: "uid-2", Alias: "deck"},
	}
	got, err := lookup(tasks, "DECK")
	if err != nil {
		t.Fatalf("lookup by alias: %v", err)
	}
	if got.UID != "uid-2" {
		t.Errorf("got uid %s, want uid-2", got.UID)
	}
	got, err = lookup(tasks, "uid-1")
	if err != nil {
		t.Fatalf("lookup by uid: %v", err)
	}
	if got.Alias != "mail" {
		t.Errorf("got alias %s, want mail", got.Alias)
	}
	if _, err := lookup(tasks, "nope"); err == nil {
		t.Error("lookup accepted an unknown reference")
	}
}

func applyTestCmd() (*cobra.Command, *taskFlags) {
	flags := &taskFlags{}
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	flags.register(cmd)
	return cmd, flags
}

func TestApplyFlags(t *testing.T) {
	cmd, flags := applyTestCmd()
	for name, value := range map[string]string{
		"priority": "2",
		"status":   "Waiting",
		"start":    "2024-06-03 09:00",
		"rrule":    "freq=daily;count=3",
		"project":  "Chores",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatal(err)
		}
	}
	if err := cmd.Flags().Set("reminder", "start-15m|email"); err != nil {
		t.Fatal(err)
	}

	var tk task.Task
	if err := flags.apply(cmd, &tk, testApp()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if tk.Priority != 2 || tk.Status != task.StatusWaiting || tk.Project != "chores" {
		t.Errorf("fields not applied: %+v", tk)
	}
	if tk.Start == nil || tk.Start.Hour() != 9 {
		t.Errorf("start = %v", tk.Start)
	}
	if tk.Rule == nil || tk.Rule.Count != 3 {
		t.Errorf("rule = %v", tk.Rule)
	}
	if len(tk.Reminders) != 1 || tk.Reminders[0].Remind != "start-15m" || tk.Reminders[0].Notify != "email" {
		t.Errorf("reminders = %v", tk.Reminders)
	}
}

func TestApplyFlagsEmptyReminderUsesDefault(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want task.Reminder
	}{
		{"bare empty", "", task.Reminder{Remind: "start-15m"}},
		{"empty with notify", "|email", task.Reminder{Remind: "start-15m", Notify: "email"}},
		{"explicit stays", "due-1h", task.Reminder{Remind: "due-1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, flags := applyTestCmd()
			if err := cmd.Flags().Set("reminder", tt.raw); err != nil {
				t.Fatal(err)
			}
			var tk task.Task
			if err := flags.apply(cmd, &tk, testApp()); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if len(tk.Reminders) != 1 || tk.Reminders[0] != tt.want {
				t.Errorf("reminders = %v, want [%v]", tk.Reminders, tt.want)
			}
		})
	}
}

func TestApplyFlagsRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"priority": "1001",
		"percent":  "150",
		"status":   "sleeping",
		"start":    "not a time",
		"rrule":    "freq=daily;count=3;count",
	}
	for name, value := range cases {
		cmd, flags := applyTestCmd()
		if err := cmd.Flags().Set(name, value); err != nil {
			continue // non-numeric int values fail at the flag layer, same outcome
		}
		var tk task.Task
		if err := flags.apply(cmd, &tk, testApp()); err == nil {
			t.Errorf("apply accepted %s=%q", name, value)
		}
	}
}

func TestApplyFlagsLeavesUnsetFieldsAlone(t *testing.T) {
	cmd, flags := applyTestCmd()
	if err := cmd.Flags().Set("percent", "40"); err != nil {
		t.Fatal(err)
	}
	tk := task.Task{Description: "keep me", Priority: 5, Status: task.StatusTodo}
	if err := flags.apply(cmd, &tk, testApp()); err != nil {
		t.Fatal(err)
	}
	if tk.Percent != 40 {
		t.Errorf("percent = %d, want 40", tk.Percent)
	}
	if tk.Priority != 5 || tk.Status != task.StatusTodo || tk.Description != "keep me" {
		t.Errorf("untouched fields changed: %+v", tk)
	}
}

func TestPriorityLabelBands(t *testing.T) {
	color.NoColor = true
	app := testApp()
	if got := app.priorityLabel(0); got != "-" {
		t.Errorf("label for unset priority = %q, want -", got)
	}
	for _, p := range []int{1, 5, 9, 500} {
		want := map[int]string{1: "1", 5: "5", 9: "9", 500: "500"}[p]
		if got := app.priorityLabel(p); got != want {
			t.Errorf("priorityLabel(%d) = %q, want %q", p, got, want)
		}
	}
}

func TestUnsettableFields(t *testing.T) {
	start := time.Now()
	tk := task.Task{Priority: 3, Start: &start, Tags: []string{"a"}, Notes: "n"}
	for _, field := range []string{"priority", "start", "tags", "notes"} {
		unsettable[field](&tk)
	}
	if tk.Priority != 0 || tk.Start != nil || tk.Tags != nil || tk.Notes != "" {
		t.Errorf("fields not cleared: %+v", tk)
	}
}
