package taskfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tend/internal/recur"
	"tend/internal/task"
)

func sampleTask(t *testing.T) task.Task {
	t.Helper()
	rule, err := recur.Parse("freq=monthly;bymonthday=1;count=6", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	due := start.AddDate(0, 0, 2)
	return task.Task{
		UID:         "6a0c9e14-0000-0000-0000-000000000042",
		Alias:       "rent",
		Description: "Pay the rent",
		Project:     "home",
		Tags:        []string{"money"},
		Priority:    1,
		Status:      task.StatusTodo,
		Start:       &start,
		Due:         &due,
		Rule:        rule,
		Reminders:   []task.Reminder{{Remind: "start-1d", Notify: "email"}},
		Notes:       "transfer from the shared account",
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleTask(t)

	path, err := Write(dir, want)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != want.UID+".yml" {
		t.Errorf("file name = %s, want %s.yml", filepath.Base(path), want.UID)
	}

	got, err := Read(path, time.UTC)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.UID != want.UID || got.Alias != want.Alias || got.Description != want.Description {
		t.Errorf("identity fields differ: %+v", got)
	}
	if got.Start == nil || !got.Start.Equal(*want.Start) {
		t.Errorf("start = %v, want %v", got.Start, want.Start)
	}
	if got.Due == nil || !got.Due.Equal(*want.Due) {
		t.Errorf("due = %v, want %v", got.Due, want.Due)
	}
	if got.Rule == nil || got.Rule.String() != want.Rule.String() {
		t.Errorf("rule = %v, want %v", got.Rule, want.Rule)
	}
	if len(got.Reminders) != 1 || got.Reminders[0].Notify != "email" {
		t.Errorf("reminders = %v", got.Reminders)
	}
}

func TestReadLowercasesLookupFields(t *testing.T) {
	dir := t.TempDir()
	content := `task:
  uid: abc-123
  alias: RENT
  status: Todo
  project: Home
  parent: Bills
`
	path := filepath.Join(dir, "abc-123.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got.Alias != "rent" || got.Status != "todo" || got.Project != "home" || got.Parent != "bills" {
		t.Errorf("lookup fields not lowercased: %+v", got)
	}
}

func TestReadRejectsMissingUID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yml")
	if err := os.WriteFile(path, []byte("task:\n  alias: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path, time.UTC); err == nil {
		t.Error("Read accepted a file without a uid")
	}
}

func TestLoadSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	first := sampleTask(t)
	if _, err := Write(dir, first); err != nil {
		t.Fatal(err)
	}

	// Same alias under a different uid.
	dup := first
	dup.UID = "6a0c9e14-0000-0000-0000-000000000043"
	if _, err := Write(dir, dup); err != nil {
		t.Fatal(err)
	}

	// Unparsable file.
	if err := os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("task: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	tasks, warnings, err := Load(dir, time.UTC)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1 (duplicates skipped): %v", len(tasks), warnings)
	}
	if len(warnings) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	foundDup := false
	for _, w := range warnings {
		if strings.Contains(w, "duplicate alias") {
			foundDup = true
		}
	}
	if !foundDup {
		t.Errorf("no duplicate-alias warning in %v", warnings)
	}
}
