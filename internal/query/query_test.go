package query

import (
	"errors"
	"testing"
	"time"

	"tend/internal/task"
)

var utc = time.UTC

func stamp(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, utc)
	if err != nil {
		panic(err)
	}
	return &t
}

func snapshot() []task.Task {
	return []task.Task{
		{
			UID: "uid-1", Alias: "mail", Description: "Answer support mail",
			Project: "helpdesk", Tags: []string{"urgent", "email"},
			Status: task.StatusTodo, Priority: 1,
			Due: stamp("2024-06-02 17:00"),
		},
		{
			UID: "uid-2", Alias: "deck", Description: "Build launch deck",
			Project: "launch", Tags: []string{"slides"},
			Status: task.StatusInProgress, Priority: 3, Percent: 40,
			Start: stamp("2024-05-20 09:00"),
		},
		{
			UID: "uid-3", Alias: "trip", Description: "Book travel",
			Location: "Berlin", Status: task.StatusDone, Percent: 100,
			Completed: stamp("2024-05-01 10:00"),
		},
		{
			UID: "uid-4", Alias: "idea", Description: "Note down mail archive idea",
			Status: task.StatusTodo,
		},
	}
}

func run(t *testing.T, term string) []task.Task {
	t.Helper()
	q, err := Parse(term)
	if err != nil {
		t.Fatalf("Parse(%q) err = %v", term, err)
	}
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, utc)
	return q.Filter(snapshot(), now, utc)
}

func wantAliases(t *testing.T, got []task.Task, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tasks %v, want %v", len(got), aliases(got), want)
	}
	for i, alias := range want {
		if got[i].Alias != alias {
			t.Errorf("result[%d] = %s, want %s", i, got[i].Alias, alias)
		}
	}
}

func aliases(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Alias
	}
	return out
}

func TestParseMalformed(t *testing.T) {
	for _, term := range []string{
		"status=todo,priority",
		"tags==urgent",
		"status=todo%tags==x",
	} {
		if _, err := Parse(term); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformed", term, err)
		}
	}
}

func TestBareTermSearchesDescription(t *testing.T) {
	wantAliases(t, run(t, "mail"), "mail", "idea")
}

func TestAnyMatchesEverything(t *testing.T) {
	wantAliases(t, run(t, "any"), "mail", "deck", "trip", "idea")
}

func TestSearchIsConjunctive(t *testing.T) {
	// A task without a priority set fails a priority criterion.
	wantAliases(t, run(t, "status=todo,priority=1~3"), "mail")
}

func TestStatusOrList(t *testing.T) {
	wantAliases(t, run(t, "status=todo+done"), "mail", "trip", "idea")
}

func TestTagsExactEntryMatch(t *testing.T) {
	wantAliases(t, run(t, "tags=urgent"), "mail")
	// Substring of a tag must not match.
	wantAliases(t, run(t, "tags=urge"))
}

func TestFieldAbsentFailsSearch(t *testing.T) {
	wantAliases(t, run(t, "location=berlin"), "trip")
	wantAliases(t, run(t, "percent=40~"), "deck", "trip")
}

func TestTimestampRange(t *testing.T) {
	wantAliases(t, run(t, "due=2024-06-02"), "mail")
	wantAliases(t, run(t, "completed=~2024-05-02"), "trip")
	wantAliases(t, run(t, "start=2024-05-01~2024-05-31"), "deck")
}

func TestExcludeIsDisjunctive(t *testing.T) {
	// Excludes anything tagged urgent OR done, independent of the
	// other field.
	wantAliases(t, run(t, "any%tags=urgent,status=done"), "deck", "idea")
}

func TestExcludeIgnoresAbsentFields(t *testing.T) {
	// Tasks without a percent never match a percent exclusion.
	wantAliases(t, run(t, "any%percent=1~100"), "mail", "idea")
}

func TestExcludeBareTerm(t *testing.T) {
	wantAliases(t, run(t, "any%mail"), "deck", "trip")
}

func TestExcludeRunsBeforeSearch(t *testing.T) {
	wantAliases(t, run(t, "description=mail%tags=email"), "idea")
}

func TestUIDExactMatch(t *testing.T) {
	wantAliases(t, run(t, "uid=uid-2"), "deck")
	wantAliases(t, run(t, "uid=uid"))
}

func TestCaseInsensitive(t *testing.T) {
	wantAliases(t, run(t, "DESCRIPTION=LAUNCH"), "deck")
	wantAliases(t, run(t, "Tags=URGENT"), "mail")
}
