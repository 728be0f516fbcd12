// Package task defines the task record and the pure helpers that
// operate on an in-memory snapshot of the task set: status handling,
// sorting, due-date views, alias indexing, and recurrence respawn.
package task

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"tend/internal/recur"
)

// Task statuses. Anything else is carried verbatim and treated as the
// default status for filtering and display.
const (
	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusWaiting    = "waiting"
	StatusOnHold     = "onhold"
	StatusBlocked    = "blocked"
	StatusCancelled  = "cancelled"
	StatusDone       = "done"
)

// Statuses lists the recognized status values in display order.
var Statuses = []string{
	StatusTodo, StatusInProgress, StatusWaiting, StatusOnHold,
	StatusBlocked, StatusCancelled, StatusDone,
}

// KnownStatus reports whether s is one of the recognized statuses.
func KnownStatus(s string) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Reminder is one reminder entry on a task: an absolute timestamp or a
// start/due-relative expression, plus the notification method.
type Reminder struct {
	Remind string `yaml:"remind"`
	Notify string `yaml:"notify,omitempty"`
}

// Task is one task record. Optional timestamps are nil pointers;
// Priority and Percent use zero for "not set".
type Task struct {
	UID         string
	Alias       string
	Description string
	Location    string
	Project     string
	Parent      string // alias of the parent task
	Tags        []string
	Priority    int
	Percent     int
	Status      string
	Start       *time.Time
	Due         *time.Time
	Started     *time.Time
	Completed   *time.Time
	Created     *time.Time
	Updated     *time.Time
	Rule        *recur.Rule
	Reminders   []Reminder
	Notes       string
}

// Open reports whether the task still needs attention.
func (t Task) Open() bool {
	return t.Status != StatusDone && t.Status != StatusCancelled
}

// SortBy orders a snapshot by one of: priority (missing sorts last),
// percent (missing sorts first), alias, description, start, due or
// created. The input slice is not modified.
func SortBy(tasks []Task, field string, reverse bool) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	less := func(i, j int) bool { return out[i].Alias < out[j].Alias }
	switch field {
	case "priority":
		less = func(i, j int) bool { return sortPriority(out[i]) < sortPriority(out[j]) }
	case "percent":
		less = func(i, j int) bool { return out[i].Percent < out[j].Percent }
	case "description":
		less = func(i, j int) bool {
			return strings.ToLower(out[i].Description) < strings.ToLower(out[j].Description)
		}
	case "start":
		less = func(i, j int) bool { return stampLess(out[i].Start, out[j].Start) }
	case "due":
		less = func(i, j int) bool { return stampLess(out[i].Due, out[j].Due) }
	case "created":
		less = func(i, j int) bool { return stampLess(out[i].Created, out[j].Created) }
	}
	sort.SliceStable(out, less)
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func sortPriority(t Task) int {
	if t.Priority <= 0 {
		return 1000
	}
	return t.Priority
}

func stampLess(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Before(*b)
}

// Late returns the tasks overdue to start or finish as of now. A start
// or due date carrying no time of day only counts as late after the
// end of that day.
func Late(tasks []Task, now time.Time) []Task {
	var out []Task
	for _, t := range tasks {
		start := pushBareDate(t.Start)
		due := pushBareDate(t.Due)
		late := false
		if t.Status == StatusTodo && start != nil && !start.After(now) {
			late = true
		}
		if t.Open() && due != nil && !due.After(now) {
			late = true
		}
		if late {
			out = append(out, t)
		}
	}
	return out
}

// Soon returns open tasks that start or come due within the next
// `days` days.
func Soon(tasks []Task, now time.Time, days int) []Task {
	horizon := now.AddDate(0, 0, days)
	var out []Task
	for _, t := range tasks {
		soon := false
		if t.Status == StatusTodo && t.Start != nil &&
			t.Start.After(now) && !t.Start.After(horizon) {
			soon = true
		}
		if t.Status != StatusDone && t.Due != nil &&
			t.Due.After(now) && !t.Due.After(horizon) {
			soon = true
		}
		if soon {
			out = append(out, t)
		}
	}
	return out
}

// Today returns tasks that start or come due on now's calendar day.
func Today(tasks []Task, now time.Time) []Task {
	var out []Task
	for _, t := range tasks {
		today := false
		if t.Status == StatusTodo && t.Start != nil && sameDay(*t.Start, now) {
			today = true
		}
		if t.Status != StatusDone && t.Due != nil && sameDay(*t.Due, now) {
			today = true
		}
		if today {
			out = append(out, t)
		}
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func pushBareDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if t.Hour() == 0 && t.Minute() == 0 {
		pushed := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
		return &pushed
	}
	return t
}

// Index maps lowercase alias to uid, built once per snapshot.
func Index(tasks []Task) map[string]string {
	idx := make(map[string]string, len(tasks))
	for _, t := range tasks {
		if t.Alias != "" {
			idx[strings.ToLower(t.Alias)] = t.UID
		}
	}
	return idx
}

// Children maps a parent task's uid to the uids of its subtasks,
// resolving the alias back-references through a single alias index.
func Children(tasks []Task) map[string][]string {
	byAlias := Index(tasks)
	out := make(map[string][]string)
	for _, t := range tasks {
		if t.Parent == "" {
			continue
		}
		if parentUID, ok := byAlias[strings.ToLower(t.Parent)]; ok {
			out[parentUID] = append(out[parentUID], t.UID)
		}
	}
	return out
}

const aliasChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewAlias generates a random four-character alias that does not
// collide with any existing alias.
func NewAlias(existing map[string]string) string {
	for {
		b := make([]byte, 4)
		for i := range b {
			b[i] = aliasChars[rand.Intn(len(aliasChars))]
		}
		alias := string(b)
		if _, taken := existing[alias]; !taken {
			return alias
		}
	}
}

// Successor builds the follow-up task spawned when a recurring task is
// completed or cancelled: same descriptor and metadata, fresh uid and
// alias, status reset to todo, start/due advanced to the next
// occurrence. ok is false when the task does not recur or the series
// is exhausted.
func Successor(t Task, aliases map[string]string, opt recur.Options) (Task, bool) {
	if t.Rule == nil || t.Start == nil {
		return Task{}, false
	}
	var due time.Time
	if t.Due != nil {
		due = *t.Due
	}
	nextStart, nextDue, ok := t.Rule.Next(*t.Start, due, opt)
	if !ok {
		return Task{}, false
	}
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}
	next := t
	next.UID = uuid.NewString()
	next.Alias = NewAlias(aliases)
	next.Status = StatusTodo
	next.Percent = 0
	next.Started = nil
	next.Completed = nil
	next.Created = &now
	next.Updated = &now
	next.Start = &nextStart
	if nextDue.IsZero() {
		next.Due = nil
	} else {
		next.Due = &nextDue
	}
	next.Tags = append([]string(nil), t.Tags...)
	next.Reminders = append([]Reminder(nil), t.Reminders...)
	return next, true
}
