// Package query implements the structured search grammar: parsing the
// <search>[%<exclude>] text form into typed predicate clauses and
// evaluating them against a task snapshot. The search clause is
// conjunctive, the exclude clause disjunctive.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tend/internal/task"
)

// ErrMalformed reports a clause token that cannot be split into
// exactly a key and a value.
var ErrMalformed = errors.New("malformed search expression")

// Domain fallback bounds for the integer range fields.
const (
	PriorityLow  = 1
	PriorityHigh = 1000
	PercentLow   = 0
	PercentHigh  = 100
)

var clauseKeys = []string{
	"uid=", "description=", "location=", "project=", "alias=", "tags=",
	"status=", "parent=", "priority=", "percent=", "start=", "due=",
	"started=", "completed=", "notes=",
}

// Clause is one parsed half of a query: every field is a condition,
// empty meaning "no condition on this field". Tags and Status carry
// +-separated OR lists; the numeric and timestamp fields carry raw
// range expressions resolved at evaluation time.
type Clause struct {
	Any         bool
	UID         string
	Alias       string
	Description string
	Location    string
	Project     string
	Parent      string
	Notes       string
	Tags        []string
	Status      []string
	Priority    string
	Percent     string
	Start       string
	Due         string
	Started     string
	Completed   string
}

// Query is a parsed search term: a search clause and an optional
// exclude clause.
type Query struct {
	Search  *Clause
	Exclude *Clause
}

// Parse splits a raw term on the % exclusion operator and parses each
// half. A clause containing none of the recognized field keys is a
// bare substring match on description; the sentinel "any" matches
// everything.
func Parse(term string) (Query, error) {
	searchTerm := strings.ToLower(strings.TrimSpace(term))
	excludeTerm := ""
	if s, x, found := strings.Cut(searchTerm, "%"); found {
		searchTerm = strings.TrimSpace(s)
		excludeTerm = strings.TrimSpace(x)
	}

	var q Query
	if searchTerm != "" {
		search, err := parseClause(searchTerm, true)
		if err != nil {
			return Query{}, fmt.Errorf("search clause: %w", err)
		}
		q.Search = search
	}
	if excludeTerm != "" {
		exclude, err := parseClause(excludeTerm, false)
		if err != nil {
			return Query{}, fmt.Errorf("exclude clause: %w", err)
		}
		q.Exclude = exclude
	}
	return q, nil
}

func parseClause(s string, allowAny bool) (*Clause, error) {
	if allowAny && s == "any" {
		return &Clause{Any: true}, nil
	}
	recognized := false
	for _, key := range clauseKeys {
		if strings.Contains(s, key) {
			recognized = true
			break
		}
	}
	if !recognized {
		return &Clause{Description: s}, nil
	}

	c := &Clause{}
	for _, item := range strings.Split(s, ",") {
		if strings.Count(item, "=") != 1 {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, item)
		}
		key, value, _ := strings.Cut(item, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "uid":
			c.UID = value
		case "alias":
			c.Alias = value
		case "description":
			c.Description = value
		case "location":
			c.Location = value
		case "project":
			c.Project = value
		case "parent":
			c.Parent = value
		case "notes":
			c.Notes = value
		case "tags":
			c.Tags = splitOrList(value)
		case "status":
			c.Status = splitOrList(value)
		case "priority":
			c.Priority = value
		case "percent":
			c.Percent = value
		case "start":
			c.Start = value
		case "due":
			c.Due = value
		case "started":
			c.Started = value
		case "completed":
			c.Completed = value
		}
	}
	return c, nil
}

func splitOrList(value string) []string {
	var out []string
	for _, v := range strings.Split(value, "+") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Filter evaluates the query against a task snapshot: the exclude
// clause drops a task when any of its conditions matches, then the
// search clause keeps a task only when all of its conditions hold.
// now is the reference clock for open-ended timestamp ranges.
func (q Query) Filter(tasks []task.Task, now time.Time, loc *time.Location) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Exclude != nil && q.Exclude.excludes(t, now, loc) {
			continue
		}
		if q.Search != nil && !q.Search.keeps(t, now, loc) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// excludes implements the OR semantics: any matching condition drops
// the task; a field absent on the task never contributes a match.
func (c *Clause) excludes(t task.Task, now time.Time, loc *time.Location) bool {
	if c.UID != "" && strings.EqualFold(c.UID, t.UID) {
		return true
	}
	if c.Alias != "" && t.Alias != "" && strings.EqualFold(c.Alias, t.Alias) {
		return true
	}
	if c.Description != "" && containsFold(t.Description, c.Description) {
		return true
	}
	if c.Location != "" && containsFold(t.Location, c.Location) {
		return true
	}
	if c.Project != "" && containsFold(t.Project, c.Project) {
		return true
	}
	if len(c.Tags) > 0 && anyTag(c.Tags, t.Tags) {
		return true
	}
	if len(c.Status) > 0 && t.Status != "" && anyEqual(c.Status, t.Status) {
		return true
	}
	if c.Parent != "" && t.Parent != "" && strings.EqualFold(c.Parent, t.Parent) {
		return true
	}
	if c.Priority != "" && t.Priority > 0 {
		begin, end := ParseIntRange(c.Priority, PriorityLow, PriorityHigh)
		if begin <= t.Priority && t.Priority <= end {
			return true
		}
	}
	if c.Percent != "" && t.Percent > 0 {
		begin, end := ParseIntRange(c.Percent, PercentLow, PercentHigh)
		if begin <= t.Percent && t.Percent <= end {
			return true
		}
	}
	if stampInRange(c.Start, t.Start, now, loc) {
		return true
	}
	if stampInRange(c.Due, t.Due, now, loc) {
		return true
	}
	if stampInRange(c.Started, t.Started, now, loc) {
		return true
	}
	if stampInRange(c.Completed, t.Completed, now, loc) {
		return true
	}
	if c.Notes != "" && containsFold(t.Notes, c.Notes) {
		return true
	}
	return false
}

// keeps implements the AND semantics: every condition must hold; a
// condition naming a field absent on the task fails, except for the
// any sentinel which always passes.
func (c *Clause) keeps(t task.Task, now time.Time, loc *time.Location) bool {
	if c.Any {
		return true
	}
	if c.UID != "" && !strings.EqualFold(c.UID, t.UID) {
		return false
	}
	if c.Alias != "" && (t.Alias == "" || !strings.EqualFold(c.Alias, t.Alias)) {
		return false
	}
	if c.Description != "" && !containsFold(t.Description, c.Description) {
		return false
	}
	if c.Location != "" && !containsFold(t.Location, c.Location) {
		return false
	}
	if c.Project != "" && !containsFold(t.Project, c.Project) {
		return false
	}
	if len(c.Tags) > 0 && !anyTag(c.Tags, t.Tags) {
		return false
	}
	if len(c.Status) > 0 && (t.Status == "" || !anyEqual(c.Status, t.Status)) {
		return false
	}
	if c.Parent != "" && (t.Parent == "" || !strings.EqualFold(c.Parent, t.Parent)) {
		return false
	}
	if c.Priority != "" {
		if t.Priority <= 0 {
			return false
		}
		begin, end := ParseIntRange(c.Priority, PriorityLow, PriorityHigh)
		if t.Priority < begin || t.Priority > end {
			return false
		}
	}
	if c.Percent != "" {
		if t.Percent <= 0 {
			return false
		}
		begin, end := ParseIntRange(c.Percent, PercentLow, PercentHigh)
		if t.Percent < begin || t.Percent > end {
			return false
		}
	}
	if c.Start != "" && !stampInRange(c.Start, t.Start, now, loc) {
		return false
	}
	if c.Due != "" && !stampInRange(c.Due, t.Due, now, loc) {
		return false
	}
	if c.Started != "" && !stampInRange(c.Started, t.Started, now, loc) {
		return false
	}
	if c.Completed != "" && !stampInRange(c.Completed, t.Completed, now, loc) {
		return false
	}
	if c.Notes != "" && !containsFold(t.Notes, c.Notes) {
		return false
	}
	return true
}

func stampInRange(expr string, v *time.Time, now time.Time, loc *time.Location) bool {
	if expr == "" || v == nil {
		return false
	}
	begin, end := ParseTimeRange(expr, now, loc)
	return !v.Before(begin) && !v.After(end)
}

func containsFold(haystack, needle string) bool {
	return haystack != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyEqual(wanted []string, value string) bool {
	for _, w := range wanted {
		if strings.EqualFold(w, value) {
			return true
		}
	}
	return false
}

func anyTag(wanted, tags []string) bool {
	for _, w := range wanted {
		for _, tag := range tags {
			if strings.EqualFold(w, tag) {
				return true
			}
		}
	}
	return false
}
