// Package taskfile reads and writes the one-task-per-file YAML format
// used for backups and interchange with other tools.
package taskfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tend/internal/recur"
	"tend/internal/task"
	"tend/internal/timeutil"
)

// ErrNoTask reports a file without a task document.
var ErrNoTask = errors.New("no task data in file")

type document struct {
	Task record `yaml:"task"`
}

type record struct {
	UID         string          `yaml:"uid"`
	Created     string          `yaml:"created,omitempty"`
	Updated     string          `yaml:"updated,omitempty"`
	Alias       string          `yaml:"alias"`
	Description string          `yaml:"description,omitempty"`
	Location    string          `yaml:"location,omitempty"`
	Priority    int             `yaml:"priority,omitempty"`
	Tags        []string        `yaml:"tags,omitempty"`
	Start       string          `yaml:"start,omitempty"`
	Due         string          `yaml:"due,omitempty"`
	Started     string          `yaml:"started,omitempty"`
	Completed   string          `yaml:"completed,omitempty"`
	Percent     int             `yaml:"percent,omitempty"`
	Status      string          `yaml:"status,omitempty"`
	Parent      string          `yaml:"parent,omitempty"`
	Project     string          `yaml:"project,omitempty"`
	RRule       string          `yaml:"rrule,omitempty"`
	Reminders   []task.Reminder `yaml:"reminders,omitempty"`
	Notes       string          `yaml:"notes,omitempty"`
}

// Write stores t as <uid>.yml under dir and returns the file path.
func Write(dir string, t task.Task) (string, error) {
	if t.UID == "" {
		return "", errors.New("task has no uid")
	}
	doc := document{Task: record{
		UID:         t.UID,
		Created:     stamp(t.Created),
		Updated:     stamp(t.Updated),
		Alias:       t.Alias,
		Description: t.Description,
		Location:    t.Location,
		Priority:    t.Priority,
		Tags:        t.Tags,
		Start:       stamp(t.Start),
		Due:         stamp(t.Due),
		Started:     stamp(t.Started),
		Completed:   stamp(t.Completed),
		Percent:     t.Percent,
		Status:      t.Status,
		Parent:      t.Parent,
		Project:     t.Project,
		RRule:       t.Rule.String(),
		Reminders:   t.Reminders,
		Notes:       t.Notes,
	}}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return "", err
	}
	path := filepath.Join(dir, t.UID+".yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Read parses one task file. Naive timestamps are read in loc.
func Read(path string, loc *time.Location) (task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task.Task{}, err
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return task.Task{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	rec := doc.Task
	if rec.UID == "" {
		return task.Task{}, fmt.Errorf("%w: %s", ErrNoTask, path)
	}
	t := task.Task{
		UID:         rec.UID,
		Alias:       strings.ToLower(rec.Alias),
		Description: rec.Description,
		Location:    rec.Location,
		Priority:    rec.Priority,
		Tags:        rec.Tags,
		Percent:     rec.Percent,
		Status:      strings.ToLower(rec.Status),
		Parent:      strings.ToLower(rec.Parent),
		Project:     strings.ToLower(rec.Project),
		Reminders:   rec.Reminders,
		Notes:       rec.Notes,
		Created:     parseStamp(rec.Created, loc),
		Updated:     parseStamp(rec.Updated, loc),
		Start:       parseStamp(rec.Start, loc),
		Due:         parseStamp(rec.Due, loc),
		Started:     parseStamp(rec.Started, loc),
		Completed:   parseStamp(rec.Completed, loc),
	}
	if rec.RRule != "" {
		rule, err := recur.Parse(rec.RRule, loc)
		if err != nil {
			return task.Task{}, fmt.Errorf("%s: %w", path, err)
		}
		t.Rule = rule
	}
	return t, nil
}

// Load reads every .yml file in dir, skipping files it cannot parse
// and duplicate uids/aliases. Skips are reported as warnings, not
// errors, so one damaged file does not hide the rest.
func Load(dir string, loc *time.Location) ([]task.Task, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var tasks []task.Task
	var warnings []string
	seenUID := map[string]string{}
	seenAlias := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		t, err := Read(path, loc)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", path, err))
			continue
		}
		if prev, dup := seenUID[t.UID]; dup {
			warnings = append(warnings, fmt.Sprintf("skipping %s: duplicate uid also in %s", path, prev))
			continue
		}
		if t.Alias != "" {
			if prev, dup := seenAlias[t.Alias]; dup {
				warnings = append(warnings, fmt.Sprintf("skipping %s: duplicate alias also in %s", path, prev))
				continue
			}
			seenAlias[t.Alias] = path
		}
		seenUID[t.UID] = path
		tasks = append(tasks, t)
	}
	return tasks, warnings, nil
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseStamp(s string, loc *time.Location) *time.Time {
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, ok := timeutil.ParseStamp(s, loc)
	if !ok {
		return nil
	}
	return &t
}
