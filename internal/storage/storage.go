// Package storage persists task records in a local sqlite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tend/internal/recur"
	"tend/internal/task"
)

// ErrNotFound reports a lookup for a task that is not in the store.
var ErrNotFound = errors.New("task not found")

// ErrAliasTaken reports an attempt to save a task under an alias that
// already belongs to a different task.
var ErrAliasTaken = errors.New("alias already in use")

type Store struct {
	db  *sql.DB
	loc *time.Location
}

// Open opens (creating if needed) the task database at dbPath. Naive
// timestamps in recurrence descriptors are interpreted in loc.
func Open(dbPath string, loc *time.Location) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, loc: loc}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	uid TEXT PRIMARY KEY,
	alias TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	project TEXT NOT NULL DEFAULT '',
	parent TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 0,
	percent INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'todo',
	start_at TEXT DEFAULT NULL,
	due TEXT DEFAULT NULL,
	started TEXT DEFAULT NULL,
	completed TEXT DEFAULT NULL,
	created TEXT DEFAULT NULL,
	updated TEXT DEFAULT NULL,
	rrule TEXT NOT NULL DEFAULT '',
	reminders TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS tasks_alias ON tasks(alias) WHERE alias != '';`
	_, err := s.db.Exec(ddl)
	return err
}

const taskColumns = `uid, alias, description, location, project, parent, tags,
	priority, percent, status, start_at, due, started, completed, created,
	updated, rrule, reminders, notes`

// FetchTasks loads the full task snapshot ordered by alias.
func (s *Store) FetchTasks() ([]task.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY alias;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := s.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetByAlias returns the task with the given alias (case-insensitive).
func (s *Store) GetByAlias(alias string) (task.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE alias = ?;`,
		strings.ToLower(alias))
	t, err := s.scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("%w: alias %q", ErrNotFound, alias)
	}
	return t, err
}

// SaveTask inserts or updates a task record keyed by uid. Saving under
// an alias owned by a different task fails with ErrAliasTaken; a plain
// INSERT OR REPLACE would instead resolve the alias-index conflict by
// deleting the other task's row.
func (s *Store) SaveTask(t task.Task) error {
	if t.UID == "" {
		return errors.New("task has no uid")
	}
	alias := strings.ToLower(t.Alias)
	if alias != "" {
		var owner string
		err := s.db.QueryRow(`SELECT uid FROM tasks WHERE alias = ?;`, alias).Scan(&owner)
		switch {
		case err == nil && owner != t.UID:
			return fmt.Errorf("%w: %q belongs to task %s", ErrAliasTaken, alias, owner)
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO tasks (`+taskColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(uid) DO UPDATE SET
		alias = excluded.alias,
		description = excluded.description,
		location = excluded.location,
		project = excluded.project,
		parent = excluded.parent,
		tags = excluded.tags,
		priority = excluded.priority,
		percent = excluded.percent,
		status = excluded.status,
		start_at = excluded.start_at,
		due = excluded.due,
		started = excluded.started,
		completed = excluded.completed,
		created = excluded.created,
		updated = excluded.updated,
		rrule = excluded.rrule,
		reminders = excluded.reminders,
		notes = excluded.notes;`,
		t.UID, alias, t.Description, t.Location,
		strings.ToLower(t.Project), strings.ToLower(t.Parent),
		strings.Join(t.Tags, ","), t.Priority, t.Percent, t.Status,
		stampOrNull(t.Start), stampOrNull(t.Due), stampOrNull(t.Started),
		stampOrNull(t.Completed), stampOrNull(t.Created), stampOrNull(t.Updated),
		t.Rule.String(), encodeReminders(t.Reminders), t.Notes)
	return err
}

// DeleteTask removes a task by uid.
func (s *Store) DeleteTask(uid string) error {
	res, err := s.db.Exec(`DELETE FROM tasks WHERE uid = ?;`, uid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: uid %q", ErrNotFound, uid)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTask(row rowScanner) (task.Task, error) {
	var t task.Task
	var tags, rrule, reminders string
	var start, due, started, completed, created, updated sql.NullString
	if err := row.Scan(&t.UID, &t.Alias, &t.Description, &t.Location,
		&t.Project, &t.Parent, &tags, &t.Priority, &t.Percent, &t.Status,
		&start, &due, &started, &completed, &created, &updated,
		&rrule, &reminders, &t.Notes); err != nil {
		return task.Task{}, err
	}
	if tags != "" {
		t.Tags = strings.Split(tags, ",")
	}
	t.Start = parseStored(start, s.loc)
	t.Due = parseStored(due, s.loc)
	t.Started = parseStored(started, s.loc)
	t.Completed = parseStored(completed, s.loc)
	t.Created = parseStored(created, s.loc)
	t.Updated = parseStored(updated, s.loc)
	if rrule != "" {
		// A descriptor that was saved is already normalized; a parse
		// error here means a hand-edited row and is treated as no rule.
		t.Rule, _ = recur.Parse(rrule, s.loc)
	}
	t.Reminders = decodeReminders(reminders)
	return t, nil
}

func stampOrNull(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseStored(v sql.NullString, loc *time.Location) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil
	}
	t = t.In(loc)
	return &t
}

// Reminders are stored as expression|notify pairs joined by
// semicolons; neither character occurs in the reminder grammar.
func encodeReminders(reminders []task.Reminder) string {
	parts := make([]string, 0, len(reminders))
	for _, r := range reminders {
		if r.Notify != "" {
			parts = append(parts, r.Remind+"|"+r.Notify)
		} else {
			parts = append(parts, r.Remind)
		}
	}
	return strings.Join(parts, ";")
}

func decodeReminders(encoded string) []task.Reminder {
	if encoded == "" {
		return nil
	}
	var out []task.Reminder
	for _, part := range strings.Split(encoded, ";") {
		remind, notify, _ := strings.Cut(part, "|")
		if remind != "" {
			out = append(out, task.Reminder{Remind: remind, Notify: notify})
		}
	}
	return out
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
