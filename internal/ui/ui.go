// Package ui implements the interactive terminal mode: a task list
// with add, complete, delete and structured search, built on Bubble
// Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"tend/internal/config"
	"tend/internal/query"
	"tend/internal/recur"
	"tend/internal/storage"
	"tend/internal/task"
	"tend/internal/timeutil"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeSearch
	modeMetadata
)

type metaState struct {
	uid      string
	project  string
	tags     string
	priority string
	start    string
	due      string
	rrule    string
	index    int
}

type Model struct {
	store      *storage.Store
	cfg        config.Config
	loc        *time.Location
	all        []task.Task
	visible    []task.Task
	cursor     int
	mode       mode
	input      textinput.Model
	status     string
	filter     string
	confirmDel bool
	pendingDel *task.Task
	meta       *metaState
}

func Run(store *storage.Store, cfg config.Config, loc *time.Location) error {
	tasks, err := store.FetchTasks()
	if err != nil {
		return err
	}

	ti := textinput.New()
	ti.Placeholder = "Task description"
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		store:   store,
		cfg:     cfg,
		loc:     loc,
		all:     tasks,
		visible: openTasks(tasks),
		input:   ti,
		mode:    modeList,
		status:  "Press 'a' to add, 'c' to complete, '/' to search, 'q' to quit.",
	}
	m.cursor = clampCursor(0, len(m.visible))

	program := tea.NewProgram(m)
	_, err = program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.meta != nil {
			return m.updateMetadataMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		switch m.mode {
		case modeAdd:
			return m.updateAddMode(msg.String(), msg)
		case modeSearch:
			return m.updateSearchMode(msg.String(), msg)
		default:
			return m.updateListMode(msg.String())
		}
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		description := strings.TrimSpace(m.input.Value())
		if description == "" {
			m.status = "Description cannot be empty"
			return m, nil
		}
		now := time.Now()
		t := task.Task{
			UID:         uuid.NewString(),
			Alias:       task.NewAlias(task.Index(m.all)),
			Description: description,
			Status:      task.StatusTodo,
			Created:     &now,
			Updated:     &now,
		}
		if err := m.store.SaveTask(t); err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
			return m, nil
		}
		m = m.reload(fmt.Sprintf("Added task %s", t.Alias))
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeList
		m.filter = ""
		m.visible = openTasks(m.all)
		m.cursor = clampCursor(m.cursor, len(m.visible))
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Search cleared"
		return m, nil
	case m.cfg.Keys.Confirm:
		term := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		if term == "" {
			m.filter = ""
			m.visible = openTasks(m.all)
			m.status = "Search cleared"
			return m, nil
		}
		q, err := query.Parse(term)
		if err != nil {
			m.status = fmt.Sprintf("bad query: %v", err)
			return m, nil
		}
		m.filter = term
		m.visible = q.Filter(m.all, time.Now(), m.loc)
		m.cursor = clampCursor(0, len(m.visible))
		m.status = fmt.Sprintf("%d tasks match %q", len(m.visible), term)
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		if len(m.visible) > 0 {
			m.cursor = clampCursor(m.cursor+1, len(m.visible))
		}
	case m.cfg.Keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.visible))
		}
	case m.cfg.Keys.Add:
		m.mode = modeAdd
		m.input.Placeholder = "Task description"
		m.input.Focus()
		m.status = "Add mode: type a description and press Enter"
	case m.cfg.Keys.Search:
		m.mode = modeSearch
		m.input.Placeholder = "status=todo,tags=work (Enter to filter, Esc to clear)"
		m.input.SetValue(m.filter)
		m.input.Focus()
		m.status = "Search mode"
	case m.cfg.Keys.Complete:
		if len(m.visible) == 0 {
			return m, nil
		}
		return m.completeTask(m.visible[m.cursor])
	case m.cfg.Keys.Delete:
		if len(m.visible) == 0 {
			return m, nil
		}
		t := m.visible[m.cursor]
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete %q? y/n", t.Description)
	case m.cfg.Keys.Detail:
		if len(m.visible) == 0 {
			m.status = "No tasks"
			return m, nil
		}
		m.status = detailLine(m.visible[m.cursor])
	case m.cfg.Keys.Edit:
		if len(m.visible) == 0 {
			m.status = "No tasks to edit"
			return m, nil
		}
		return m.startMetadataEdit(m.visible[m.cursor])
	}
	return m, nil
}

// completeTask marks the task done and, for recurring tasks, saves the
// successor occurrence.
func (m Model) completeTask(t task.Task) (tea.Model, tea.Cmd) {
	now := time.Now()
	t.Status = task.StatusDone
	t.Percent = 100
	t.Completed = &now
	t.Updated = &now
	if err := m.store.SaveTask(t); err != nil {
		m.status = fmt.Sprintf("complete failed: %v", err)
		return m, nil
	}
	note := fmt.Sprintf("Completed %s", t.Alias)

	opt := m.recurOptions()
	if next, ok := task.Successor(t, task.Index(m.all), opt); ok {
		next.Created = &now
		next.Updated = &now
		if err := m.store.SaveTask(next); err != nil {
			m.status = fmt.Sprintf("respawn failed: %v", err)
			return m, nil
		}
		note += fmt.Sprintf(", next occurrence %s starts %s", next.Alias, stampOr(next.Start))
	}
	return m.reload(note), nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.confirmDel = false
			return m, nil
		}
		uid := m.pendingDel.UID
		m.confirmDel = false
		m.pendingDel = nil
		if err := m.store.DeleteTask(uid); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
			return m, nil
		}
		return m.reload("Deleted task"), nil
	default:
		return m, nil
	}
}

// reload refreshes the snapshot and reapplies the active filter.
func (m Model) reload(note string) Model {
	tasks, err := m.store.FetchTasks()
	if err != nil {
		m.status = fmt.Sprintf("reload failed: %v", err)
		return m
	}
	m.all = tasks
	if m.filter != "" {
		if q, err := query.Parse(m.filter); err == nil {
			m.visible = q.Filter(tasks, time.Now(), m.loc)
		} else {
			m.visible = openTasks(tasks)
		}
	} else {
		m.visible = openTasks(tasks)
	}
	m.cursor = clampCursor(m.cursor, len(m.visible))
	m.status = note
	return m
}

func (m Model) recurOptions() recur.Options {
	return recur.Options{
		WeekStart: m.cfg.WeekStart(),
		Limit:     m.cfg.RecurrenceLimit,
		Now:       time.Now(),
	}
}

func (m Model) View() string {
	var b strings.Builder

	title := "tend"
	if m.filter != "" {
		title += "  [filter: " + m.filter + "]"
	}
	b.WriteString(title)
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString("No tasks. Press 'a' to add one.")
	} else {
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n---\n")

	if m.meta != nil {
		b.WriteString("Metadata editor (tab/shift+tab to move, enter to save/next, esc to cancel)")
		b.WriteString("\n\n")
		b.WriteString(m.renderMetaBox())
		b.WriteString("\n")
		b.WriteString(m.input.View())
	} else if m.mode == modeAdd || m.mode == modeSearch {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(m.renderDetailPanel())
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))

	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s complete • %s delete • %s detail • %s edit • %s search • %s quit",
		k.Up, k.Down, k.Add, k.Complete, k.Delete, k.Detail, k.Edit, k.Search, k.Quit)
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	for i, t := range m.visible {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}
		box := "[ ]"
		if t.Status == task.StatusDone {
			box = "[x]"
		} else if t.Status == task.StatusInProgress {
			box = "[~]"
		}
		marker := ""
		if t.Rule != nil {
			marker = " ↻"
		}
		fmt.Fprintf(&b, "%s %s %-6s %s%s\n", cursor, box, t.Alias, t.Description, marker)
	}
	return b.String()
}

func (m Model) renderDetailPanel() string {
	if len(m.visible) == 0 {
		return "No task selected"
	}
	t := m.visible[clampCursor(m.cursor, len(m.visible))]
	var b strings.Builder
	b.WriteString("Detail\n")
	fmt.Fprintf(&b, "Description : %s\n", t.Description)
	fmt.Fprintf(&b, "Status      : %s\n", t.Status)
	fmt.Fprintf(&b, "Project     : %s\n", emptyPlaceholder(t.Project))
	fmt.Fprintf(&b, "Tags        : %s\n", emptyPlaceholder(strings.Join(t.Tags, ",")))
	fmt.Fprintf(&b, "Priority    : %s\n", intPlaceholder(t.Priority))
	fmt.Fprintf(&b, "Start       : %s\n", emptyPlaceholder(stampOr(t.Start)))
	fmt.Fprintf(&b, "Due         : %s\n", emptyPlaceholder(stampOr(t.Due)))
	fmt.Fprintf(&b, "Recurs      : %s\n", emptyPlaceholder(t.Rule.String()))
	return b.String()
}

func detailLine(t task.Task) string {
	info := fmt.Sprintf("%s • %s • %s", t.Alias, t.Description, t.Status)
	if t.Project != "" {
		info += " • project:" + t.Project
	}
	if len(t.Tags) > 0 {
		info += " • tags:" + strings.Join(t.Tags, ",")
	}
	if t.Priority != 0 {
		info += fmt.Sprintf(" • priority:%d", t.Priority)
	}
	if t.Due != nil {
		info += " • due:" + timeutil.Stamp(*t.Due)
	}
	if t.Rule != nil {
		info += " • recurs:" + t.Rule.String()
	}
	return info
}

func openTasks(tasks []task.Task) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if t.Open() {
			out = append(out, t)
		}
	}
	return out
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}

func intPlaceholder(v int) string {
	if v == 0 {
		return "(empty)"
	}
	return fmt.Sprint(v)
}

func stampOr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timeutil.Stamp(*t)
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
