package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tend/internal/recur"
	"tend/internal/task"
	"tend/internal/timeutil"
)

func metaFields() []string {
	return []string{
		"project",
		"tags (comma-separated)",
		"priority",
		"start (YYYY-MM-DD [HH:MM])",
		"due (YYYY-MM-DD [HH:MM])",
		"rrule (freq=daily;...)",
	}
}

func (m Model) startMetadataEdit(t task.Task) (tea.Model, tea.Cmd) {
	m.meta = &metaState{
		uid:      t.UID,
		project:  t.Project,
		tags:     strings.Join(t.Tags, ","),
		priority: intValue(t.Priority),
		start:    stampOr(t.Start),
		due:      stampOr(t.Due),
		rrule:    t.Rule.String(),
		index:    0,
	}
	m.input.SetValue(m.meta.currentValue())
	m.input.Placeholder = m.meta.currentLabel()
	m.input.Focus()
	m.mode = modeMetadata
	m.status = "Edit metadata: tab to move, enter to save/next, esc to cancel"
	return m, nil
}

func (m Model) updateMetadataMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.meta = nil
		m.mode = modeList
		m.input.Blur()
		m.input.SetValue("")
		m.status = "Edit cancelled"
		return m, nil
	case "tab", "down":
		m.meta.setCurrentValue(m.input.Value())
		m.meta.index = wrapIndex(m.meta.index+1, len(metaFields()))
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		return m, nil
	case "shift+tab", "up":
		m.meta.setCurrentValue(m.input.Value())
		m.meta.index = wrapIndex(m.meta.index-1, len(metaFields()))
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.meta.setCurrentValue(m.input.Value())
		if m.meta.index >= len(metaFields())-1 {
			return m.saveMetadata()
		}
		m.meta.index++
		m.input.SetValue(m.meta.currentValue())
		m.input.Placeholder = m.meta.currentLabel()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) saveMetadata() (tea.Model, tea.Cmd) {
	if m.meta == nil {
		return m, nil
	}
	var current *task.Task
	for i := range m.all {
		if m.all[i].UID == m.meta.uid {
			current = &m.all[i]
			break
		}
	}
	if current == nil {
		m.meta = nil
		m.mode = modeList
		m.status = "Task disappeared"
		return m, nil
	}
	t := *current

	t.Project = strings.ToLower(strings.TrimSpace(m.meta.project))
	t.Tags = splitTags(m.meta.tags)

	priority, err := parsePriority(m.meta.priority)
	if err != nil {
		m.status = fmt.Sprintf("priority invalid: %v", err)
		return m, nil
	}
	t.Priority = priority

	start, err := parseStampField(m.meta.start, m.loc)
	if err != nil {
		m.status = fmt.Sprintf("start invalid: %v", err)
		return m, nil
	}
	t.Start = start

	due, err := parseStampField(m.meta.due, m.loc)
	if err != nil {
		m.status = fmt.Sprintf("due invalid: %v", err)
		return m, nil
	}
	t.Due = due

	if strings.TrimSpace(m.meta.rrule) == "" {
		t.Rule = nil
	} else {
		rule, err := recur.Parse(m.meta.rrule, m.loc)
		if err != nil {
			m.status = fmt.Sprintf("rrule invalid: %v", err)
			return m, nil
		}
		t.Rule = rule
	}

	now := time.Now()
	t.Updated = &now
	if err := m.store.SaveTask(t); err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	}
	m.meta = nil
	m.mode = modeList
	m.input.Blur()
	m.input.SetValue("")
	return m.reload("Metadata saved"), nil
}

func (m Model) renderMetaBox() string {
	if m.meta == nil {
		return ""
	}
	fields := metaFields()
	values := []string{
		m.meta.project,
		m.meta.tags,
		m.meta.priority,
		m.meta.start,
		m.meta.due,
		m.meta.rrule,
	}
	var b strings.Builder
	for i, name := range fields {
		prefix := " "
		if i == m.meta.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		fmt.Fprintf(&b, "%s %-28s : %s\n", prefix, name, val)
	}
	return b.String()
}

func (ms metaState) currentLabel() string {
	return metaFields()[ms.index]
}

func (ms metaState) currentValue() string {
	switch ms.index {
	case 0:
		return ms.project
	case 1:
		return ms.tags
	case 2:
		return ms.priority
	case 3:
		return ms.start
	case 4:
		return ms.due
	case 5:
		return ms.rrule
	default:
		return ""
	}
}

func (ms *metaState) setCurrentValue(v string) {
	switch ms.index {
	case 0:
		ms.project = v
	case 1:
		ms.tags = v
	case 2:
		ms.priority = v
	case 3:
		ms.start = v
	case 4:
		ms.due = v
	case 5:
		ms.rrule = v
	}
}

func parsePriority(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 1000 {
		return 0, fmt.Errorf("%d out of range 1-1000", n)
	}
	return n, nil
}

func parseStampField(v string, loc *time.Location) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, ok := timeutil.ParseStamp(v, loc)
	if !ok {
		return nil, fmt.Errorf("unparsable timestamp %q", v)
	}
	return &t, nil
}

func splitTags(v string) []string {
	var out []string
	for _, tag := range strings.Split(v, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func intValue(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
