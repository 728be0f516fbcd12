package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tend/internal/ical"
	"tend/internal/query"
	"tend/internal/task"
	"tend/internal/timeutil"
)

func queryCmd(app *App) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "query <term>",
		Aliases: []string{"search"},
		Short:   "Search tasks with a structured query",
		Long: `Search tasks. A term is search criteria, optionally followed by
'%' and exclusion criteria. Criteria are comma-separated field=value
pairs; a bare word matches the description. Examples:

  tend query status=todo,priority=1~3
  tend query tags=work+home%status=done
  tend query any%project=chores
  tend query due=2024-06-01~2024-06-30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := query.Parse(args[0])
			if err != nil {
				return err
			}
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}
			matched := q.Filter(tasks, app.now(), app.loc)
			if limit > 0 && len(matched) > limit {
				matched = matched[:limit]
			}
			if asJSON {
				return writeJSON(os.Stdout, matched)
			}
			app.renderTable(matched)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = no limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit results as JSON")
	return cmd
}

func infoCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <alias>",
		Short: "Show the full record of one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}
			t, err := lookup(tasks, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, t)
			}
			app.renderInfo(t, tasks)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the record as JSON")
	return cmd
}

func (a *App) renderInfo(t task.Task, all []task.Task) {
	row := func(name, value string) {
		if value != "" {
			fmt.Printf("%-12s %s\n", name+":", value)
		}
	}
	row("uid", t.UID)
	row("alias", t.Alias)
	row("description", t.Description)
	row("location", t.Location)
	row("project", t.Project)
	row("parent", t.Parent)
	row("tags", strings.Join(t.Tags, ","))
	if t.Priority > 0 {
		row("priority", fmt.Sprint(t.Priority))
	}
	if t.Percent > 0 {
		row("percent", fmt.Sprint(t.Percent))
	}
	row("status", t.Status)
	row("start", stampOr(t.Start))
	row("due", stampOr(t.Due))
	row("started", stampOr(t.Started))
	row("completed", stampOr(t.Completed))
	row("created", stampOr(t.Created))
	row("updated", stampOr(t.Updated))
	row("rrule", t.Rule.String())
	for _, r := range t.Reminders {
		at, ok := task.ReminderTime(r.Remind, t.Start, t.Due, a.cfg.DefaultDuration, a.loc)
		resolved := "unresolvable"
		if ok {
			resolved = timeutil.Stamp(at)
		}
		notify := r.Notify
		if notify == "" {
			notify = "display"
		}
		fmt.Printf("%-12s %s (%s, %s)\n", "reminder:", r.Remind, resolved, notify)
	}
	if t.Rule != nil && t.Start != nil {
		opt := a.recurOptions()
		opt.IncludePast = true
		occurrences := t.Rule.Occurrences(*t.Start, opt)
		if len(occurrences) > 0 {
			preview := occurrences
			if len(preview) > 5 {
				preview = preview[:5]
			}
			stamps := make([]string, len(preview))
			for i, at := range preview {
				stamps[i] = timeutil.Stamp(at)
			}
			fmt.Printf("%-12s %s (%d total)\n", "occurs:", strings.Join(stamps, ", "), len(occurrences))
		}
	}
	if uids := task.Children(all)[t.UID]; len(uids) > 0 {
		byUID := make(map[string]string, len(all))
		for _, other := range all {
			byUID[other.UID] = other.Alias
		}
		aliases := make([]string, len(uids))
		for i, uid := range uids {
			aliases[i] = byUID[uid]
		}
		row("subtasks", strings.Join(aliases, ","))
	}
	if t.Notes != "" {
		fmt.Printf("\n%s\n", t.Notes)
	}
}

func exportCmd(app *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <term>",
		Short: "Export matching tasks as iCalendar VTODO data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := query.Parse(args[0])
			if err != nil {
				return err
			}
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}
			matched := q.Filter(tasks, app.now(), app.loc)
			if len(matched) == 0 {
				fmt.Println("No records found.")
				return nil
			}
			data := ical.Export(matched, task.Index(tasks), app.cfg.UserEmail, app.now(), app.loc)
			if output == "" {
				fmt.Print(data)
				return nil
			}
			if err := os.WriteFile(output, []byte(data), 0o644); err != nil {
				return err
			}
			fmt.Printf("iCalendar data written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func remindersCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reminders [interval]",
		Short: "Show reminders coming up within an interval (default 1h)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interval := time.Hour
			if len(args) == 1 {
				span := timeutil.ParseSpan(args[0])
				if span <= 0 {
					return fmt.Errorf("unparsable interval %q (use forms like 30m, 2h, 1d)", args[0])
				}
				interval = span
			}
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			tasks, err := store.FetchTasks()
			if err != nil {
				return err
			}
			upcoming := task.UpcomingReminders(tasks, app.now(), interval,
				app.cfg.DefaultDuration, app.cfg.UserEmail, app.loc)
			if asJSON {
				return writeJSON(os.Stdout, upcoming)
			}
			if len(upcoming) == 0 {
				fmt.Println("No reminders in the next", interval)
				return nil
			}
			for _, r := range upcoming {
				fmt.Printf("%s  %s  %s (%s)\n",
					timeutil.Stamp(r.At), r.Notify, r.Task.Description, r.Task.Alias)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the agenda as JSON")
	return cmd
}

func writeJSON(w *os.File, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func stampOr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timeutil.Stamp(*t)
}
