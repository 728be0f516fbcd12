package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tend/internal/task"
	"tend/internal/timeutil"
)

var listViews = []string{"all", "open", "done", "late", "soon", "today"}

func listCmd(app *App) *cobra.Command {
	var sortField string
	var reverse bool

	cmd := &cobra.Command{
		Use:   "list [view]",
		Short: "List tasks by view",
		Long: `List tasks. Views:
  all    every task
  open   tasks that are not done or cancelled (default)
  done   completed tasks
  late   open tasks whose due time has passed
  soon   open tasks due within the configured horizon
  today  open tasks starting or due today`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := "open"
			if len(args) == 1 {
				view = strings.ToLower(args[0])
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

			now := app.now()
			switch view {
			case "all":
			case "open":
				tasks = onlyOpen(tasks)
			case "done":
				tasks = onlyStatus(tasks, task.StatusDone)
			case "late":
				tasks = task.Late(tasks, now)
			case "soon":
				tasks = task.Soon(tasks, now, app.cfg.DaysSoon)
			case "today":
				tasks = task.Today(tasks, now)
			default:
				return fmt.Errorf("unknown view %q (one of %s)", view, strings.Join(listViews, ", "))
			}
			tasks = task.SortBy(tasks, sortField, reverse)
			app.renderTable(tasks)
			return nil
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", "priority", "sort field (priority, percent, description, start, due, created, alias)")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "reverse the sort order")
	return cmd
}

func onlyOpen(tasks []task.Task) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if t.Open() {
			out = append(out, t)
		}
	}
	return out
}

func onlyStatus(tasks []task.Task, status string) []task.Task {
	var out []task.Task
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

func (a *App) renderTable(tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return
	}
	color.NoColor = color.NoColor || !a.cfg.Color

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ALIAS\tPRI\tSTATUS\tDUE\tTAGS\tDESCRIPTION")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Alias,
			a.priorityLabel(t.Priority),
			statusLabel(t.Status),
			stampOrDash(t.Due),
			strings.Join(t.Tags, ","),
			t.Description,
		)
	}
	w.Flush()
}

// priorityLabel colors a priority by the configured bands: at or below
// priority_high is urgent, then medium, then normal.
func (a *App) priorityLabel(priority int) string {
	if priority == 0 {
		return "-"
	}
	label := fmt.Sprint(priority)
	switch {
	case priority <= a.cfg.PriorityHigh:
		return color.New(color.FgRed).Sprint(label)
	case priority <= a.cfg.PriorityMedium:
		return color.New(color.FgYellow).Sprint(label)
	case priority <= a.cfg.PriorityNormal:
		return color.New(color.FgGreen).Sprint(label)
	default:
		return label
	}
}

func statusLabel(status string) string {
	switch status {
	case task.StatusDone:
		return color.New(color.FgGreen).Sprint(status)
	case task.StatusInProgress:
		return color.New(color.FgCyan).Sprint(status)
	case task.StatusBlocked, task.StatusOnHold:
		return color.New(color.FgRed).Sprint(status)
	case task.StatusWaiting:
		return color.New(color.FgYellow).Sprint(status)
	case task.StatusCancelled:
		return color.New(color.Faint).Sprint(status)
	default:
		return status
	}
}

func stampOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return timeutil.Stamp(*t)
}
