package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tend/internal/recur"
	"tend/internal/storage"
	"tend/internal/task"
	"tend/internal/timeutil"
)

// taskFlags is the flag set shared by new and modify. Only flags the
// user actually set are applied, so modify leaves other fields alone.
type taskFlags struct {
	location  string
	project   string
	parent    string
	tags      []string
	priority  int
	percent   int
	status    string
	start     string
	due       string
	rrule     string
	reminders []string
	notes     string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.location, "location", "", "task location")
	cmd.Flags().StringVar(&f.project, "project", "", "project name")
	cmd.Flags().StringVar(&f.parent, "parent", "", "alias of the parent task")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().IntVar(&f.priority, "priority", 0, "priority (1 is highest)")
	cmd.Flags().IntVar(&f.percent, "percent", 0, "percent complete (0-100)")
	cmd.Flags().StringVar(&f.status, "status", "", "task status")
	cmd.Flags().StringVar(&f.start, "start", "", "start timestamp")
	cmd.Flags().StringVar(&f.due, "due", "", "due timestamp")
	cmd.Flags().StringVar(&f.rrule, "rrule", "", "recurrence rule (freq=daily;interval=2;...)")
	cmd.Flags().StringArrayVar(&f.reminders, "reminder", nil, "reminder expression, optionally expr|notify (repeatable)")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
}

// apply copies the flags the user set onto t.
func (f *taskFlags) apply(cmd *cobra.Command, t *task.Task, app *App) error {
	changed := cmd.Flags().Changed
	if changed("location") {
		t.Location = f.location
	}
	if changed("project") {
		t.Project = strings.ToLower(f.project)
	}
	if changed("parent") {
		t.Parent = strings.ToLower(f.parent)
	}
	if changed("tag") {
		t.Tags = f.tags
	}
	if changed("priority") {
		if f.priority < 1 || f.priority > 1000 {
			return fmt.Errorf("priority %d out of range 1-1000", f.priority)
		}
		t.Priority = f.priority
	}
	if changed("percent") {
		if f.percent < 0 || f.percent > 100 {
			return fmt.Errorf("percent %d out of range 0-100", f.percent)
		}
		t.Percent = f.percent
	}
	if changed("status") {
		status := strings.ToLower(f.status)
		if !task.KnownStatus(status) {
			return fmt.Errorf("unknown status %q", f.status)
		}
		t.Status = status
	}
	if changed("start") {
		at, ok := timeutil.ParseStamp(f.start, app.loc)
		if !ok {
			return fmt.Errorf("unparsable start timestamp %q", f.start)
		}
		t.Start = &at
	}
	if changed("due") {
		at, ok := timeutil.ParseStamp(f.due, app.loc)
		if !ok {
			return fmt.Errorf("unparsable due timestamp %q", f.due)
		}
		t.Due = &at
	}
	if changed("rrule") {
		rule, err := recur.Parse(f.rrule, app.loc)
		if err != nil {
			return err
		}
		t.Rule = rule
	}
	if changed("reminder") {
		t.Reminders = nil
		for _, raw := range f.reminders {
			remind, notify, _ := strings.Cut(raw, "|")
			remind = strings.TrimSpace(remind)
			// An empty expression means "remind me the usual way".
			if remind == "" {
				remind = app.cfg.DefaultReminder
			}
			t.Reminders = append(t.Reminders, task.Reminder{
				Remind: remind,
				Notify: strings.ToLower(strings.TrimSpace(notify)),
			})
		}
	}
	if changed("notes") {
		t.Notes = f.notes
	}
	return nil
}

func newCmd(app *App) *cobra.Command {
	flags := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "new <description>",
		Short: "Create a new task",
		Args:  cobra.MinimumNArgs(1),
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

			now := app.now()
			t := task.Task{
				UID:         uuid.NewString(),
				Alias:       task.NewAlias(task.Index(tasks)),
				Description: strings.Join(args, " "),
				Status:      task.StatusTodo,
				Created:     &now,
				Updated:     &now,
			}
			if err := flags.apply(cmd, &t, app); err != nil {
				return err
			}
			if err := store.SaveTask(t); err != nil {
				return err
			}
			fmt.Printf("Added task %s (%s)\n", t.Alias, t.UID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func modifyCmd(app *App) *cobra.Command {
	flags := &taskFlags{}
	var description string
	cmd := &cobra.Command{
		Use:     "modify <alias>",
		Aliases: []string{"mod"},
		Short:   "Modify fields of a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.updateTask(args[0], func(t *task.Task) error {
				if cmd.Flags().Changed("description") {
					t.Description = description
				}
				return flags.apply(cmd, t, app)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&description, "description", "", "task description")
	return cmd
}

// unsettable names the fields that can be cleared.
var unsettable = map[string]func(*task.Task){
	"location":  func(t *task.Task) { t.Location = "" },
	"project":   func(t *task.Task) { t.Project = "" },
	"parent":    func(t *task.Task) { t.Parent = "" },
	"tags":      func(t *task.Task) { t.Tags = nil },
	"priority":  func(t *task.Task) { t.Priority = 0 },
	"percent":   func(t *task.Task) { t.Percent = 0 },
	"start":     func(t *task.Task) { t.Start = nil },
	"due":       func(t *task.Task) { t.Due = nil },
	"started":   func(t *task.Task) { t.Started = nil },
	"completed": func(t *task.Task) { t.Completed = nil },
	"rrule":     func(t *task.Task) { t.Rule = nil },
	"reminders": func(t *task.Task) { t.Reminders = nil },
	"notes":     func(t *task.Task) { t.Notes = "" },
}

func unsetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <alias> <field>...",
		Short: "Clear fields of a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.updateTask(args[0], func(t *task.Task) error {
				for _, field := range args[1:] {
					clear, ok := unsettable[strings.ToLower(field)]
					if !ok {
						return fmt.Errorf("field %q cannot be unset", field)
					}
					clear(t)
				}
				return nil
			})
		},
	}
}

func startCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start <alias>",
		Short: "Mark a task as started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := app.now()
			return app.updateTask(args[0], func(t *task.Task) error {
				t.Status = task.StatusInProgress
				t.Started = &now
				return nil
			})
		},
	}
}

func completeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "complete <alias>",
		Aliases: []string{"done"},
		Short:   "Mark a task done, respawning the next occurrence of a recurring task",
		Args:    cobra.ExactArgs(1),
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

			now := app.now()
			t.Status = task.StatusDone
			t.Percent = 100
			t.Completed = &now
			t.Updated = &now
			if err := store.SaveTask(t); err != nil {
				return err
			}
			fmt.Printf("Completed task %s\n", t.Alias)

			next, ok := task.Successor(t, task.Index(tasks), app.recurOptions())
			if !ok {
				return nil
			}
			next.Created = &now
			next.Updated = &now
			if err := store.SaveTask(next); err != nil {
				return err
			}
			fmt.Printf("Recurring: next occurrence is %s, starting %s\n",
				next.Alias, stampOrDash(next.Start))
			return nil
		},
	}
}

func deleteCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete <alias>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			t, err := store.GetByAlias(args[0])
			if err != nil {
				return err
			}
			if !force && !confirm(fmt.Sprintf("Delete task %s (%q)?", t.Alias, t.Description)) {
				fmt.Println("Cancelled.")
				return nil
			}
			if err := store.DeleteTask(t.UID); err != nil {
				return err
			}
			fmt.Printf("Deleted task %s\n", t.Alias)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")
	return cmd
}

// updateTask loads one task by alias, applies fn, stamps updated and
// saves it back.
func (a *App) updateTask(ref string, fn func(*task.Task) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	t, err := a.findTask(store, ref)
	if err != nil {
		return err
	}
	if err := fn(&t); err != nil {
		return err
	}
	now := a.now()
	t.Updated = &now
	if err := store.SaveTask(t); err != nil {
		return err
	}
	fmt.Printf("Updated task %s\n", t.Alias)
	return nil
}

func (a *App) findTask(store *storage.Store, ref string) (task.Task, error) {
	t, err := store.GetByAlias(ref)
	if err == nil {
		return t, nil
	}
	tasks, ferr := store.FetchTasks()
	if ferr != nil {
		return task.Task{}, ferr
	}
	return lookup(tasks, ref)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
