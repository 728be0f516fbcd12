// Package cli wires the command-line interface: every subcommand, the
// shared config/store plumbing, and the task rendering helpers.
package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tend/internal/config"
	"tend/internal/recur"
	"tend/internal/storage"
	"tend/internal/task"
)

const version = "0.1.0"

// App carries the state shared by every subcommand. The config is
// loaded once by the root PersistentPreRunE; the store is opened on
// demand because not every command touches the database.
type App struct {
	cfg        config.Config
	configPath string
	loc        *time.Location
	now        func() time.Time
}

// Root builds the tend command tree.
func Root() *cobra.Command {
	app := &App{loc: time.Local, now: time.Now}

	root := &cobra.Command{
		Use:           "tend",
		Short:         "tend - a task manager with recurrence, reminders and structured search",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := app.configPath
			if path == "" {
				path = config.ResolvePath()
			}
			cfg, err := config.LoadOrCreate(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			app.cfg = cfg
			app.configPath = path
			return nil
		},
	}
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file path")

	root.AddCommand(newCmd(app))
	root.AddCommand(listCmd(app))
	root.AddCommand(infoCmd(app))
	root.AddCommand(modifyCmd(app))
	root.AddCommand(unsetCmd(app))
	root.AddCommand(startCmd(app))
	root.AddCommand(completeCmd(app))
	root.AddCommand(deleteCmd(app))
	root.AddCommand(queryCmd(app))
	root.AddCommand(exportCmd(app))
	root.AddCommand(remindersCmd(app))
	root.AddCommand(backupCmd(app))
	root.AddCommand(importCmd(app))
	root.AddCommand(uiCmd(app))

	return root
}

// dbPath resolves the configured database path; a relative path lives
// next to the config file.
func (a *App) dbPath() string {
	if filepath.IsAbs(a.cfg.DBPath) {
		return a.cfg.DBPath
	}
	return filepath.Join(filepath.Dir(a.configPath), a.cfg.DBPath)
}

func (a *App) openStore() (*storage.Store, error) {
	return storage.Open(a.dbPath(), a.loc)
}

// recurOptions builds the generation options shared by everything
// that expands recurrence rules.
func (a *App) recurOptions() recur.Options {
	return recur.Options{
		WeekStart: a.cfg.WeekStart(),
		Limit:     a.cfg.RecurrenceLimit,
		Now:       a.now(),
	}
}

// lookup finds one task by alias or uid.
func lookup(tasks []task.Task, ref string) (task.Task, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	for _, t := range tasks {
		if t.Alias == ref || strings.ToLower(t.UID) == ref {
			return t, nil
		}
	}
	return task.Task{}, fmt.Errorf("no task with alias or uid %q", ref)
}
