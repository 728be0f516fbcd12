package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tend/internal/taskfile"
)

func backupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <dir>",
		Short: "Write every task to a directory of YAML files",
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
			for _, t := range tasks {
				if _, err := taskfile.Write(args[0], t); err != nil {
					return fmt.Errorf("writing %s: %w", t.UID, err)
				}
			}
			fmt.Printf("Backed up %d tasks to %s\n", len(tasks), args[0])
			return nil
		},
	}
}

func importCmd(app *App) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import tasks from a directory of YAML files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, warnings, err := taskfile.Load(args[0], app.loc)
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(os.Stderr, "WARNING:", w)
			}
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			current, err := store.FetchTasks()
			if err != nil {
				return err
			}
			existing := map[string]bool{}
			aliasOwner := map[string]string{}
			for _, t := range current {
				existing[t.UID] = true
				if t.Alias != "" {
					aliasOwner[t.Alias] = t.UID
				}
			}

			imported := 0
			for _, t := range tasks {
				if !replace && existing[t.UID] {
					fmt.Fprintf(os.Stderr, "WARNING: skipping %s: uid already in store (use --replace)\n", t.UID)
					continue
				}
				if owner, taken := aliasOwner[t.Alias]; taken && owner != t.UID {
					fmt.Fprintf(os.Stderr, "WARNING: skipping %s: alias %q belongs to task %s\n", t.UID, t.Alias, owner)
					continue
				}
				if err := store.SaveTask(t); err != nil {
					return fmt.Errorf("importing %s: %w", t.UID, err)
				}
				if t.Alias != "" {
					aliasOwner[t.Alias] = t.UID
				}
				existing[t.UID] = true
				imported++
			}
			fmt.Printf("Imported %d tasks from %s\n", imported, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "overwrite tasks that already exist")
	return cmd
}
