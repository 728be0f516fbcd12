package cli

import (
	"github.com/spf13/cobra"

	"tend/internal/ui"
)

func uiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "ui",
		Aliases: []string{"shell"},
		Short:   "Open the interactive task list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return ui.Run(store, app.cfg, app.loc)
		},
	}
}
