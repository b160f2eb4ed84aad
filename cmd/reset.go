package cmd

import (
	"fmt"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:     "reset",
	Short:   "Erase all local data",
	Long:    `Empties progress, notes, settings, playlist, cards and the pending sync queue. Cloud data is untouched.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if !force {
			output.Warning("this erases all local data; re-run with --force")
			return fmt.Errorf("refusing without --force")
		}

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Store.ResetAll(); err != nil {
			output.Error("reset: %v", err)
			return err
		}
		if err := a.Queue.Clear(); err != nil {
			output.Error("clear queue: %v", err)
			return err
		}
		output.Success("local data erased")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("force", false, "confirm the wipe")
	rootCmd.AddCommand(resetCmd)
}
