package cmd

import (
	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Short:   "Read and write synced user preferences",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsListCmd.RunE(cmd, args)
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		value, err := a.Store.GetSetting(args[0])
		if err != nil {
			output.Error("read setting: %v", err)
			return err
		}
		output.Info("%s", value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one preference value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Store.SetSetting(args[0], args[1]); err != nil {
			output.Error("write setting: %v", err)
			return err
		}
		output.Success("%s = %s", args[0], args[1])
		autoSyncAfterMutation(a)
		return nil
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		settings, err := a.Store.GetAllSettings()
		if err != nil {
			output.Error("read settings: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(settings)
		}
		if len(settings) == 0 {
			output.Subtle("no settings stored")
			return nil
		}
		for k, v := range settings {
			output.Info("%s = %s", k, v)
		}
		return nil
	},
}

func init() {
	settingsListCmd.Flags().Bool("json", false, "output as JSON")
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsListCmd)
	rootCmd.AddCommand(settingsCmd)
}
