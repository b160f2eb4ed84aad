package cmd

import (
	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:     "done <roadmap> <node>",
	Short:   "Mark a roadmap node complete",
	GroupID: "progress",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Store.CompleteNode(args[0], args[1]); err != nil {
			output.Error("mark complete: %v", err)
			return err
		}
		output.Success("%s %s/%s", "done", args[0], args[1])
		autoSyncAfterMutation(a)
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:     "undo <roadmap> <node>",
	Short:   "Unmark a roadmap node",
	GroupID: "progress",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Store.UncompleteNode(args[0], args[1]); err != nil {
			output.Error("unmark: %v", err)
			return err
		}
		output.Success("undone %s/%s", args[0], args[1])
		autoSyncAfterMutation(a)
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:     "toggle <roadmap> <node>",
	Short:   "Toggle a roadmap node's completion",
	GroupID: "progress",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		done, err := a.Store.ToggleNode(args[0], args[1])
		if err != nil {
			output.Error("toggle: %v", err)
			return err
		}
		if done {
			output.Success("done %s/%s", args[0], args[1])
		} else {
			output.Info("undone %s/%s", args[0], args[1])
		}
		autoSyncAfterMutation(a)
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:     "progress [roadmap]",
	Short:   "Show completed nodes, per roadmap or all",
	GroupID: "progress",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			nodes, err := a.Store.GetRoadmapProgress(args[0])
			if err != nil {
				output.Error("read progress: %v", err)
				return err
			}
			if jsonOut {
				return output.JSON(map[string][]string{args[0]: nodes})
			}
			if len(nodes) == 0 {
				output.Subtle("no completed nodes in %s", args[0])
				return nil
			}
			for _, n := range nodes {
				output.Info("%s %s", output.FormatCheck(true), n)
			}
			return nil
		}

		all, err := a.Store.GetAllProgress()
		if err != nil {
			output.Error("read progress: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(all)
		}
		if len(all) == 0 {
			output.Subtle("no progress recorded yet")
			return nil
		}
		for roadmap, nodes := range all {
			output.Info("%s (%d)", roadmap, len(nodes))
			for _, n := range nodes {
				output.Info("  %s %s", output.FormatCheck(true), n)
			}
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear <roadmap>",
	Short:   "Remove all progress for a roadmap",
	GroupID: "progress",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Store.ClearRoadmap(args[0]); err != nil {
			output.Error("clear roadmap: %v", err)
			return err
		}
		output.Success("cleared %s", args[0])
		autoSyncAfterMutation(a)
		return nil
	},
}

func init() {
	progressCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(doneCmd, undoCmd, toggleCmd, progressCmd, clearCmd)
}
