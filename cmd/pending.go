package cmd

import (
	"time"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:     "pending",
	Short:   "Inspect the durable offline sync queue",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		showData, _ := cmd.Flags().GetBool("data")
		clear, _ := cmd.Flags().GetBool("clear")
		jsonOut, _ := cmd.Flags().GetBool("json")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if clear {
			if err := a.Queue.Clear(); err != nil {
				output.Error("clear queue: %v", err)
				return err
			}
			output.Success("pending queue cleared")
			return nil
		}

		if showData {
			records, err := a.Queue.All()
			if err != nil {
				output.Error("read queue: %v", err)
				return err
			}
			if jsonOut {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Subtle("queue is empty")
				return nil
			}
			for _, rec := range records {
				enqueued := time.UnixMilli(rec.Timestamp).UTC()
				output.Info("#%d  %s  (%d roadmaps, %d settings)",
					rec.ID, enqueued.Format(time.RFC3339),
					len(rec.Data.Progress), len(rec.Data.Settings))
			}
			return nil
		}

		n, err := a.Queue.Count()
		if err != nil {
			output.Error("count queue: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(map[string]int64{"pendingCount": n})
		}
		output.Info("Pending queued syncs: %d", n)
		return nil
	},
}

func init() {
	pendingCmd.Flags().Bool("data", false, "show queued records")
	pendingCmd.Flags().Bool("clear", false, "drop all queued records")
	pendingCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(pendingCmd)
}
