package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the background sync agent",
	Long: `Runs the long-lived sync agent: watches connectivity, drains the
durable offline queue on reconnect, and pushes queued snapshots to cloud
storage. Stop with Ctrl-C.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		output.Info("trail agent running (Ctrl-C to stop)")

		// Delivery consumer: the agent drains queued payloads but holds no
		// credentials, so the authenticated write happens here.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case payload := <-a.Agent.Deliveries():
					if err := a.Syncer.Deliver(payload); err != nil {
						slog.Warn("deliver queued payload", "error", err)
						continue
					}
					slog.Info("queued payload synced", "updatedAt", payload.UpdatedAt)
				}
			}
		}()

		a.Agent.Run(ctx)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
}
