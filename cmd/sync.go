package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/conflict"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Sync local data with cloud storage",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		statusOnly, _ := cmd.Flags().GetBool("status")
		pushOnly, _ := cmd.Flags().GetBool("push")
		pullOnly, _ := cmd.Flags().GetBool("pull")
		take, _ := cmd.Flags().GetString("take")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if statusOnly {
			return runSyncStatus(a)
		}

		if !a.Session.IsSignedIn() {
			output.Error("not signed in (run: trail auth login)")
			return fmt.Errorf("not authenticated")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if pushOnly {
			return runPush(ctx, a)
		}

		remotePayload, err := a.Remote.LoadPayload()
		if err != nil {
			output.Error("load remote: %v", err)
			return err
		}
		marks, err := a.Store.GetSyncMarks()
		if err != nil {
			output.Error("read sync state: %v", err)
			return err
		}

		if desc := a.Detector.Check(remotePayload.UpdatedAt, marks); desc != nil {
			return resolveConflict(a, desc, take)
		}

		if pullOnly {
			if err := a.Store.ReplaceAll(remotePayload); err != nil {
				output.Error("apply remote state: %v", err)
				return err
			}
			output.Success("pulled remote state (%s)", remotePayload.UpdatedAt.Format(time.RFC3339))
			return nil
		}

		// No conflict: remote strictly newer means pull, pending local
		// changes mean push, otherwise nothing to do.
		remoteNewer := !remotePayload.UpdatedAt.IsZero() &&
			(marks.LastSyncedAt == nil || remotePayload.UpdatedAt.After(*marks.LastSyncedAt))
		pendingLocal, err := a.Store.HasPendingLocal()
		if err != nil {
			output.Error("read sync state: %v", err)
			return err
		}

		switch {
		case remoteNewer:
			if err := a.Store.ReplaceAll(remotePayload); err != nil {
				output.Error("apply remote state: %v", err)
				return err
			}
			output.Success("pulled remote state (%s)", remotePayload.UpdatedAt.Format(time.RFC3339))
		case pendingLocal:
			return runPush(ctx, a)
		default:
			output.Info("Already up to date.")
		}
		return nil
	},
}

func runPush(ctx context.Context, a *app.App) error {
	if err := a.Syncer.Flush(ctx); err != nil {
		st := a.Syncer.Status()
		if st.Error != "" {
			output.Warning("%s", st.Error)
			return nil
		}
		output.Error("sync: %v", err)
		return err
	}
	st := a.Syncer.Status()
	if st.Error != "" {
		output.Warning("%s", st.Error)
		return nil
	}
	output.Success("synced")
	return nil
}

func runSyncStatus(a *app.App) error {
	st := a.Syncer.Status()
	if st.LastSyncTime != nil {
		output.Info("Last sync: %s", st.LastSyncTime.Format(time.RFC3339))
	} else {
		output.Info("Last sync: never")
	}
	if st.Error != "" {
		output.Warning("%s", st.Error)
	}
	output.Info("Pending queued syncs: %d", st.PendingCount)
	if st.Offline {
		output.Warning("offline")
	}
	return nil
}

// resolveConflict walks the user through the binary choice, or honors
// --take in non-interactive runs.
func resolveConflict(a *app.App, desc *conflict.Descriptor, take string) error {
	output.Warning("Sync conflict: the cloud copy changed since this device last synced.")
	output.Info("  cloud updated: %s", desc.CloudLastModified.Format(time.RFC3339))
	if !desc.LocalLastModified.IsZero() {
		output.Info("  local changed: %s", desc.LocalLastModified.Format(time.RFC3339))
	}

	choice := take
	if choice == "" {
		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("Resolve conflict").
				Description("Both copies will not be merged; one side wins wholesale.").
				Options(
					huh.NewOption("Keep cloud version (overwrite this device)", "remote"),
					huh.NewOption("Keep this device (overwrite cloud)", "local"),
				).
				Value(&choice),
		))
		if err := form.Run(); err != nil {
			return fmt.Errorf("conflict unresolved: %w", err)
		}
	}

	resolver := a.Resolver()
	switch choice {
	case "remote":
		if _, err := resolver.Download(); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("cloud version applied")
	case "local":
		if _, err := resolver.Upload(); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("local version uploaded")
	default:
		output.Error("invalid --take value %q (local or remote)", choice)
		return errInvalidArg
	}
	return nil
}

func init() {
	syncCmd.Flags().Bool("status", false, "show sync status only")
	syncCmd.Flags().Bool("push", false, "push local state without pulling")
	syncCmd.Flags().Bool("pull", false, "pull remote state without pushing")
	syncCmd.Flags().String("take", "", "resolve a conflict non-interactively: local or remote")
	rootCmd.AddCommand(syncCmd)
}
