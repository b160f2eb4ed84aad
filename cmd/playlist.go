package cmd

import (
	"strconv"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var playlistCmd = &cobra.Command{
	Use:     "playlist",
	Short:   "Manage the learning playlist",
	GroupID: "progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		return playlistListCmd.RunE(cmd, args)
	},
}

var playlistAddCmd = &cobra.Command{
	Use:   "add <roadmap> <label>",
	Short: "Append a roadmap to the playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		item := models.PlaylistItem{RoadmapID: args[0], Label: args[1], URL: url}
		if err := a.Store.AppendPlaylistItem(item); err != nil {
			output.Error("add playlist item: %v", err)
			return err
		}
		output.Success("added %s", args[1])
		autoSyncAfterMutation(a)
		return nil
	},
}

var playlistRmCmd = &cobra.Command{
	Use:   "rm <position>",
	Short: "Remove a playlist entry by position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := strconv.Atoi(args[0])
		if err != nil || pos < 1 {
			output.Error("invalid position: %s", args[0])
			return errInvalidArg
		}

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Store.RemovePlaylistItemAt(pos); err != nil {
			output.Error("remove playlist item: %v", err)
			return err
		}
		output.Success("removed entry %d", pos)
		autoSyncAfterMutation(a)
		return nil
	},
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the playlist in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		items, err := a.Store.GetPlaylist()
		if err != nil {
			output.Error("read playlist: %v", err)
			return err
		}
		if len(items) == 0 {
			output.Subtle("playlist is empty")
			return nil
		}
		for i, item := range items {
			line := item.Label
			if item.URL != "" {
				line += "  " + item.URL
			}
			output.Info("%2d. %s", i+1, line)
		}
		return nil
	},
}

func init() {
	playlistAddCmd.Flags().String("url", "", "optional link for the entry")
	playlistCmd.AddCommand(playlistAddCmd, playlistRmCmd, playlistListCmd)
	rootCmd.AddCommand(playlistCmd)
}
