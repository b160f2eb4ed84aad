package cmd

import (
	"fmt"
	"strings"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:     "note <roadmap> <node> [text...]",
	Short:   "Attach, show or clear a note on a roadmap node",
	Long:    `With text, sets the node's note (empty text deletes it). Without text, shows the current note.`,
	GroupID: "progress",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		roadmap, node := args[0], args[1]

		if len(args) == 2 {
			text, err := a.Store.GetNote(roadmap, node)
			if err != nil {
				output.Error("read note: %v", err)
				return err
			}
			if text == "" {
				output.Subtle("no note on %s/%s", roadmap, node)
				return nil
			}
			rendered, err := output.RenderMarkdown(text)
			if err != nil {
				fmt.Println(text)
				return nil
			}
			fmt.Println(rendered)
			return nil
		}

		text := strings.Join(args[2:], " ")
		if err := a.Store.SetNote(roadmap, node, text); err != nil {
			output.Error("set note: %v", err)
			return err
		}
		if strings.TrimSpace(text) == "" {
			output.Success("note cleared on %s/%s", roadmap, node)
		} else {
			output.Success("note saved on %s/%s", roadmap, node)
		}
		autoSyncAfterMutation(a)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
}
