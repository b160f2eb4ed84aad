package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize the local trail store",
	Long:    `Creates the .trail directory and SQLite database under your home directory (or TRAIL_HOME).`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := getBaseDir()

		if _, err := os.Stat(filepath.Join(dir, ".trail")); err == nil {
			output.Warning(".trail/ already exists")
			return nil
		}

		a, err := app.Initialize(dir)
		if err != nil {
			output.Error("failed to initialize store: %v", err)
			return err
		}
		defer a.Close()

		fmt.Println("INITIALIZED .trail/")
		output.Subtle("store: %s", filepath.Join(dir, ".trail", "trail.db"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
