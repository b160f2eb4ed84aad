package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var errInvalidArg = errors.New("invalid argument")

var (
	version string
	baseDir string
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "trail",
	Short: "Local-first learning roadmap and knowledge card tracker",
	Long: `trail - Track roadmap progress and knowledge cards locally, with
offline-tolerant sync to your own drive storage.

All commands work offline. Changes queue durably and sync when a
connection is available.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.AddGroup(
		&cobra.Group{ID: "progress", Title: "Progress Commands:"},
		&cobra.Group{ID: "cards", Title: "Card Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	rootCmd.Version = "dev"
	cobra.OnInitialize(func() {
		if version != "" {
			rootCmd.Version = version
		}
	})
}

func initBaseDir() {
	if env := os.Getenv("TRAIL_HOME"); env != "" {
		baseDir = env
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir = home
}

// getBaseDir returns the directory holding the .trail store
func getBaseDir() string {
	return baseDir
}
