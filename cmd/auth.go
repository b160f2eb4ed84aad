package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/marcus/trail/internal/config"
	"github.com/marcus/trail/internal/output"
	"github.com/marcus/trail/internal/remote"
	"github.com/marcus/trail/internal/session"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage drive authentication",
	GroupID: "sync",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in via device authorization",
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL := config.ServerURL()
		client := remote.NewClient(serverURL, "")

		fmt.Print("Email: ")
		reader := bufio.NewReader(os.Stdin)
		email, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(email)
		if email == "" {
			return fmt.Errorf("email required")
		}

		resp, err := client.LoginStart(email)
		if err != nil {
			output.Error("login start: %v", err)
			return err
		}

		fmt.Printf("Open %s and enter code: %s\n", resp.VerificationURI, resp.UserCode)

		interval := time.Duration(resp.Interval) * time.Second
		if interval < time.Second {
			interval = 5 * time.Second
		}

		for {
			time.Sleep(interval)

			poll, err := client.LoginPoll(resp.DeviceCode)
			if err != nil {
				output.Error("login poll: %v", err)
				return err
			}

			switch poll.Status {
			case "pending":
				fmt.Print(".")
				continue
			case "complete":
				fmt.Println()
				creds, err := session.SignIn(poll, serverURL)
				if err != nil {
					output.Error("save credentials: %v", err)
					return err
				}
				output.Success("Signed in as %s", creds.Email)
				return nil
			default:
				return fmt.Errorf("unexpected poll status: %s", poll.Status)
			}
		}
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and delete stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Clear(); err != nil {
			output.Error("logout: %v", err)
			return err
		}
		fmt.Println("Signed out.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := session.Load()
		if err != nil {
			output.Error("load auth: %v", err)
			return err
		}
		if creds == nil || creds.APIKey == "" {
			fmt.Println("Not signed in.")
			return nil
		}

		keyPrefix := creds.APIKey
		if len(keyPrefix) > 12 {
			keyPrefix = keyPrefix[:12] + "..."
		}
		fmt.Printf("Email:  %s\n", creds.Email)
		fmt.Printf("Server: %s\n", creds.ServerURL)
		fmt.Printf("Key:    %s\n", keyPrefix)
		if creds.ExpiresAt != "" {
			fmt.Printf("Expiry: %s\n", creds.ExpiresAt)
		}
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
