package cmd

import (
	"fmt"
	"strings"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/models"
	"github.com/marcus/trail/internal/output"
	"github.com/spf13/cobra"
)

var cardCmd = &cobra.Command{
	Use:     "card",
	Short:   "Manage knowledge cards and their links",
	GroupID: "cards",
}

var cardAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a knowledge card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetString("summary")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		card, err := a.Cards.Create(args[0], summary, tags)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("created card %s", card.Title)
		output.Subtle("%s", card.ID)
		return nil
	},
}

var cardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOut, _ := cmd.Flags().GetBool("json")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		cards, err := a.Cards.List()
		if err != nil {
			output.Error("list cards: %v", err)
			return err
		}
		if jsonOut {
			return output.JSON(cards)
		}
		if len(cards) == 0 {
			output.Subtle("no cards yet (trail card add <title>)")
			return nil
		}
		for _, c := range cards {
			output.Info("%s", output.FormatCard(c))
		}
		return nil
	},
}

var cardShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a card with its links and rendered content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		card, err := a.Cards.Get(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		output.Info("%s", output.FormatCard(*card))
		if len(card.Summary) > 0 {
			output.Info("%s", strings.Join(card.Summary, "\n"))
		}

		links, err := a.Cards.VisibleLinks(card)
		if err != nil {
			output.Error("resolve links: %v", err)
			return err
		}
		for _, l := range links {
			output.Info("  %s", output.FormatLink(l))
		}

		body, err := a.Cards.Content(card.ID)
		if err != nil {
			output.Error("read content: %v", err)
			return err
		}
		if body != "" {
			rendered, err := output.RenderMarkdown(body)
			if err != nil {
				fmt.Println(body)
				return nil
			}
			fmt.Println(rendered)
		}
		return nil
	},
}

var cardNoteCmd = &cobra.Command{
	Use:   "note <id> <text...>",
	Short: "Set a card's markdown content",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Cards.SetContent(args[0], strings.Join(args[1:], " ")); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("content saved")
		return nil
	},
}

var cardLinkCmd = &cobra.Command{
	Use:   "link <from-id> <to-id>",
	Short: "Link two cards",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		label, _ := cmd.Flags().GetString("label")

		linkType := models.LinkType(typ)
		switch linkType {
		case models.LinkRelated, models.LinkParent, models.LinkChild:
		default:
			output.Error("invalid link type %q (related, parent, child)", typ)
			return errInvalidArg
		}

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Cards.Link(args[0], args[1], linkType, label); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("linked %s -> %s (%s)", args[0], args[1], linkType)
		return nil
	},
}

var cardUnlinkCmd = &cobra.Command{
	Use:   "unlink <from-id> <to-id>",
	Short: "Remove a link between cards",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")

		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Cards.Unlink(args[0], args[1], models.LinkType(typ)); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("unlinked %s -> %s", args[0], args[1])
		return nil
	},
}

var cardRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a card and its content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if err := a.Cards.Delete(args[0]); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("deleted %s", args[0])
		return nil
	},
}

var cardPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the card graph to cloud storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if !a.Session.IsSignedIn() {
			output.Error("not signed in (run: trail auth login)")
			return fmt.Errorf("not authenticated")
		}
		if err := a.Cards.Push(a.Remote); err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("card graph uploaded")
		return nil
	},
}

var cardPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the card graph, replacing local cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.Open(getBaseDir())
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer a.Close()

		if !a.Session.IsSignedIn() {
			output.Error("not signed in (run: trail auth login)")
			return fmt.Errorf("not authenticated")
		}
		n, err := a.Cards.Pull(a.Remote)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		output.Success("downloaded %d cards", n)
		return nil
	},
}

func init() {
	cardAddCmd.Flags().String("summary", "", "one-line summary")
	cardAddCmd.Flags().StringSlice("tag", nil, "tag (repeatable)")
	cardListCmd.Flags().Bool("json", false, "output as JSON")
	cardLinkCmd.Flags().String("type", "related", "link type: related, parent, child")
	cardLinkCmd.Flags().String("label", "", "optional link label")
	cardUnlinkCmd.Flags().String("type", "related", "link type: related, parent, child")

	cardCmd.AddCommand(cardAddCmd, cardListCmd, cardShowCmd, cardNoteCmd,
		cardLinkCmd, cardUnlinkCmd, cardRmCmd, cardPushCmd, cardPullCmd)
	rootCmd.AddCommand(cardCmd)
}
