package cmd

import (
	"github.com/myles/perch/internal/config"
	"github.com/myles/perch/internal/output"
	"github.com/myles/perch/pkg/browser"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"browse"},
	Short:   "Browse the feed interactively",
	Long: `Browse the feed in an interactive terminal UI.

Keys: up/down move, enter opens a post, l likes, d deletes, n composes,
o loads older posts, g refreshes, r retries a pending action, q quits.
A background poll surfaces new posts in the status bar.`,
	GroupID: "feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		syn, closeStore, err := openFeed()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closeStore()

		if err := browser.Run(syn, config.PollInterval()); err != nil {
			output.Error("%v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
