package cmd

import (
	"fmt"

	"github.com/myles/perch/internal/output"
	"github.com/spf13/cobra"
)

var retryCmd = &cobra.Command{
	Use:     "retry",
	Short:   "Replay the most recent failed action",
	Long: `Replay the most recent failed action.

The client records at most one failed mutation. When one is recorded,
retry replays exactly that action; when none is, retry reloads the head
of the feed instead.`,
	GroupID: "feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		syn, closeStore, err := openFeed()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closeStore()

		pending, err := syn.Pending()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if pending != nil {
			fmt.Printf("Replaying %s\n", pending)
		}

		if err := syn.Retry(); err != nil {
			output.Error("retry: %v", err)
			if pending != nil {
				fmt.Println("The action is still recorded; run 'perch retry' again later.")
			}
			return err
		}

		if pending == nil {
			output.Success("Nothing was pending; reloaded the feed head")
		} else {
			output.Success("Replayed %s", pending)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(retryCmd)
}
