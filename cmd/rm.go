package cmd

import (
	"fmt"

	"github.com/myles/perch/internal/output"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm <post-id>",
	Aliases: []string{"delete"},
	Short:   "Delete one of my posts",
	Long: `Delete one of my posts.

The post disappears from the timeline immediately. If the server rejects
the delete or cannot be reached, the post is restored locally and the
delete is recorded for 'perch retry'.`,
	GroupID: "feed",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parsePostID(args[0])
		if err != nil {
			output.Error("%v", err)
			return err
		}

		syn, closeStore, err := openFeed()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closeStore()

		st := syn.Store()
		p, err := st.GetPost(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if p == nil {
			output.Error("post #%d is not in the local cache", id)
			return fmt.Errorf("post %d not cached", id)
		}
		if !p.Mine {
			output.Error("post #%d is not yours", id)
			return fmt.Errorf("post %d not mine", id)
		}

		if err := syn.Delete(id); err != nil {
			output.Error("delete failed: %v", err)
			fmt.Println("The post was restored locally. Run 'perch retry' to try again.")
			return err
		}

		output.Success("Deleted #%d", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
