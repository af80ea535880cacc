package cmd

import (
	"fmt"

	"github.com/myles/perch/internal/output"
	"github.com/spf13/cobra"
)

var likeCmd = &cobra.Command{
	Use:     "like <post-id>",
	Short:   "Like a post",
	GroupID: "feed",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReaction(args[0], true)
	},
}

var unlikeCmd = &cobra.Command{
	Use:     "unlike <post-id>",
	Short:   "Remove a like from a post",
	GroupID: "feed",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReaction(args[0], false)
	},
}

// runReaction applies the reaction locally first; a failed server call
// leaves the local count in place and records the action for retry.
func runReaction(arg string, like bool) error {
	id, err := parsePostID(arg)
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
		fmt.Println("Try: perch timeline --refresh")
		return fmt.Errorf("post %d not cached", id)
	}

	verb := "Liked"
	if like {
		err = syn.React(id)
	} else {
		verb = "Unliked"
		err = syn.Unreact(id)
	}
	if err != nil {
		output.Warning("%s #%d locally, but the server call failed: %v", verb, id, err)
		fmt.Println("Run 'perch retry' to resend.")
		return nil
	}

	if p, err := st.GetPost(id); err == nil && p != nil {
		output.Success("%s #%d (%d likes)", verb, id, p.Likes)
	} else {
		output.Success("%s #%d", verb, id)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(unlikeCmd)
}
