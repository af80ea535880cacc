package cmd

import (
	"fmt"

	"github.com/myles/perch/internal/output"
	"github.com/myles/perch/internal/store"
	"github.com/spf13/cobra"
)

var timelineCmd = &cobra.Command{
	Use:     "timeline",
	Aliases: []string{"tl", "ls"},
	Short:   "Show the cached timeline",
	Long: `Show the cached timeline, newest first.

The timeline is served from the local cache. --refresh reloads the head of
the feed from the server; --older fetches the next page past the cached
ones. A first run with an empty cache fetches the head page automatically.

Examples:
  perch timeline               # cached posts
  perch timeline --refresh     # reload the head of the feed
  perch timeline --older       # page further back
  perch timeline -n 5 --mine   # my five newest cached posts`,
	GroupID: "feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		syn, closeStore, err := openFeed()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closeStore()

		refresh, _ := cmd.Flags().GetBool("refresh")
		older, _ := cmd.Flags().GetBool("older")
		jsonOut, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")
		mine, _ := cmd.Flags().GetBool("mine")

		st := syn.Store()

		switch {
		case refresh:
			if _, err := syn.Reload(); err != nil {
				output.Error("refresh: %v", err)
				return err
			}
		case older:
			n, err := syn.LoadNextPage()
			if err != nil {
				output.Error("load older posts: %v", err)
				return err
			}
			if n == 0 {
				fmt.Println("No more posts.")
			}
		default:
			count, err := st.CountPosts()
			if err != nil {
				output.Error("%v", err)
				return err
			}
			if count == 0 {
				if _, err := syn.LoadNextPage(); err != nil {
					output.Warning("feed server unreachable: %v", err)
				}
			}
		}

		posts, err := st.ListPosts(store.ListPostsOptions{Limit: limit, MineOnly: mine})
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut {
			return output.JSON(posts)
		}

		if len(posts) == 0 {
			fmt.Println("No posts cached. Try 'perch timeline --refresh'.")
			return nil
		}

		for i := range posts {
			fmt.Println(output.FormatPostShort(&posts[i]))
		}

		if pending, err := syn.Pending(); err == nil && pending != nil {
			fmt.Println()
			fmt.Println(output.FormatPendingAction(pending))
		}
		return nil
	},
}

var newerCmd = &cobra.Command{
	Use:     "newer",
	Short:   "Check for posts newer than the cached head",
	GroupID: "feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		syn, closeStore, err := openFeed()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closeStore()

		n, err := syn.CheckNewer()
		if err != nil {
			output.Error("check newer: %v", err)
			return err
		}

		if n == 0 {
			fmt.Println("Feed is up to date.")
			return nil
		}
		output.Success("%d new post(s) cached", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(newerCmd)

	timelineCmd.Flags().IntP("limit", "n", 20, "Maximum posts to show (0 = all cached)")
	timelineCmd.Flags().Bool("older", false, "Fetch the next page past the cached ones")
	timelineCmd.Flags().Bool("refresh", false, "Reload the head of the feed")
	timelineCmd.Flags().BoolP("mine", "m", false, "Show only my posts")
	timelineCmd.Flags().Bool("json", false, "JSON output")
}
