package cmd

import (
	"fmt"
	"time"

	"github.com/myles/perch/internal/config"
	"github.com/myles/perch/internal/models"
	"github.com/myles/perch/internal/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show cache, cursor, and session state",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		syn, closeStore, err := openFeed()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closeStore()

		st := syn.Store()

		count, err := st.CountPosts()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		state, err := st.GetFeedState()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		pending, err := st.PendingAction()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		creds, err := config.LoadAuth()
		if err != nil {
			output.Error("%v", err)
			return err
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			login := ""
			if creds != nil {
				login = creds.Login
			}
			return output.JSON(struct {
				Server      string                `json:"server"`
				LoggedIn    bool                  `json:"logged_in"`
				Login       string                `json:"login,omitempty"`
				CachedPosts int                   `json:"cached_posts"`
				NextCursor  string                `json:"next_cursor"`
				RefreshedAt *time.Time            `json:"refreshed_at,omitempty"`
				Pending     *models.PendingAction `json:"pending,omitempty"`
			}{
				Server:      config.ServerURL(),
				LoggedIn:    config.IsAuthenticated(),
				Login:       login,
				CachedPosts: count,
				NextCursor:  state.NextCursor,
				RefreshedAt: state.RefreshedAt,
				Pending:     pending,
			})
		}

		fmt.Printf("Server:  %s\n", config.ServerURL())
		if creds != nil && creds.Token != "" {
			fmt.Printf("Account: %s\n", creds.Login)
		} else {
			fmt.Println("Account: not logged in")
		}
		fmt.Printf("Cached:  %d posts\n", count)
		if state.NextCursor == "" {
			fmt.Println("Cursor:  head of feed")
		} else {
			fmt.Printf("Cursor:  %s\n", state.NextCursor)
		}
		if state.RefreshedAt != nil {
			fmt.Printf("Synced:  %s\n", output.FormatTimeAgo(*state.RefreshedAt))
		}
		if pending != nil {
			fmt.Println(output.FormatPendingAction(pending))
		} else {
			fmt.Println("Pending: none")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().Bool("json", false, "JSON output")
}
