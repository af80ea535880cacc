package cmd

import (
	"fmt"

	"github.com/myles/perch/internal/output"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <post-id>",
	Aliases: []string{"view"},
	Short:   "Display a post in full",
	Long: `Display a cached post in full, with the content rendered as markdown.

Examples:
  perch show 42          # Show post #42
  perch show "#42"       # Same, ID pasted from the timeline
  perch show 42 --raw    # Skip markdown rendering`,
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

		p, err := syn.Store().GetPost(id)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		if p == nil {
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				output.JSONError(output.ErrCodeNotFound, fmt.Sprintf("post %d not cached", id))
			} else {
				output.Error("post #%d is not in the local cache", id)
				fmt.Println("Try: perch timeline --refresh")
			}
			return fmt.Errorf("post %d not cached", id)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(p)
		}

		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Println(output.FormatPostLong(p))
			return nil
		}

		fmt.Println(output.FormatPostHeader(p))
		rendered, err := output.RenderMarkdown(p.Content)
		if err != nil {
			// Unstyled fallback when the renderer chokes on the content.
			fmt.Println()
			fmt.Println(p.Content)
		} else {
			fmt.Print(rendered)
		}

		if p.Attachment != nil {
			fmt.Printf("attachment (%s): %s\n", p.Attachment.Type, p.Attachment.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Bool("raw", false, "Print content without markdown rendering")
	showCmd.Flags().Bool("json", false, "JSON output")
}
