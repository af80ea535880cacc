package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/myles/perch/internal/input"
	"github.com/myles/perch/internal/models"
	"github.com/myles/perch/internal/output"
	"github.com/spf13/cobra"
)

var postCmd = &cobra.Command{
	Use:     "post [text]",
	Aliases: []string{"send"},
	Short:   "Publish a post to the feed",
	Long: `Publish a post to the feed.

The post appears in the timeline only after the server confirms it. If the
server cannot be reached the draft is kept and 'perch retry' resends it.

A single argument of - reads the post body from stdin, and @file reads it
from a file.

Examples:
  perch post "hello from the terminal"
  perch post "sunset" --attach ./sunset.jpg
  perch post --attach ./clip.mp3
  git log -1 --format=%s | perch post -
  perch post @draft.md`,
	GroupID: "feed",
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.Join(args, " ")
		if len(args) == 1 {
			expanded, err := input.ExpandArg(args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}
			raw = expanded
		}
		content := strings.TrimSpace(raw)
		attach, _ := cmd.Flags().GetString("attach")

		if content == "" && attach == "" {
			output.Error("nothing to post: give text, --attach, or both")
			return fmt.Errorf("empty post")
		}
		if attach != "" {
			if _, err := os.Stat(attach); err != nil {
				output.Error("attachment: %v", err)
				return err
			}
		}

		syn, closeStore, err := openFeed()
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer closeStore()

		p, err := syn.Submit(models.Draft{Content: content, AttachPath: attach})
		if err != nil {
			output.Error("post failed: %v", err)
			fmt.Println("The draft was kept. Run 'perch retry' to resend it.")
			return err
		}

		output.Success("Posted #%d", p.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().String("attach", "", "Attach an image, video, or audio file")
}
