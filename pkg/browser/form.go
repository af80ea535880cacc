package browser

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/myles/perch/internal/models"
)

// composeState holds the state for the new-post form
type composeState struct {
	Form *huh.Form

	// Bound form values
	Content    string
	AttachPath string
}

// newComposeState creates the compose form
func newComposeState() *composeState {
	cs := &composeState{}
	cs.buildForm()
	return cs
}

func (cs *composeState) buildForm() {
	cs.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Post").
				Value(&cs.Content).
				Placeholder("What's happening?").
				Lines(5),
			huh.NewInput().
				Title("Attachment").
				Value(&cs.AttachPath).
				Placeholder("optional path to an image, video, or audio file").
				Validate(func(s string) error {
					s = strings.TrimSpace(s)
					if s == "" {
						return nil
					}
					if _, err := os.Stat(s); err != nil {
						return fmt.Errorf("no such file: %s", s)
					}
					return nil
				}),
		).Title("New Post"),
	)
	cs.Form.WithTheme(huh.ThemeDracula())
}

// Draft converts the form values to a post draft
func (cs *composeState) Draft() models.Draft {
	return models.Draft{
		Content:    strings.TrimSpace(cs.Content),
		AttachPath: strings.TrimSpace(cs.AttachPath),
	}
}
