package browser

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Base colors
	primaryColor = lipgloss.Color("212")
	mutedColor   = lipgloss.Color("241")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("214")
	errorColor   = lipgloss.Color("196")

	// Chrome
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().Foreground(mutedColor)

	statusStyle      = lipgloss.NewStyle().Foreground(successColor)
	statusErrorStyle = lipgloss.NewStyle().Foreground(errorColor)
	newPostsStyle    = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(warningColor)

	// Rows
	authorStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	likedStyle     = lipgloss.NewStyle().Foreground(primaryColor)
	mineStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	// Selected row style - inverted colors for visibility
	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("237")).
				Foreground(lipgloss.Color("255"))

	// Confirm prompt
	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor).
			Padding(1, 2)
)
