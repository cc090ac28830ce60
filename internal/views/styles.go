package views

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// Success formats a confirmation line.
func Success(msg string) string {
	return successStyle.Render("✔ " + msg)
}

// Failure formats an error line.
func Failure(msg string) string {
	return errorStyle.Render("✖ " + msg)
}

// Muted formats secondary text.
func Muted(msg string) string {
	return mutedStyle.Render(msg)
}
