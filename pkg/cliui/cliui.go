// Package cliui provides reusable terminal styles for gemi CLI commands.
package cliui

import "github.com/charmbracelet/lipgloss"

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")

	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	NameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	UserPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	AssistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("gemi> ")

	SourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
)

// Mark returns a success or failure mark depending on err.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}
