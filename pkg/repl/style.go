package repl

import "github.com/charmbracelet/lipgloss"

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141")).Bold(true)

var assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

var userStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("72"))

var toolCallStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("166")).
	MarginLeft(2)

var toolFailureStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("160")).
	MarginLeft(2)

var noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
