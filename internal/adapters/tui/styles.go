package tui

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/parcel/internal/ui/style"
)

var (
	activeStyle = lipgloss.NewStyle().
			Foreground(style.Iris).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(style.Green)

	failedStyle = lipgloss.NewStyle().
			Foreground(style.Red)

	currentStyle = lipgloss.NewStyle().
			Foreground(style.Slate).
			Faint(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(style.Iris)

	summaryStyle = lipgloss.NewStyle().
			Foreground(style.Slate)
)
