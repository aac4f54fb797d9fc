// Package ui holds the lipgloss styles shared by the BOLT pages.
package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF4D4D")
	ColorGreen   = lipgloss.Color("#3DDC84")
	ColorYellow  = lipgloss.Color("#FFD23F")
	ColorBlue    = lipgloss.Color("#4D9DFF")
	ColorPurple  = lipgloss.Color("#A970FF")
	ColorGray    = lipgloss.Color("#777777")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorYellow)

	PageTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	// Session state badges.
	LiveBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	BusyBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorPurple).
			Bold(true)

	IdleBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	RecognizedTextStyle = lipgloss.NewStyle().
				Foreground(ColorWhite).
				Bold(true)

	ConfidenceStyle = lipgloss.NewStyle().
			Foreground(ColorBlue)

	MeaningStyle = lipgloss.NewStyle().
			Foreground(ColorPurple)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	LipReadingLabelStyle = lipgloss.NewStyle().
				Foreground(ColorBlue)

	GestureLabelStyle = lipgloss.NewStyle().
				Foreground(ColorPurple)

	SavedMarkStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	// Toasts.
	ToastSuccessStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	ToastInfoStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	ToastErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ConfirmStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorPurple)
)
