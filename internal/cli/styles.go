// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/salary-disbursement/internal/model"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5B8DEF")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4") // Teal
	// WarningColor indicates warnings or batches awaiting action.
	WarningColor = lipgloss.Color("#FFE66D") // Yellow
	// ErrorColor indicates errors or failed batches.
	ErrorColor = lipgloss.Color("#FF6B6B") // Red
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// TableCellStyle formats table cells with appropriate padding.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	// PromptStyle is used for user prompts.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	PayIcon     = "💸"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the payrun icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(PayIcon + " " + title)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}

// StatusStyle picks the style for an acknowledgement status.
func StatusStyle(status model.AckStatus) lipgloss.Style {
	switch status {
	case model.StatusSuccess, model.StatusApproved:
		return SuccessStyle
	case model.StatusPending, model.StatusReceived:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// RenderAck renders one acknowledgement as a bordered box.
func RenderAck(ack *model.Acknowledgement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Status:"), StatusStyle(ack.Status).Render(string(ack.Status)))
	fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Recorded:"), ack.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if !ack.UpdatedAt.Equal(ack.CreatedAt) {
		fmt.Fprintf(&b, "%s %s\n", BoldStyle.Render("Updated:"), ack.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	b.WriteString(strings.TrimSpace(ack.Message))
	return RenderBox("Batch "+ack.BatchID, b.String())
}

// RenderAckTable renders acknowledgements one per row.
func RenderAckTable(acks []model.Acknowledgement) string {
	if len(acks) == 0 {
		return SubtleStyle.Render("No acknowledgements found.")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		TableCellStyle.Width(8).Render("ID"),
		TableCellStyle.Width(24).Render("BATCH"),
		TableCellStyle.Width(20).Render("STATUS"),
		TableCellStyle.Render("RECORDED"),
	)

	rows := []string{TableHeaderStyle.Render(header)}
	for i := range acks {
		ack := &acks[i]
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			TableCellStyle.Width(8).Render(fmt.Sprintf("%d", ack.ID)),
			TableCellStyle.Width(24).Render(ack.BatchID),
			TableCellStyle.Width(20).Render(StatusStyle(ack.Status).Render(string(ack.Status))),
			TableCellStyle.Render(ack.CreatedAt.Local().Format("2006-01-02 15:04:05")),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
