package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Shared styles for the tq commands and the board.

const (
	IconTask    = "🗒️"
	IconProject = "📦"
	IconShared  = "🤝"
	IconSparkle = "✨"
	IconPlus    = "➕"
	IconDone    = "✅"
	IconTrophy  = "🏆"
	IconBolt    = "⚡"
	IconFire    = "🔥"
	IconClock   = "⏰"
	IconSync    = "🔄"
	IconUndo    = "↩️"
	IconWarn    = "⚠️"
	IconError   = "🧨"
)

// Palette entries pick a darker shade on light terminal backgrounds.
var (
	cPrimary = lipgloss.AdaptiveColor{Light: "62", Dark: "63"}
	cAccent  = lipgloss.AdaptiveColor{Light: "162", Dark: "205"}
	cGood    = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	cWarn    = lipgloss.AdaptiveColor{Light: "166", Dark: "214"}
	cBad     = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	cMuted   = lipgloss.AdaptiveColor{Light: "241", Dark: "244"}
	cGold    = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	PanelTitle  = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	LevelUpTag = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
	BadgeTag   = lipgloss.NewStyle().Bold(true).Foreground(cAccent).Render("BADGE")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// SyncStateText colours a projectsync state name.
func SyncStateText(state string) string {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "polling":
		return Good.Render("polling")
	case "sharing":
		return H2.Render("sharing")
	case "stopped":
		return Bad.Render("stopped")
	default:
		return Muted.Render(state)
	}
}

func KindIcon(isProject bool, isShared bool) string {
	if isShared {
		return IconShared
	}
	if isProject {
		return IconProject
	}
	return IconTask
}

// SignedXP renders an XP delta as +N XP or -N XP.
func SignedXP(delta int) string {
	if delta < 0 {
		return Bad.Render(fmt.Sprintf("%d XP", delta))
	}
	return Good.Render(fmt.Sprintf("+%d XP", delta))
}

// ProgressBar draws a fixed-width bar for current out of total.
func ProgressBar(current, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = current * width / total
	}
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return Gold.Render(strings.Repeat("█", filled)) + Muted.Render(strings.Repeat("░", width-filled))
}
