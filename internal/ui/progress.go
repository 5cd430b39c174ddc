package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Progress bar block characters.
const (
	progressFilled = '█'
	progressEmpty  = '░'
)

// RenderProgressBar renders a bracketed bar for a 0-100 percentage, e.g.
// "[████████░░░░]  67%". Out-of-range values are clamped.
func RenderProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = max(0, min(percent, 100))
	return lipgloss.NewStyle().Foreground(getThresholdColor(percent)).Render("["+bar(percent, width)+"]") +
		fmt.Sprintf(" %3.0f%%", percent)
}

// RenderMemoryBar renders memory usage as a bar followed by "used/total MB".
// A zero or negative total renders as unknown.
func RenderMemoryBar(usedMB, totalMB, width int) string {
	if width <= 0 {
		return ""
	}
	if totalMB <= 0 {
		return MutedStyle().Render(strings.Repeat(string(progressEmpty), width) + " unknown")
	}
	percent := max(0, min(float64(usedMB)/float64(totalMB)*100, 100))
	return lipgloss.NewStyle().Foreground(getThresholdColor(percent)).Render(bar(percent, width)) +
		fmt.Sprintf(" %d/%d MB", usedMB, totalMB)
}

func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	return strings.Repeat(string(progressFilled), filled) + strings.Repeat(string(progressEmpty), width-filled)
}
