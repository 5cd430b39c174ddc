package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline renders the last width points of a percentage series.
// Levels are scaled between the series min and max; the color follows the
// most recent value (green below 60, amber below 80, red above).
func RenderSparkline(data []float64, width int) string {
	line := sparkline(data, width)
	if line == "" {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}
	return lipgloss.NewStyle().Foreground(getThresholdColor(data[len(data)-1])).Render(line)
}

// RenderLoadSparkline renders a load-average series. Load has no fixed
// ceiling without knowing the core count, so it is drawn in a single color.
func RenderLoadSparkline(data []float64, width int) string {
	line := sparkline(data, width)
	if line == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(ColorNeonCyan).Render(line)
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	levels := len(sparklineBlockRunes)
	span := maxVal - minVal
	for _, v := range data {
		level := levels / 2
		if span != 0 {
			level = int((v - minVal) / span * float64(levels-1))
			level = max(0, min(level, levels-1))
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}
	return sb.String()
}

// getThresholdColor maps a percentage to green, amber or red.
func getThresholdColor(percent float64) lipgloss.Color {
	switch {
	case percent >= 80:
		return ColorError
	case percent >= 60:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
