package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	Pass = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ff88"))

	Fail = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ff4444"))

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)
)

// Separator draws a muted horizontal rule.
func Separator(width int) string {
	if width < 7 {
		width = 7
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return Subtle.Render(left + " ◆ " + right)
}

// Metrics renders name/value pairs sorted by name, one per line.
func Metrics(values map[string]float64) string {
	names := make([]string, 0, len(values))
	width := 0
	for name := range values {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		label := MetricLabel.Render(fmt.Sprintf("%-*s", width, name))
		fmt.Fprintf(&b, "  %s  %s\n", label, MetricValue.Render(fmt.Sprintf("%.6g", values[name])))
	}
	return b.String()
}

// Check renders a pass/fail line for a derivative deviation.
func Check(name string, deviation, tol float64) string {
	status := Pass.Render("ok  ")
	if !(deviation <= tol) {
		status = Fail.Render("FAIL")
	}
	return fmt.Sprintf("  %s %-14s %s", status, name, MetricValue.Render(fmt.Sprintf("%.3e", deviation)))
}
