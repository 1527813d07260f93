// Package tui is an interactive terminal browser for stored runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dynopt/internal/storage"
	"github.com/san-kum/dynopt/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

const sparkWidth = 40

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Browser steps through the nodes of one stored trajectory.
type Browser struct {
	meta    storage.RunMetadata
	traj    *storage.Trajectory
	node    int
	playing bool
}

func NewBrowser(meta storage.RunMetadata, traj *storage.Trajectory) *Browser {
	return &Browser{meta: meta, traj: traj}
}

// Node is the node currently shown.
func (b *Browser) Node() int { return b.node }

func (b *Browser) last() int { return max(len(b.traj.States)-1, 0) }

func (b *Browser) Init() tea.Cmd { return nil }

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return b, tea.Quit
		case "right", "l":
			b.node = min(b.node+1, b.last())
		case "left", "h":
			b.node = max(b.node-1, 0)
		case "home", "g":
			b.node = 0
		case "end", "G":
			b.node = b.last()
		case " ", "p":
			b.playing = !b.playing
			if b.playing {
				if b.node == b.last() {
					b.node = 0
				}
				return b, tick()
			}
		}
	case tickMsg:
		if !b.playing {
			return b, nil
		}
		if b.node >= b.last() {
			b.playing = false
			return b, nil
		}
		b.node++
		return b, tick()
	}
	return b, nil
}

func (b *Browser) View() string {
	var sb strings.Builder

	status := green.Render("●") + " " + green.Render("playing")
	if !b.playing {
		status = yellow.Render("○") + " " + yellow.Render("paused")
	}
	sb.WriteString(fmt.Sprintf("\n   %s  %s\n", cyan.Render(b.meta.ID), status))
	sb.WriteString(fmt.Sprintf("   %s\n", dim.Render(fmt.Sprintf("%s/%s/%s  dt=%g  total cost=%.6g",
		b.meta.Model, b.meta.Integrator, b.meta.Control, b.meta.Dt, b.meta.TotalCost))))

	barWidth := 36
	filled := barWidth
	if b.last() > 0 {
		filled = b.node * barWidth / b.last()
	}
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	sb.WriteString(fmt.Sprintf("   %s %s\n\n", bar, dim.Render(fmt.Sprintf("node %d/%d", b.node, b.last()))))

	if len(b.traj.States) == 0 {
		sb.WriteString(dim.Render("   empty trajectory") + "\n")
		return sb.String()
	}

	x := b.traj.States[b.node]
	for i, v := range x {
		label := viz.StateCaption(b.meta.Model, i)
		spark := sparkline(b.traj.Column(i), b.node, sparkWidth)
		sb.WriteString(fmt.Sprintf("   %s %s  %s\n",
			dim.Render(fmt.Sprintf("%-12s", label)), white.Render(fmt.Sprintf("%10.4f", v)), spark))
	}

	sb.WriteString("\n")
	if b.node < len(b.traj.Controls) && len(b.traj.Controls[b.node]) > 0 {
		parts := make([]string, len(b.traj.Controls[b.node]))
		for i, u := range b.traj.Controls[b.node] {
			parts[i] = fmt.Sprintf("%.4f", u)
		}
		sb.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("u"), magenta.Render(strings.Join(parts, "  "))))
	} else {
		sb.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("u"), dimmer.Render("terminal")))
	}
	if b.node < len(b.traj.Costs) {
		sb.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("cost"), white.Render(fmt.Sprintf("%.6g", b.traj.Costs[b.node]))))
	}

	sb.WriteString("\n" + dim.Render("   ←→ step  home/end jump  space play  q quit") + "\n")
	return sb.String()
}

// sparkline renders data compressed to width runes, with the rune holding
// node highlighted.
func sparkline(data []float64, node, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := max(len(data)/width, 1)

	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		idx = min(max(idx, 0), 7)
		c := string(chars[idx])
		if node >= i*step && node < (i+1)*step {
			sb.WriteString(yellow.Render(c))
		} else {
			sb.WriteString(cyan.Render(c))
		}
	}
	return sb.String()
}

// Run opens the browser full screen until the user quits.
func Run(meta storage.RunMetadata, traj *storage.Trajectory) error {
	p := tea.NewProgram(NewBrowser(meta, traj), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
