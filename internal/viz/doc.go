// Package viz renders run summaries for the terminal: lipgloss styles for
// tables and headers, and asciigraph line plots of trajectories.
package viz
