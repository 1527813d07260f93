package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

const (
	PlotHeight = 10
	PlotWidth  = 80
	// MaxPlots caps how many state components are plotted per run.
	MaxPlots = 6
)

// Plot draws one series with a caption.
func Plot(data []float64, caption string) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(PlotHeight),
		asciigraph.Width(PlotWidth),
		asciigraph.Caption(caption),
	)
}

// PlotMany draws several series on shared axes, each in its own color.
func PlotMany(series [][]float64, caption string) string {
	if len(series) == 0 {
		return ""
	}
	colors := []asciigraph.AnsiColor{asciigraph.Cyan, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Green, asciigraph.Red, asciigraph.Blue}
	opts := []asciigraph.Option{
		asciigraph.Height(PlotHeight),
		asciigraph.Width(PlotWidth),
		asciigraph.Caption(caption),
	}
	if len(series) <= len(colors) {
		opts = append(opts, asciigraph.SeriesColors(colors[:len(series)]...))
	}
	return asciigraph.PlotMany(series, opts...)
}

// StateCaption names component i of the state of model.
func StateCaption(model string, i int) string {
	if model == "unicycle" {
		switch i {
		case 0:
			return "x position"
		case 1:
			return "y position"
		case 2:
			return "heading"
		}
	}
	return fmt.Sprintf("x%d vs node", i)
}
