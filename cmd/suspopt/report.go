package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/suspopt/internal/dynamo"
	"github.com/san-kum/suspopt/internal/experiment"
	"github.com/san-kum/suspopt/internal/objective"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ccff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffaa00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4444")).
			Bold(true)
)

func printResult(out io.Writer, exp *experiment.Experiment, res *experiment.Result, elapsed time.Duration) {
	fmt.Fprintln(out, titleStyle.Render("optimization"))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "k1\t%s\tN/m\t%s\n", valueStyle.Render(fmt.Sprintf("%.2f", res.Params.K1)), exp.Limits().Suspension)
	fmt.Fprintf(w, "c1\t%s\tN·s/m\t\n", valueStyle.Render(fmt.Sprintf("%.2f", res.Params.C1)))
	fmt.Fprintf(w, "k2\t%s\tN/m\t%s\n", valueStyle.Render(fmt.Sprintf("%.2f", res.Params.K2)), exp.Limits().Tire)
	fmt.Fprintf(w, "initial\t%s\t\t\n", res.Initial)
	fmt.Fprintf(w, "initial score\t%.6g\t\t\n", res.InitialScore.Total)
	printScore(w, exp, res.Score)

	status := res.Status
	if !res.Converged {
		status = warnStyle.Render(status + " (not converged)")
	}
	fmt.Fprintf(w, "status\t%s\t\t\n", status)
	if !res.Feasible {
		fmt.Fprintf(w, "bounds\t%s\t\t\n", warnStyle.Render("outside stiffness bounds"))
	}
	fmt.Fprintf(w, "iterations\t%d\t\t\n", res.Iterations)
	fmt.Fprintf(w, "evaluations\t%d\t\t\n", res.Evaluations)
	fmt.Fprintf(w, "elapsed\t%v\t\t\n", elapsed.Round(time.Millisecond))
	w.Flush()
}

func printScore(w *tabwriter.Writer, exp *experiment.Experiment, s objective.Score) {
	if s.Diverged {
		fmt.Fprintf(w, "score\t%s\t\t\n", warnStyle.Render(fmt.Sprintf("%.6g (diverged)", s.Total)))
		return
	}
	fmt.Fprintf(w, "tracking\t%.6g\tm²\t\n", s.Tracking)
	fmt.Fprintf(w, "tracking rms\t%.4g\tm\t\n", s.TrackingRMS)
	fmt.Fprintf(w, "bound penalty\t%.6g\t\t\n", s.BoundPenalty)
	fmt.Fprintf(w, "comfort penalty\t%.6g\t\t\n", s.ComfortPenalty)
	fmt.Fprintf(w, "peak accel\t%.3f\tm/s²\tlimit %.3f\n", s.PeakAccel, exp.Objective().AccelLimit())
	fmt.Fprintf(w, "score\t%s\t\t\n", valueStyle.Render(fmt.Sprintf("%.6g", s.Total)))
}

// plotTrajectory draws body displacement over the road profile.
func plotTrajectory(road []float64, states []dynamo.State, caption string) string {
	body := make([]float64, len(states))
	for i, x := range states {
		body[i] = x[0]
	}
	return asciigraph.PlotMany([][]float64{body, road},
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption(caption),
	)
}
