// Package reporter renders benchmark results as tabular text: the per-group
// comparison table the sweep prints, the per-strategy summary, and the
// CCR-series comparison charts. It only consumes records; nothing here feeds
// back into scheduling.
package reporter

import (
	"fmt"
	"io"

	"github.com/ttacon/chalk"

	"workflow-sched/benchmark"
)

func header(s string) string {
	return chalk.Bold.TextStyle(chalk.Cyan.Color(s))
}

// PrintComparison writes the result table grouped by (taskCount, vmCount),
// one row per strategy and CCR. Failed trials print their error in place of
// metrics so they are never mistaken for cheap schedules.
func PrintComparison(w io.Writer, results []benchmark.Record) {
	type group struct{ tasks, vms int }
	var current group
	first := true

	for _, r := range results {
		g := group{r.TaskCount, r.VMCount}
		if first || g != current {
			if !first {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s\n", header(fmt.Sprintf("Testing with %d tasks and %d VMs:", g.tasks, g.vms)))
			fmt.Fprintf(w, "%-12s\t%s\t%s\t%s\t%s\t%s\n", "Strategy", "CCR", "SLR", "AVU", "VF", "Makespan")
			fmt.Fprintln(w, "--------------------------------------------------------")
			current, first = g, false
		}
		if r.Err != "" {
			fmt.Fprintf(w, "%-12s\t%.1f\t%s\n", r.Strategy, r.CCR,
				chalk.Red.Color("FAILED: "+r.Err))
			continue
		}
		m := r.Metrics
		fmt.Fprintf(w, "%-12s\t%.1f\t%.3f\t%.3f\t%.3f\t%.2f\n",
			r.Strategy, r.CCR, m.SLR, m.AVU, m.VF, m.Makespan)
	}
}

// PrintSummary writes the per-strategy aggregate table.
func PrintSummary(w io.Writer, summaries []benchmark.Summary) {
	fmt.Fprintf(w, "%s\n", header("Summary Statistics:"))
	fmt.Fprintf(w, "%-12s\t%s\t%s\t%s\t%s\t%s\n", "Strategy", "Trials", "Avg SLR", "Avg AVU", "Best SLR", "Best AVU")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-12s\t%d\t%.3f\t%.3f\t%.3f\t\t%.3f\n",
			s.Strategy, s.Trials, s.AvgSLR, s.AvgAVU, s.BestSLR, s.BestAVU)
	}
}

// Series holds the parallel sequences a chart consumes: one x-value (CCR) per
// sample, with the corresponding SLR/AVU/VF readings.
type Series struct {
	Strategy string
	X        []float64
	SLR      []float64
	AVU      []float64
	VF       []float64
}

// BuildSeries extracts one strategy's CCR series from the result table,
// filtered to one (taskCount, vmCount) group. Failed trials are skipped.
func BuildSeries(results []benchmark.Record, strategy string, taskCount, vmCount int) Series {
	s := Series{Strategy: strategy}
	for _, r := range results {
		if r.Strategy != strategy || r.TaskCount != taskCount || r.VMCount != vmCount || r.Err != "" {
			continue
		}
		s.X = append(s.X, r.CCR)
		s.SLR = append(s.SLR, r.Metrics.SLR)
		s.AVU = append(s.AVU, r.Metrics.AVU)
		s.VF = append(s.VF, r.Metrics.VF)
	}
	return s
}

// PrintChart writes a value-vs-CCR comparison of several series as text.
// pick selects which metric of the series to chart.
func PrintChart(w io.Writer, title string, series []Series, pick func(Series, int) float64) {
	fmt.Fprintf(w, "\n%s\n", header(title+" vs CCR:"))
	fmt.Fprint(w, "CCR")
	for _, s := range series {
		fmt.Fprintf(w, "\t%s", s.Strategy)
	}
	fmt.Fprintln(w)

	if len(series) == 0 {
		return
	}
	for i := range series[0].X {
		fmt.Fprintf(w, "%.1f", series[0].X[i])
		for _, s := range series {
			if i < len(s.X) {
				fmt.Fprintf(w, "\t%.3f", pick(s, i))
			} else {
				fmt.Fprint(w, "\t-")
			}
		}
		fmt.Fprintln(w)
	}
}

// Metric selectors for PrintChart.
func SLRAt(s Series, i int) float64 { return s.SLR[i] }
func AVUAt(s Series, i int) float64 { return s.AVU[i] }
func VFAt(s Series, i int) float64  { return s.VF[i] }
