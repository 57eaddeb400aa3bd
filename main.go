package main

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"workflow-sched/benchmark"
	"workflow-sched/pkg/core"
	"workflow-sched/pkg/metrics"
	"workflow-sched/pkg/reporter"
)

// parseFloatSlice converts a comma-separated list of floats into a slice
func parseFloatSlice(s string) []float64 {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			logrus.Fatalf("invalid float in slice %q: %v", p, err)
		}
		out = append(out, v)
	}
	return out
}

// parseIntSlice converts a comma-separated list of ints into a slice
func parseIntSlice(s string) []int {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			logrus.Fatalf("invalid int in slice %q: %v", p, err)
		}
		out = append(out, v)
	}
	return out
}

func main() {
	var (
		tasksFlag   string
		vmsFlag     string
		ccrFlag     string
		seed        int64
		parallelism int
		csvDir      string
		metricsAddr string
		detail      bool
	)
	flag.StringVar(&tasksFlag, "tasks", "20,50,100", "comma-separated task counts")
	flag.StringVar(&vmsFlag, "vms", "3,5,10", "comma-separated VM counts")
	flag.StringVar(&ccrFlag, "ccr", "0.1,0.5,1.0,2.0", "comma-separated CCR values")
	flag.Int64Var(&seed, "seed", 42, "generator seed (trials are reproducible per seed)")
	flag.IntVar(&parallelism, "parallelism", 0, "max concurrent instance groups (0 = unbounded)")
	flag.StringVar(&csvDir, "csv", "", "export results CSV into this directory (empty = skip)")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (empty = off)")
	flag.BoolVar(&detail, "detail", true, "run the detailed 50-task/5-VM CCR analysis")
	flag.Parse()

	taskCounts := parseIntSlice(tasksFlag)
	vmCounts := parseIntSlice(vmsFlag)
	ccrs := parseFloatSlice(ccrFlag)

	if len(taskCounts) == 0 || len(vmCounts) == 0 || len(ccrs) == 0 {
		logrus.Fatal("tasks, vms and ccr grids must all be non-empty")
	}
	for _, tc := range taskCounts {
		if tc <= 0 {
			logrus.Fatalf("task count must be positive, got %d", tc)
		}
	}
	for _, vc := range vmCounts {
		if vc <= 0 {
			logrus.Fatalf("vm count must be positive, got %d", vc)
		}
	}
	for _, c := range ccrs {
		if c <= 0 {
			logrus.Fatalf("ccr must be positive, got %v", c)
		}
	}

	adapter := &benchmark.Adapter{
		Strategies: []core.Strategy{
			core.Random{Seed: seed},
			core.SMGT{},
			core.SMGTGameTheory{},
			core.SMGTLOTD{},
		},
		TaskCounts:  taskCounts,
		VMCounts:    vmCounts,
		CCRs:        ccrs,
		Seed:        seed,
		Parallelism: parallelism,
	}
	if metricsAddr != "" {
		metrics.Serve(metricsAddr)
		adapter.OnRecord = func(r benchmark.Record) {
			metrics.Observe(r.Strategy, r.TaskCount, r.VMCount, r.CCR, r.Metrics, r.Err != "")
		}
	}

	logrus.WithFields(logrus.Fields{
		"tasks": taskCounts, "vms": vmCounts, "ccr": ccrs, "seed": seed,
	}).Info("running strategy comparison")
	adapter.Run()

	reporter.PrintComparison(os.Stdout, adapter.Results)
	reporter.PrintSummary(os.Stdout, adapter.Summaries())

	if detail {
		runDetailedAnalysis(seed, parallelism)
	}

	if csvDir != "" {
		path, err := adapter.ExportCSV(csvDir)
		if err != nil {
			logrus.Fatalf("csv export failed: %v", err)
		}
		logrus.WithField("path", path).Info("exported results")
	}
}

// runDetailedAnalysis sweeps a fine CCR grid on one mid-sized instance and
// charts SLR/AVU/VF per strategy against CCR.
func runDetailedAnalysis(seed int64, parallelism int) {
	const (
		taskCount = 50
		vmCount   = 5
	)
	strategies := []core.Strategy{
		core.Random{Seed: seed},
		core.SMGT{},
		core.SMGTLOTD{},
	}
	adapter := &benchmark.Adapter{
		Strategies:  strategies,
		TaskCounts:  []int{taskCount},
		VMCounts:    []int{vmCount},
		CCRs:        []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0, 1.5, 2.0},
		Seed:        seed,
		Parallelism: parallelism,
	}
	adapter.Run()

	series := make([]reporter.Series, 0, len(strategies))
	for _, s := range strategies {
		series = append(series, reporter.BuildSeries(adapter.Results, s.Name(), taskCount, vmCount))
	}
	reporter.PrintChart(os.Stdout, "SLR Comparison", series, reporter.SLRAt)
	reporter.PrintChart(os.Stdout, "AVU Comparison", series, reporter.AVUAt)
	reporter.PrintChart(os.Stdout, "VF Comparison", series, reporter.VFAt)
	reporter.PrintSummary(os.Stdout, adapter.Summaries())
}
