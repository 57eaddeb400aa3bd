// Package benchmark runs every scheduling strategy over a grid of synthetic
// workflow instances and collects one metrics record per trial. Trials are
// independent: each one works on a deep copy of the generated task set and a
// fresh VM pool, so they parallelize freely.
package benchmark

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"workflow-sched/pkg/core"
	"workflow-sched/pkg/generator"
)

// Record is one trial's outcome. Err is non-empty when the trial failed;
// failed trials keep their record (never zeroed metrics) but are excluded
// from summaries.
type Record struct {
	Strategy  string
	TaskCount int
	VMCount   int
	CCR       float64
	Seed      int64
	Metrics   core.Metrics
	Err       string
}

// Adapter sweeps the (taskCount x vmCount x CCR x strategy) grid.
type Adapter struct {
	Strategies []core.Strategy
	TaskCounts []int
	VMCounts   []int
	CCRs       []float64
	Seed       int64

	// Parallelism caps concurrent instance groups; 0 means unbounded.
	Parallelism int
	// OnRecord, when set, observes each record as it is produced (e.g. the
	// Prometheus exporter).
	OnRecord func(Record)

	Results []Record
}

// Run executes the full grid. One goroutine per (taskCount, vmCount)
// instance; within a group the CCR x strategy trials run sequentially on
// per-trial copies. Results end up sorted by (taskCount, vmCount, strategy,
// CCR) regardless of completion order.
func (a *Adapter) Run() {
	p := pool.NewWithResults[[]Record]()
	if a.Parallelism > 0 {
		p = p.WithMaxGoroutines(a.Parallelism)
	}

	for _, taskCount := range a.TaskCounts {
		for _, vmCount := range a.VMCounts {
			taskCount, vmCount := taskCount, vmCount
			p.Go(func() []Record {
				return a.runGroup(taskCount, vmCount)
			})
		}
	}

	a.Results = nil
	for _, group := range p.Wait() {
		a.Results = append(a.Results, group...)
	}
	sort.Slice(a.Results, func(i, j int) bool {
		ri, rj := a.Results[i], a.Results[j]
		if ri.TaskCount != rj.TaskCount {
			return ri.TaskCount < rj.TaskCount
		}
		if ri.VMCount != rj.VMCount {
			return ri.VMCount < rj.VMCount
		}
		if ri.Strategy != rj.Strategy {
			return ri.Strategy < rj.Strategy
		}
		return ri.CCR < rj.CCR
	})
}

// runGroup generates one instance and runs every (CCR, strategy) combination
// against it. The generated tasks and pool are never handed to a strategy
// directly; every trial gets its own copies so no state leaks across trials.
func (a *Adapter) runGroup(taskCount, vmCount int) []Record {
	inst := generator.New(a.Seed).Instance(taskCount, vmCount)
	log := logrus.WithFields(logrus.Fields{"tasks": taskCount, "vms": vmCount})

	var records []Record
	for _, ccr := range a.CCRs {
		for _, strategy := range a.Strategies {
			rec := Record{
				Strategy:  strategy.Name(),
				TaskCount: taskCount,
				VMCount:   vmCount,
				CCR:       ccr,
				Seed:      a.Seed,
			}

			tasks := inst.Tasks.Copy()
			vms := core.CopyPool(inst.Pool)

			schedule, err := strategy.Schedule(inst.DAG, tasks, vms, ccr)
			if err == nil {
				rec.Metrics, err = core.NewScheduleSimulator(inst.DAG, tasks, vms, ccr).Simulate(schedule)
			}
			if err != nil {
				rec.Err = err.Error()
				log.WithError(err).WithField("strategy", strategy.Name()).Warn("trial failed")
			}

			if a.OnRecord != nil {
				a.OnRecord(rec)
			}
			records = append(records, rec)
		}
	}
	return records
}

// Summary aggregates the successful trials of one strategy.
type Summary struct {
	Strategy string
	Trials   int
	AvgSLR   float64
	AvgAVU   float64
	BestSLR  float64 // lowest SLR seen
	BestAVU  float64 // highest AVU seen
}

// Summaries reduces the result table per strategy, in strategy declaration
// order.
func (a *Adapter) Summaries() []Summary {
	slrs := make(map[string][]float64)
	avus := make(map[string][]float64)
	for _, r := range a.Results {
		if r.Err != "" {
			continue
		}
		slrs[r.Strategy] = append(slrs[r.Strategy], r.Metrics.SLR)
		avus[r.Strategy] = append(avus[r.Strategy], r.Metrics.AVU)
	}

	var out []Summary
	for _, s := range a.Strategies {
		name := s.Name()
		if len(slrs[name]) == 0 {
			continue
		}
		out = append(out, Summary{
			Strategy: name,
			Trials:   len(slrs[name]),
			AvgSLR:   stat.Mean(slrs[name], nil),
			AvgAVU:   stat.Mean(avus[name], nil),
			BestSLR:  floats.Min(slrs[name]),
			BestAVU:  floats.Max(avus[name]),
		})
	}
	return out
}

// ExportCSV writes the result table under dir with a unique, timestamped
// filename and returns the path.
func (a *Adapter) ExportCSV(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating results dir")
	}
	name := fmt.Sprintf("%s_%s_benchmark.csv",
		uuid.New().String()[:8], time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "os.Create(%s)", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"strategy", "tasks", "vms", "ccr", "slr", "avu", "vf", "makespan", "efficiency", "error",
	}); err != nil {
		return "", errors.Wrap(err, "writing header")
	}
	for _, r := range a.Results {
		row := []string{
			r.Strategy,
			fmt.Sprint(r.TaskCount),
			fmt.Sprint(r.VMCount),
			fmt.Sprintf("%.2f", r.CCR),
			fmt.Sprintf("%.4f", r.Metrics.SLR),
			fmt.Sprintf("%.4f", r.Metrics.AVU),
			fmt.Sprintf("%.4f", r.Metrics.VF),
			fmt.Sprintf("%.4f", r.Metrics.Makespan),
			fmt.Sprintf("%.4f", r.Metrics.Efficiency),
			r.Err,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	return path, nil
}
