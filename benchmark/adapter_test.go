package benchmark

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-sched/pkg/core"
)

func testAdapter() *Adapter {
	return &Adapter{
		Strategies: []core.Strategy{
			core.Random{Seed: 42},
			core.SMGT{},
			core.SMGTLOTD{},
		},
		TaskCounts: []int{10, 20},
		VMCounts:   []int{2, 3},
		CCRs:       []float64{0.5, 1.0},
		Seed:       42,
	}
}

func TestRunCoversTheGrid(t *testing.T) {
	a := testAdapter()
	a.Run()

	// 2 task counts x 2 vm counts x 2 CCRs x 3 strategies.
	require.Len(t, a.Results, 24)
	for _, r := range a.Results {
		assert.Empty(t, r.Err, "trial %+v failed", r)
		assert.GreaterOrEqual(t, r.Metrics.Makespan, 0.0)
		assert.GreaterOrEqual(t, r.Metrics.SLR, 0.0)
		assert.GreaterOrEqual(t, r.Metrics.AVU, 0.0)
		assert.LessOrEqual(t, r.Metrics.AVU, 1.0)
	}
}

func TestRunResultsGroupedAndSorted(t *testing.T) {
	a := testAdapter()
	a.Parallelism = 4
	a.Run()

	for i := 1; i < len(a.Results); i++ {
		prev, cur := a.Results[i-1], a.Results[i]
		if prev.TaskCount != cur.TaskCount {
			assert.Less(t, prev.TaskCount, cur.TaskCount)
			continue
		}
		assert.LessOrEqual(t, prev.VMCount, cur.VMCount)
	}
}

// The same seed must yield the same metrics regardless of parallelism or
// call order: trials only touch per-trial copies.
func TestRunReproducible(t *testing.T) {
	a := testAdapter()
	a.Run()
	b := testAdapter()
	b.Parallelism = 1
	b.Run()

	require.Equal(t, len(a.Results), len(b.Results))
	for i := range a.Results {
		assert.Equal(t, a.Results[i].Strategy, b.Results[i].Strategy)
		assert.InDelta(t, a.Results[i].Metrics.Makespan, b.Results[i].Metrics.Makespan, 1e-9)
		assert.InDelta(t, a.Results[i].Metrics.SLR, b.Results[i].Metrics.SLR, 1e-9)
	}
}

func TestOnRecordObservesEveryTrial(t *testing.T) {
	a := testAdapter()
	var mu sync.Mutex
	seen := 0
	a.OnRecord = func(Record) {
		mu.Lock()
		seen++
		mu.Unlock()
	}
	a.Run()
	assert.Equal(t, len(a.Results), seen)
}

func TestSummariesAggregatePerStrategy(t *testing.T) {
	a := testAdapter()
	a.Run()

	summaries := a.Summaries()
	require.Len(t, summaries, 3)
	for _, s := range summaries {
		assert.Equal(t, 8, s.Trials)
		assert.Greater(t, s.AvgSLR, 0.0)
		assert.LessOrEqual(t, s.BestSLR, s.AvgSLR)
		assert.GreaterOrEqual(t, s.BestAVU, s.AvgAVU)
	}
	// Declaration order is preserved.
	assert.Equal(t, "Random", summaries[0].Strategy)
}

func TestExportCSV(t *testing.T) {
	a := testAdapter()
	a.Run()

	path, err := a.ExportCSV(t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, len(a.Results)+1)
	assert.Contains(t, lines[0], "strategy,tasks,vms,ccr,slr")
}

func TestExportCSVWrapsDirError(t *testing.T) {
	a := testAdapter()
	a.Run()

	// A regular file where the results dir should go makes MkdirAll fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := a.ExportCSV(filepath.Join(blocker, "results"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating results dir")
}
