// Package generator builds synthetic workflow instances for benchmark trials:
// task sets, heterogeneous VM pools, and layered DAGs. All randomness comes
// from an explicit seed handed to New, never from a process-global PRNG, so
// a trial is reproducible no matter what ran before it.
package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"workflow-sched/pkg/core"
)

// Generator produces one reproducible workflow instance per seed.
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Tasks generates n tasks with ids 1..n and sizes uniform in [10, 100).
func (g *Generator) Tasks(n int) core.TaskSet {
	tasks := make(core.TaskSet, n)
	for i := 1; i <= n; i++ {
		size := 10 + g.rng.Float64()*90
		tasks[i] = core.NewTask(i, size)
	}
	return tasks
}

// VMs generates n VMs with ids 0..n-1 and capacities uniform in [5, 20).
func (g *Generator) VMs(n int) []*core.VM {
	pool := make([]*core.VM, 0, n)
	for i := 0; i < n; i++ {
		capacity := 5 + g.rng.Float64()*15
		pool = append(pool, core.NewVM(i, capacity))
	}
	return pool
}

// DAG generates a layered workflow over task ids 1..n: at least 3 layers,
// each task wired to next-layer tasks with probability 0.3. Every id is
// added as a node even if no edge touches it, so sparse draws still yield a
// total instance.
func (g *Generator) DAG(n int) *core.WorkflowDAG {
	dag := core.NewWorkflowDAG()
	for i := 1; i <= n; i++ {
		dag.AddNode(i)
	}

	layers := n / 10
	if layers < 3 {
		layers = 3
	}
	tasksPerLayer := n / layers
	if tasksPerLayer < 1 {
		tasksPerLayer = 1
	}

	for layer := 0; layer < layers-1; layer++ {
		startTask := layer*tasksPerLayer + 1
		endTask := (layer + 1) * tasksPerLayer
		if endTask > n {
			endTask = n
		}
		nextStart := endTask + 1
		nextEnd := nextStart + tasksPerLayer - 1
		if nextEnd > n {
			nextEnd = n
		}
		for from := startTask; from <= endTask; from++ {
			for to := nextStart; to <= nextEnd && to <= n; to++ {
				if g.rng.Float64() < 0.3 {
					dag.AddEdge(from, to)
				}
			}
		}
	}
	return dag
}

// Instance bundles everything one trial needs.
type Instance struct {
	Tasks core.TaskSet
	Pool  []*core.VM
	DAG   *core.WorkflowDAG
}

// Instance generates a full (tasks, pool, dag) triple in one call.
func (g *Generator) Instance(taskCount, vmCount int) Instance {
	return Instance{
		Tasks: g.Tasks(taskCount),
		Pool:  g.VMs(vmCount),
		DAG:   g.DAG(taskCount),
	}
}

// WriteCSV dumps the instance as {kind,id,size_or_capacity,successors} rows,
// mainly for inspecting what a seed produced.
func WriteCSV(path string, inst Instance) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating dirs for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "os.Create(%s)", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"kind", "id", "value", "successors"}); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, id := range inst.Tasks.IDs() {
		succs := ""
		for i, s := range inst.DAG.Successors(id) {
			if i > 0 {
				succs += " "
			}
			succs += strconv.Itoa(s)
		}
		if err := w.Write([]string{
			"task",
			strconv.Itoa(id),
			fmt.Sprintf("%.4f", inst.Tasks[id].Size),
			succs,
		}); err != nil {
			return err
		}
	}
	for _, vm := range inst.Pool {
		if err := w.Write([]string{
			"vm",
			strconv.Itoa(vm.ID),
			fmt.Sprintf("%.4f", vm.Capacity),
			"",
		}); err != nil {
			return err
		}
	}
	return nil
}
