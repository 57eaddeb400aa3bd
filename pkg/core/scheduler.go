package core

import (
	"math"

	"github.com/pkg/errors"
)

// RefineConfig controls the local-search refinement pass. The iteration cap
// and the improvement rule are exposed so callers and tests can force
// convergence or cap-hit scenarios deterministically.
type RefineConfig struct {
	// MaxPasses bounds the number of full scans over the task set.
	MaxPasses int
	// BestImprovement switches the move rule from first-improvement (take
	// the first VM with positive benefit) to best-improvement (evaluate all
	// VMs and take the largest positive benefit).
	BestImprovement bool
}

// DefaultRefineConfig mirrors the reference heuristic: ten passes,
// first-improvement.
var DefaultRefineConfig = RefineConfig{MaxPasses: 10}

// HeuristicScheduler assigns every task to a VM in two phases: critical-path
// tasks first, remaining tasks in topological order, with a final sweep that
// guarantees totality. Assignment mutates the VM pool (queue, available
// time), so each trial needs a freshly reset pool.
type HeuristicScheduler struct {
	DAG    *WorkflowDAG
	Tasks  TaskSet
	Pool   []*VM
	Refine RefineConfig
}

func NewHeuristicScheduler(dag *WorkflowDAG, tasks TaskSet, pool []*VM) *HeuristicScheduler {
	return &HeuristicScheduler{DAG: dag, Tasks: tasks, Pool: pool, Refine: DefaultRefineConfig}
}

// Schedule produces a total assignment: every task in the task set appears
// exactly once, mapped to a VM from the pool. criticalPath tasks are placed
// first, in path order.
func (s *HeuristicScheduler) Schedule(criticalPath []int) (Schedule, error) {
	if len(s.Pool) == 0 && len(s.Tasks) > 0 {
		return nil, errors.Wrap(ErrEmptyVMPool, "cannot schedule tasks")
	}
	topo, err := s.DAG.TopologicalSort()
	if err != nil {
		return nil, err
	}

	schedule := make(Schedule, len(s.Tasks))
	ResetPool(s.Pool)

	// Phase 1: critical path, committed greedily in path order.
	for _, taskID := range criticalPath {
		if _, done := schedule[taskID]; done {
			continue
		}
		task, ok := s.Tasks[taskID]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownTask, "critical path task %d", taskID)
		}
		s.assign(task, s.bestVM(task, schedule), schedule)
	}

	// Phase 2: remaining tasks in topological order, gated on their
	// predecessors already being placed.
	predIndex := s.DAG.PredecessorIndex()
	for _, taskID := range topo {
		if _, done := schedule[taskID]; done {
			continue
		}
		task, ok := s.Tasks[taskID]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownTask, "dag node %d not in task set", taskID)
		}
		if !dependenciesSatisfied(predIndex[taskID], schedule) {
			continue
		}
		s.assign(task, s.bestVM(task, schedule), schedule)
	}

	// Final sweep: anything dependency ordering left behind still gets a VM,
	// so the schedule is total.
	for _, taskID := range s.Tasks.IDs() {
		if _, done := schedule[taskID]; done {
			continue
		}
		s.assign(s.Tasks[taskID], s.bestVM(s.Tasks[taskID], schedule), schedule)
	}

	return schedule, nil
}

// ScheduleWithGameTheory runs Schedule and then the bounded local-search
// refinement over the result.
func (s *HeuristicScheduler) ScheduleWithGameTheory(criticalPath []int) (Schedule, error) {
	schedule, err := s.Schedule(criticalPath)
	if err != nil {
		return nil, err
	}
	return s.RefineSchedule(schedule), nil
}

func dependenciesSatisfied(preds []int, schedule Schedule) bool {
	for _, p := range preds {
		if _, ok := schedule[p]; !ok {
			return false
		}
	}
	return true
}

// bestVM picks the pool VM minimizing the combined score. Strict less-than
// keeps the first minimum, so score ties resolve toward the earlier pool
// position (ascending VM id as pools are normally built).
func (s *HeuristicScheduler) bestVM(task *Task, schedule Schedule) *VM {
	var best *VM
	bestScore := math.Inf(1)
	for _, vm := range s.Pool {
		if score := s.score(task, vm, schedule); score < bestScore {
			bestScore, best = score, vm
		}
	}
	return best
}

// score combines execution time weighted by queue pressure, the cross-VM
// communication cost against everything already placed, and a readiness
// penalty. Lower is better.
func (s *HeuristicScheduler) score(task *Task, vm *VM, schedule Schedule) float64 {
	executionTime := task.Size / vm.Capacity
	loadFactor := float64(vm.QueueLen() + 1)
	return executionTime*loadFactor + s.commCost(task, vm, schedule) + vm.AvailableTime*0.1
}

// commCost sums, over every already-scheduled task on a different VM, a data
// transfer term of min(sizes)*0.1/10. Iteration runs in ascending task id so
// the floating-point sum is reproducible.
func (s *HeuristicScheduler) commCost(task *Task, vm *VM, schedule Schedule) float64 {
	total := 0.0
	for _, scheduledID := range s.Tasks.IDs() {
		vmID, ok := schedule[scheduledID]
		if !ok || vmID == vm.ID {
			continue
		}
		dataSize := math.Min(task.Size, s.Tasks[scheduledID].Size) * 0.1
		total += dataSize / 10.0
	}
	return total
}

func (s *HeuristicScheduler) assign(task *Task, vm *VM, schedule Schedule) {
	vm.Waiting.Enqueue(task)
	task.AssignedVM = vm.ID
	vm.AvailableTime += task.Size / vm.Capacity
	schedule[task.ID] = vm.ID
}

// RefineSchedule is a bounded local search over a complete assignment: each
// pass scans every task and evaluates moving it to other VMs, applying moves
// whose global-cost benefit is positive. It stops when a full pass makes no
// improving move or at the configured cap, whichever comes first. No
// optimality guarantee; the output is a fixed point of the move rule once the
// cap is not the limiting factor. Only the mapping changes, VM state is left
// as Schedule built it.
func (s *HeuristicScheduler) RefineSchedule(schedule Schedule) Schedule {
	optimized := schedule.Copy()
	taskIDs := s.Tasks.IDs()

	improved := true
	for iteration := 0; improved && iteration < s.Refine.MaxPasses; iteration++ {
		improved = false
		for _, taskID := range taskIDs {
			currentVM, ok := optimized[taskID]
			if !ok {
				continue
			}
			currentCost := s.globalCost(optimized)

			bestVM, bestBenefit := -1, 0.0
			for _, vm := range s.Pool {
				if vm.ID == currentVM {
					continue
				}
				optimized[taskID] = vm.ID
				benefit := currentCost - s.globalCost(optimized)
				optimized[taskID] = currentVM

				if benefit > bestBenefit {
					bestVM, bestBenefit = vm.ID, benefit
					if !s.Refine.BestImprovement {
						break
					}
				}
			}
			if bestVM >= 0 {
				optimized[taskID] = bestVM
				improved = true
			}
		}
	}
	return optimized
}

// globalCost sums per-task execution time plus a communication penalty of
// min(sizes)*0.1 for every DAG edge whose endpoints land on different VMs.
func (s *HeuristicScheduler) globalCost(schedule Schedule) float64 {
	vmByID := make(map[int]*VM, len(s.Pool))
	for _, vm := range s.Pool {
		vmByID[vm.ID] = vm
	}

	total := 0.0
	for _, taskID := range s.Tasks.IDs() {
		vmID, ok := schedule[taskID]
		if !ok {
			continue
		}
		if vm, ok := vmByID[vmID]; ok {
			total += s.Tasks[taskID].Size / vm.Capacity
		}
	}

	for _, from := range s.DAG.Nodes() {
		fromTask, ok := s.Tasks[from]
		if !ok {
			continue
		}
		for _, to := range s.DAG.Successors(from) {
			toTask, ok := s.Tasks[to]
			if !ok {
				continue
			}
			fromVM, okFrom := schedule[from]
			toVM, okTo := schedule[to]
			if okFrom && okTo && fromVM != toVM {
				total += math.Min(fromTask.Size, toTask.Size) * 0.1
			}
		}
	}
	return total
}
