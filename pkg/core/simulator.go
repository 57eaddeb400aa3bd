package core

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Metrics is the standardized quality record of one simulated schedule. A
// pure function of (DAG, VM pool, schedule, CCR, task sizes); immutable once
// computed.
type Metrics struct {
	SLR        float64 // makespan / idealized critical-path lower bound
	AVU        float64 // mean VM utilization over the pool
	VF         float64 // population variance of per-task timing-fidelity ratios
	Makespan   float64 // finish time of the last task
	Efficiency float64 // AVU/SLR, derived convenience only
}

// ScheduleSimulator replays a complete assignment respecting dependency and
// VM-availability constraints to produce ground-truth start/finish times.
// This replay model is richer than the duplication optimizer's AST/AFT
// stand-in; see DuplicationOptimizer.
type ScheduleSimulator struct {
	DAG   *WorkflowDAG
	Tasks TaskSet
	Pool  []*VM
	CCR   float64
}

func NewScheduleSimulator(dag *WorkflowDAG, tasks TaskSet, pool []*VM, ccr float64) *ScheduleSimulator {
	return &ScheduleSimulator{DAG: dag, Tasks: tasks, Pool: pool, CCR: ccr}
}

// ExecutionTime is the modeled runtime of task on vm.
func ExecutionTime(task *Task, vm *VM) float64 {
	return task.Size / vm.Capacity
}

// commTime models the transfer delay of an edge whose endpoints sit on
// different VMs: 10% of the smaller task's size over a nominal channel
// capacity of 10, scaled by CCR.
func (s *ScheduleSimulator) commTime(from, to *Task) float64 {
	dataSize := math.Min(from.Size, to.Size) * 0.1
	return dataSize / 10.0 * s.CCR
}

// Simulate replays the schedule and derives the metrics record. It fails
// fast on a cyclic DAG, a task missing from the task set or schedule, or a
// schedule entry naming a VM outside the pool; a failed trial is always
// distinguishable from a legitimately cheap one.
func (s *ScheduleSimulator) Simulate(schedule Schedule) (Metrics, error) {
	topo, err := s.DAG.TopologicalSort()
	if err != nil {
		return Metrics{}, err
	}
	predIndex := s.DAG.PredecessorIndex()

	vmByID := make(map[int]*VM, len(s.Pool))
	for _, vm := range s.Pool {
		vmByID[vm.ID] = vm
	}

	start := make(map[int]float64, len(topo))
	finish := make(map[int]float64, len(topo))
	vmReady := make(map[int]float64, len(s.Pool))
	vmBusy := make(map[int]float64, len(s.Pool))

	for _, taskID := range topo {
		task, ok := s.Tasks[taskID]
		if !ok {
			return Metrics{}, errors.Wrapf(ErrUnknownTask, "dag node %d not in task set", taskID)
		}
		vmID, ok := schedule[taskID]
		if !ok {
			return Metrics{}, errors.Wrapf(ErrUnscheduledTask, "task %d", taskID)
		}
		vm, ok := vmByID[vmID]
		if !ok {
			return Metrics{}, errors.Wrapf(ErrUnknownVM, "task %d scheduled on vm %d", taskID, vmID)
		}

		earliest := 0.0
		for _, pred := range predIndex[taskID] {
			ready := finish[pred]
			if schedule[pred] != vmID {
				ready += s.commTime(s.Tasks[pred], task)
			}
			if ready > earliest {
				earliest = ready
			}
		}
		if vmReady[vmID] > earliest {
			earliest = vmReady[vmID]
		}

		execTime := ExecutionTime(task, vm)
		start[taskID] = earliest
		finish[taskID] = earliest + execTime
		vmReady[vmID] = finish[taskID]
		vmBusy[vmID] += execTime
	}

	makespan := 0.0
	for _, f := range finish {
		if f > makespan {
			makespan = f
		}
	}

	cpLength, err := s.criticalPathLength()
	if err != nil {
		return Metrics{}, err
	}
	slr := makespan / math.Max(cpLength, 1.0)

	avu := 0.0
	if makespan > 0 && len(s.Pool) > 0 {
		utilizations := make([]float64, 0, len(s.Pool))
		for _, vm := range s.Pool {
			utilizations = append(utilizations, vmBusy[vm.ID]/makespan)
		}
		avu = stat.Mean(utilizations, nil)
	}

	vf := s.varianceFactor(start, finish)

	efficiency := 0.0
	if slr > 0 {
		efficiency = avu / slr
	}

	return Metrics{SLR: slr, AVU: avu, VF: vf, Makespan: makespan, Efficiency: efficiency}, nil
}

// criticalPathLength is the SLR denominator: the longest path length if every
// task ran on the fastest VM, under the same communication model. An
// optimistic lower bound, recomputed independently of the schedule.
func (s *ScheduleSimulator) criticalPathLength() (float64, error) {
	reverseTopo, err := s.DAG.ReverseTopologicalSort()
	if err != nil {
		return 0, err
	}
	maxCap := MaxCapacity(s.Pool)

	ranks := make(map[int]float64, len(reverseTopo))
	longest := 0.0
	for _, taskID := range reverseTopo {
		task, ok := s.Tasks[taskID]
		if !ok {
			return 0, errors.Wrapf(ErrUnknownTask, "dag node %d not in task set", taskID)
		}
		maxSuccessor := 0.0
		for _, succ := range s.DAG.Successors(taskID) {
			succTask, ok := s.Tasks[succ]
			if !ok {
				return 0, errors.Wrapf(ErrUnknownTask, "dag node %d not in task set", succ)
			}
			if r := ranks[succ] + s.commTime(task, succTask); r > maxSuccessor {
				maxSuccessor = r
			}
		}
		ranks[taskID] = task.Size/maxCap + maxSuccessor
		if ranks[taskID] > longest {
			longest = ranks[taskID]
		}
	}
	return longest, nil
}

// varianceFactor measures how unevenly capacity mismatch distorts execution:
// the population variance of expectedTime/actualTime across tasks, where
// expectedTime assumes the fastest VM. Zero when no ratio can be collected.
func (s *ScheduleSimulator) varianceFactor(start, finish map[int]float64) float64 {
	maxCap := MaxCapacity(s.Pool)

	var ratios []float64
	for _, taskID := range s.Tasks.IDs() {
		f, ok := finish[taskID]
		if !ok {
			continue
		}
		actual := f - start[taskID]
		if actual <= 0 {
			continue
		}
		expected := s.Tasks[taskID].Size / maxCap
		ratios = append(ratios, expected/actual)
	}
	if len(ratios) == 0 {
		return 0
	}
	mean := stat.Mean(ratios, nil)
	return stat.MomentAbout(2, ratios, mean, nil)
}
