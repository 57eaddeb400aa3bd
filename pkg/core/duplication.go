package core

import (
	"math"

	"github.com/pkg/errors"
)

// DuplicationOptimizer cuts cross-VM communication by replicating a
// predecessor's output onto the VM of its successors when that moves the
// successor's expected start time earlier.
//
// Timing here is a deliberately coarse stand-in: AST(t) = max AFT over
// predecessors and AFT(t) = AST(t)+1, with no VM-speed or communication
// terms. This is NOT the replay model used by ScheduleSimulator; the two are
// intentionally kept separate, since unifying them changes which tasks are
// judged critical for duplication.
type DuplicationOptimizer struct {
	DAG  *WorkflowDAG
	Pool []*VM

	ast        map[int]float64
	aft        map[int]float64
	replicated map[int]bool
}

func NewDuplicationOptimizer(dag *WorkflowDAG, pool []*VM) *DuplicationOptimizer {
	return &DuplicationOptimizer{
		DAG:        dag,
		Pool:       pool,
		ast:        make(map[int]float64),
		aft:        make(map[int]float64),
		replicated: make(map[int]bool),
	}
}

// Run scans each VM's queue head once and, where a replicable predecessor's
// finish time beats the head's current expected start, enqueues a zero-size
// marker copy of that predecessor on the VM and recomputes all times. The
// replicable set is seeded with the critical path, whose outputs are the ones
// worth copying. Best-effort and single-iteration-per-VM: duplications that
// only become attractive late in VM order may stay undiscovered.
func (d *DuplicationOptimizer) Run(criticalPath []int) error {
	for _, taskID := range criticalPath {
		d.replicated[taskID] = true
	}
	if err := d.updateTimes(); err != nil {
		return err
	}

	for _, vm := range d.Pool {
		if vm.QueueLen() == 0 {
			continue
		}
		head, ok := vm.Waiting.Peek().(*Task)
		if !ok || d.ast[head.ID] == 0 {
			continue
		}

		minStart := math.Inf(1)
		minPred := -1
		for _, pred := range d.DAG.Predecessors(head.ID) {
			if !d.replicated[pred] {
				continue
			}
			if start := d.aft[pred]; start < minStart {
				minStart, minPred = start, pred
			}
		}

		if minPred >= 0 && minStart < d.ast[head.ID] {
			d.replicate(minPred, vm)
			if err := d.updateTimes(); err != nil {
				return err
			}
		}
	}
	return nil
}

// replicate enqueues a zero-size marker copy of taskID on vm; the size is
// symbolic, only the placement matters.
func (d *DuplicationOptimizer) replicate(taskID int, vm *VM) {
	d.replicated[taskID] = true
	marker := NewTask(taskID, 0)
	marker.AssignedVM = vm.ID
	vm.Waiting.Enqueue(marker)
}

// updateTimes recomputes AST/AFT for every task in one topological pass under
// the unit-execution model.
func (d *DuplicationOptimizer) updateTimes() error {
	topo, err := d.DAG.TopologicalSort()
	if err != nil {
		return err
	}
	predIndex := d.DAG.PredecessorIndex()

	for _, taskID := range topo {
		maxAFT := 0.0
		for _, pred := range predIndex[taskID] {
			if d.aft[pred] > maxAFT {
				maxAFT = d.aft[pred]
			}
		}
		d.ast[taskID] = maxAFT
		d.aft[taskID] = maxAFT + 1
	}
	return nil
}

// OptimizeSchedule is the schedule-level companion pass the comparison driver
// uses: for each critical-path task whose successors cluster on one VM, move
// the task onto that VM so its output is local to most consumers. Returns a
// new schedule; the input is not mutated.
func (d *DuplicationOptimizer) OptimizeSchedule(schedule Schedule, criticalPath []int) (Schedule, error) {
	optimized := schedule.Copy()

	for _, taskID := range criticalPath {
		currentVM, ok := schedule[taskID]
		if !ok {
			return nil, errors.Wrapf(ErrUnscheduledTask, "critical path task %d", taskID)
		}
		successors := d.DAG.Successors(taskID)
		if len(successors) == 0 {
			continue
		}

		counts := make(map[int]int)
		for _, succ := range successors {
			vmID, ok := schedule[succ]
			if !ok {
				return nil, errors.Wrapf(ErrUnscheduledTask, "successor task %d", succ)
			}
			counts[vmID]++
		}

		bestVM, bestCount := currentVM, 0
		for _, vm := range d.Pool {
			if c := counts[vm.ID]; c > bestCount {
				bestVM, bestCount = vm.ID, c
			}
		}
		if bestVM != currentVM && bestCount > 1 {
			optimized[taskID] = bestVM
		}
	}
	return optimized, nil
}
