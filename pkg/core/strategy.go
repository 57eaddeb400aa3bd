package core

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Strategy produces a hypothetical schedule for one trial. Implementations
// may mutate the task set and VM pool they are handed (scoring and assignment
// are stateful), so callers pass per-trial copies.
type Strategy interface {
	Name() string
	Schedule(dag *WorkflowDAG, tasks TaskSet, pool []*VM, ccr float64) (Schedule, error)
}

// Random assigns every task to a uniformly chosen VM. The baseline the
// heuristics are measured against. Seed is explicit so trials are
// reproducible regardless of call order.
type Random struct {
	Seed int64
}

func (Random) Name() string { return "Random" }

func (r Random) Schedule(dag *WorkflowDAG, tasks TaskSet, pool []*VM, ccr float64) (Schedule, error) {
	if len(pool) == 0 && len(tasks) > 0 {
		return nil, errors.Wrap(ErrEmptyVMPool, "random strategy")
	}
	rng := rand.New(rand.NewSource(r.Seed))
	schedule := make(Schedule, len(tasks))
	for _, id := range tasks.IDs() {
		schedule[id] = pool[rng.Intn(len(pool))].ID
	}
	return schedule, nil
}

// SMGT is the two-phase heuristic: critical path first, remaining tasks by
// topological order, greedy min-cost VM per task.
type SMGT struct{}

func (SMGT) Name() string { return "SMGT" }

func (SMGT) Schedule(dag *WorkflowDAG, tasks TaskSet, pool []*VM, ccr float64) (Schedule, error) {
	path, err := NewCriticalPathAnalyzer(dag, tasks, pool, ccr).CriticalPath()
	if err != nil {
		return nil, err
	}
	return NewHeuristicScheduler(dag, tasks, pool).Schedule(path)
}

// SMGTGameTheory is SMGT followed by the bounded local-search refinement.
// A nil Refine means DefaultRefineConfig; a non-nil one is taken verbatim, so
// an explicit zero-pass (identity) refinement is configurable.
type SMGTGameTheory struct {
	Refine *RefineConfig
}

func (SMGTGameTheory) Name() string { return "SMGT-GT" }

func (s SMGTGameTheory) Schedule(dag *WorkflowDAG, tasks TaskSet, pool []*VM, ccr float64) (Schedule, error) {
	path, err := NewCriticalPathAnalyzer(dag, tasks, pool, ccr).CriticalPath()
	if err != nil {
		return nil, err
	}
	scheduler := NewHeuristicScheduler(dag, tasks, pool)
	if s.Refine != nil {
		scheduler.Refine = *s.Refine
	}
	return scheduler.ScheduleWithGameTheory(path)
}

// SMGTLOTD is SMGT followed by the duplication optimization.
type SMGTLOTD struct{}

func (SMGTLOTD) Name() string { return "SMGT+LOTD" }

func (SMGTLOTD) Schedule(dag *WorkflowDAG, tasks TaskSet, pool []*VM, ccr float64) (Schedule, error) {
	path, err := NewCriticalPathAnalyzer(dag, tasks, pool, ccr).CriticalPath()
	if err != nil {
		return nil, err
	}
	schedule, err := NewHeuristicScheduler(dag, tasks, pool).Schedule(path)
	if err != nil {
		return nil, err
	}
	optimizer := NewDuplicationOptimizer(dag, pool)
	if err := optimizer.Run(path); err != nil {
		return nil, err
	}
	return optimizer.OptimizeSchedule(schedule, path)
}
