package core

import (
	"sort"

	"github.com/pkg/errors"
)

// CriticalPathAnalyzer derives rank and level metrics over a workflow. All
// execution estimates use the pool's average capacity, so the figures are
// machine-independent; CCR scales the communication terms.
type CriticalPathAnalyzer struct {
	DAG   *WorkflowDAG
	Tasks TaskSet
	Pool  []*VM
	CCR   float64
}

func NewCriticalPathAnalyzer(dag *WorkflowDAG, tasks TaskSet, pool []*VM, ccr float64) *CriticalPathAnalyzer {
	return &CriticalPathAnalyzer{DAG: dag, Tasks: tasks, Pool: pool, CCR: ccr}
}

// AvgCommunicationCost is the uniform per-edge estimate used by the upward
// ranks: mean task size over mean capacity, scaled by CCR.
func (a *CriticalPathAnalyzer) AvgCommunicationCost() float64 {
	return a.Tasks.AvgSize() / AvgCapacity(a.Pool) * a.CCR
}

// avgExecTime estimates the runtime of taskID on an average-capacity VM.
func (a *CriticalPathAnalyzer) avgExecTime(taskID int) (float64, error) {
	task, ok := a.Tasks[taskID]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTask, "dag node %d not in task set", taskID)
	}
	return task.Size / AvgCapacity(a.Pool), nil
}

// edgeCommCost estimates the transfer delay of one edge: 10% of the smaller
// endpoint's size over the average capacity, scaled by CCR.
func (a *CriticalPathAnalyzer) edgeCommCost(from, to int) (float64, error) {
	fromTask, ok := a.Tasks[from]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTask, "dag node %d not in task set", from)
	}
	toTask, ok := a.Tasks[to]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTask, "dag node %d not in task set", to)
	}
	size := fromTask.Size
	if toTask.Size < size {
		size = toTask.Size
	}
	return size * 0.1 / AvgCapacity(a.Pool) * a.CCR, nil
}

// UpwardRanks computes rank(t) = exec(t) + max over successors of
// (avgComm + rank(succ)), folding from sinks toward sources.
func (a *CriticalPathAnalyzer) UpwardRanks() (map[int]float64, error) {
	reverseTopo, err := a.DAG.ReverseTopologicalSort()
	if err != nil {
		return nil, err
	}
	comm := a.AvgCommunicationCost()

	ranks := make(map[int]float64, len(reverseTopo))
	for _, taskID := range reverseTopo {
		exec, err := a.avgExecTime(taskID)
		if err != nil {
			return nil, err
		}
		maxSuccessor := 0.0
		for _, succ := range a.DAG.Successors(taskID) {
			if r := comm + ranks[succ]; r > maxSuccessor {
				maxSuccessor = r
			}
		}
		ranks[taskID] = exec + maxSuccessor
	}
	return ranks, nil
}

// CriticalPath traces the longest-rank chain: entry is the highest-rank node
// and every step descends to the successor maximizing rank plus the uniform
// average communication cost. The cost is the same on every edge, so the
// trace follows the max-rank successor. Ties resolve to the lowest task id at
// both the entry and each step.
func (a *CriticalPathAnalyzer) CriticalPath() ([]int, error) {
	ranks, err := a.UpwardRanks()
	if err != nil {
		return nil, err
	}
	if len(ranks) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(ranks))
	for id := range ranks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	entry := ids[0]
	for _, id := range ids[1:] {
		if ranks[id] > ranks[entry] {
			entry = id
		}
	}

	path := []int{entry}
	visited := map[int]bool{entry: true}
	current := entry
	for {
		next, bestRank := -1, 0.0
		for _, succ := range a.DAG.Successors(current) {
			if visited[succ] {
				continue
			}
			if next < 0 || ranks[succ] > bestRank || (ranks[succ] == bestRank && succ < next) {
				next, bestRank = succ, ranks[succ]
			}
		}
		if next < 0 {
			break
		}
		path = append(path, next)
		visited[next] = true
		current = next
	}
	return path, nil
}

// BottomLevels computes b(t) = exec(t) + max over successors of
// (edgeComm(t,succ) + b(succ)): the longest path length from t to a sink.
func (a *CriticalPathAnalyzer) BottomLevels() (map[int]float64, error) {
	reverseTopo, err := a.DAG.ReverseTopologicalSort()
	if err != nil {
		return nil, err
	}

	bottom := make(map[int]float64, len(reverseTopo))
	for _, taskID := range reverseTopo {
		exec, err := a.avgExecTime(taskID)
		if err != nil {
			return nil, err
		}
		maxSuccessor := 0.0
		for _, succ := range a.DAG.Successors(taskID) {
			comm, err := a.edgeCommCost(taskID, succ)
			if err != nil {
				return nil, err
			}
			if r := comm + bottom[succ]; r > maxSuccessor {
				maxSuccessor = r
			}
		}
		bottom[taskID] = exec + maxSuccessor
	}
	return bottom, nil
}

// TopLevels computes t(n) = max over predecessors of
// (t(p) + exec(p) + edgeComm(p,n)): the longest path length from a source to
// the start of n. Sources sit at zero.
func (a *CriticalPathAnalyzer) TopLevels() (map[int]float64, error) {
	topo, err := a.DAG.TopologicalSort()
	if err != nil {
		return nil, err
	}
	predIndex := a.DAG.PredecessorIndex()

	top := make(map[int]float64, len(topo))
	for _, taskID := range topo {
		maxPred := 0.0
		for _, pred := range predIndex[taskID] {
			exec, err := a.avgExecTime(pred)
			if err != nil {
				return nil, err
			}
			comm, err := a.edgeCommCost(pred, taskID)
			if err != nil {
				return nil, err
			}
			if r := top[pred] + exec + comm; r > maxPred {
				maxPred = r
			}
		}
		top[taskID] = maxPred
	}
	return top, nil
}

// TaskPriorities is bottom(t)+top(t): the longest path length through t.
// Every task on the critical path shares the maximum value.
func (a *CriticalPathAnalyzer) TaskPriorities() (map[int]float64, error) {
	bottom, err := a.BottomLevels()
	if err != nil {
		return nil, err
	}
	top, err := a.TopLevels()
	if err != nil {
		return nil, err
	}

	priorities := make(map[int]float64, len(bottom))
	for id, b := range bottom {
		priorities[id] = b + top[id]
	}
	return priorities, nil
}

// PriorityOrder lists the task ids by descending priority, ties to the
// lowest id.
func (a *CriticalPathAnalyzer) PriorityOrder() ([]int, error) {
	priorities, err := a.TaskPriorities()
	if err != nil {
		return nil, err
	}
	return sortByScoreDesc(priorities), nil
}

// TasksByRank lists the task ids by descending upward rank, ties to the
// lowest id. This is the classic list-scheduling order.
func (a *CriticalPathAnalyzer) TasksByRank() ([]int, error) {
	ranks, err := a.UpwardRanks()
	if err != nil {
		return nil, err
	}
	return sortByScoreDesc(ranks), nil
}

func sortByScoreDesc(scores map[int]float64) []int {
	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
