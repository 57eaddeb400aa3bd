package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The 3-task fork scenario: edges 1->2 and 1->3, sizes {1:10, 2:20, 3:20},
// two VMs of capacity 10, CCR=0.
func forkScenario() (*WorkflowDAG, TaskSet, []*VM) {
	dag := NewWorkflowDAG()
	dag.AddEdge(1, 2)
	dag.AddEdge(1, 3)
	tasks := TaskSet{
		1: NewTask(1, 10),
		2: NewTask(2, 20),
		3: NewTask(3, 20),
	}
	pool := []*VM{NewVM(0, 10), NewVM(1, 10)}
	return dag, tasks, pool
}

func TestUpwardRanksFork(t *testing.T) {
	dag, tasks, pool := forkScenario()
	a := NewCriticalPathAnalyzer(dag, tasks, pool, 0)

	ranks, err := a.UpwardRanks()
	require.NoError(t, err)

	// avgCapacity = 10; CCR=0 so communication contributes nothing.
	assert.InDelta(t, 2.0, ranks[2], 1e-9)
	assert.InDelta(t, 2.0, ranks[3], 1e-9)
	assert.InDelta(t, 3.0, ranks[1], 1e-9)
}

func TestUpwardRanksUniformCommCost(t *testing.T) {
	dag, tasks, pool := forkScenario()
	a := NewCriticalPathAnalyzer(dag, tasks, pool, 1.0)

	// avgCommunicationCost = (50/3)/10 * 1
	comm := a.AvgCommunicationCost()
	assert.InDelta(t, 50.0/3.0/10.0, comm, 1e-9)

	ranks, err := a.UpwardRanks()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, ranks[2], 1e-9)
	assert.InDelta(t, 1.0+2.0+comm, ranks[1], 1e-9)
}

// Task 1 is the only source and has the maximum upward rank; tasks 2 and 3
// tie, and the trace breaks the tie toward the lowest task id.
func TestCriticalPathTieBreaksToLowestID(t *testing.T) {
	dag, tasks, pool := forkScenario()
	a := NewCriticalPathAnalyzer(dag, tasks, pool, 0)

	path, err := a.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, path)
}

func TestCriticalPathChain(t *testing.T) {
	dag := NewWorkflowDAG()
	dag.AddEdge(1, 2)
	dag.AddEdge(2, 3)
	dag.AddEdge(1, 4) // short branch
	tasks := TaskSet{
		1: NewTask(1, 10),
		2: NewTask(2, 30),
		3: NewTask(3, 20),
		4: NewTask(4, 5),
	}
	pool := []*VM{NewVM(0, 10)}

	path, err := NewCriticalPathAnalyzer(dag, tasks, pool, 0.5).CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, path)
}

// The descent follows the max-rank successor: the communication estimate is
// the uniform average, identical on every edge, so divergent successor sizes
// must not steer the trace toward a lower-rank branch.
func TestCriticalPathFollowsMaxRankSuccessor(t *testing.T) {
	dag := NewWorkflowDAG()
	dag.AddEdge(1, 2)
	dag.AddEdge(1, 3)
	dag.AddEdge(2, 5)
	dag.AddEdge(3, 6)
	tasks := TaskSet{
		1: NewTask(1, 100),
		2: NewTask(2, 10),
		3: NewTask(3, 90),
		5: NewTask(5, 85),
		6: NewTask(6, 1),
	}
	pool := []*VM{NewVM(0, 10)}
	a := NewCriticalPathAnalyzer(dag, tasks, pool, 5)

	// comm = (286/5)/10*5 = 28.6; rank(2) = 1+28.6+8.5 = 38.1 beats
	// rank(3) = 9+28.6+0.1 = 37.7 even though task 3 is far larger.
	ranks, err := a.UpwardRanks()
	require.NoError(t, err)
	assert.Greater(t, ranks[2], ranks[3])

	path, err := a.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 5}, path)
}

func TestCriticalPathEmptyDAG(t *testing.T) {
	path, err := NewCriticalPathAnalyzer(NewWorkflowDAG(), TaskSet{}, []*VM{NewVM(0, 10)}, 1).CriticalPath()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestCriticalPathCyclicGraph(t *testing.T) {
	dag := NewWorkflowDAG()
	dag.AddEdge(1, 2)
	dag.AddEdge(2, 1)
	tasks := TaskSet{1: NewTask(1, 10), 2: NewTask(2, 10)}

	_, err := NewCriticalPathAnalyzer(dag, tasks, []*VM{NewVM(0, 10)}, 1).CriticalPath()
	assert.True(t, errors.Is(err, ErrCyclicGraph))
}

func TestUpwardRanksUnknownTask(t *testing.T) {
	dag := NewWorkflowDAG()
	dag.AddEdge(1, 9) // 9 has no task entry
	tasks := TaskSet{1: NewTask(1, 10)}

	_, err := NewCriticalPathAnalyzer(dag, tasks, []*VM{NewVM(0, 10)}, 1).UpwardRanks()
	assert.True(t, errors.Is(err, ErrUnknownTask))
}

// bottom(t)+top(t) is the longest path length through t, so every task on the
// single chain shares the same priority.
func TestTaskPrioritiesChainInvariant(t *testing.T) {
	dag := NewWorkflowDAG()
	dag.AddEdge(1, 2)
	tasks := TaskSet{1: NewTask(1, 10), 2: NewTask(2, 20)}
	pool := []*VM{NewVM(0, 10), NewVM(1, 10)}
	a := NewCriticalPathAnalyzer(dag, tasks, pool, 1.0)

	bottom, err := a.BottomLevels()
	require.NoError(t, err)
	top, err := a.TopLevels()
	require.NoError(t, err)

	// edgeCommCost(1,2) = min(10,20)*0.1/10*1 = 0.1
	assert.InDelta(t, 2.0, bottom[2], 1e-9)
	assert.InDelta(t, 1.0+0.1+2.0, bottom[1], 1e-9)
	assert.InDelta(t, 0.0, top[1], 1e-9)
	assert.InDelta(t, 1.0+0.1, top[2], 1e-9)

	priorities, err := a.TaskPriorities()
	require.NoError(t, err)
	assert.InDelta(t, priorities[1], priorities[2], 1e-9)
}

func TestPriorityOrderAndTasksByRank(t *testing.T) {
	dag, tasks, pool := forkScenario()
	a := NewCriticalPathAnalyzer(dag, tasks, pool, 0)

	order, err := a.PriorityOrder()
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, 1, order[0], "longest path runs through the source")

	byRank, err := a.TasksByRank()
	require.NoError(t, err)
	// rank 1 = 3.0 tops; 2 and 3 tie at 2.0 and resolve by id.
	assert.Equal(t, []int{1, 2, 3}, byRank)
}
