package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategiesProduceTotalSchedules(t *testing.T) {
	strategies := []Strategy{
		Random{Seed: 7},
		SMGT{},
		SMGTGameTheory{},
		SMGTLOTD{},
	}

	for _, strategy := range strategies {
		strategy := strategy
		t.Run(strategy.Name(), func(t *testing.T) {
			dag, tasks, pool := diamondScenario()
			schedule, err := strategy.Schedule(dag, tasks, pool, 0.5)
			require.NoError(t, err)

			require.Len(t, schedule, len(tasks))
			for _, id := range tasks.IDs() {
				vmID, ok := schedule[id]
				assert.True(t, ok)
				assert.GreaterOrEqual(t, vmID, 0)
				assert.Less(t, vmID, len(pool))
			}
		})
	}
}

func TestRandomStrategyReproducible(t *testing.T) {
	dag, tasks, pool := diamondScenario()

	first, err := Random{Seed: 42}.Schedule(dag, tasks.Copy(), CopyPool(pool), 1.0)
	require.NoError(t, err)
	second, err := Random{Seed: 42}.Schedule(dag, tasks.Copy(), CopyPool(pool), 1.0)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestRandomStrategyEmptyPool(t *testing.T) {
	dag, tasks, _ := diamondScenario()
	_, err := Random{Seed: 1}.Schedule(dag, tasks, nil, 1.0)
	assert.True(t, errors.Is(err, ErrEmptyVMPool))
}

// An explicit zero-pass refinement is the identity: the strategy must yield
// exactly the base SMGT schedule, not silently fall back to the default passes.
func TestGameTheoryZeroPassesIsIdentity(t *testing.T) {
	dag, tasks, pool := diamondScenario()

	base, err := SMGT{}.Schedule(dag, tasks.Copy(), CopyPool(pool), 1.0)
	require.NoError(t, err)

	zero := SMGTGameTheory{Refine: &RefineConfig{MaxPasses: 0}}
	unrefined, err := zero.Schedule(dag, tasks.Copy(), CopyPool(pool), 1.0)
	require.NoError(t, err)

	assert.True(t, base.Equal(unrefined))
}

func TestStrategiesPropagateCycleError(t *testing.T) {
	dag := NewWorkflowDAG()
	dag.AddEdge(1, 2)
	dag.AddEdge(2, 1)
	tasks := TaskSet{1: NewTask(1, 10), 2: NewTask(2, 20)}
	pool := []*VM{NewVM(0, 10)}

	for _, strategy := range []Strategy{SMGT{}, SMGTGameTheory{}, SMGTLOTD{}} {
		_, err := strategy.Schedule(dag, tasks, pool, 1.0)
		assert.True(t, errors.Is(err, ErrCyclicGraph), "strategy %s", strategy.Name())
	}
}

// Independent trials on copies never observe each other's mutations.
func TestTrialIsolationThroughCopies(t *testing.T) {
	dag, tasks, pool := diamondScenario()

	tasksA, poolA := tasks.Copy(), CopyPool(pool)
	_, err := SMGT{}.Schedule(dag, tasksA, poolA, 1.0)
	require.NoError(t, err)

	for _, task := range tasks {
		assert.Equal(t, -1, task.AssignedVM, "original task set mutated")
	}
	for _, vm := range pool {
		assert.Zero(t, vm.AvailableTime)
		assert.Zero(t, vm.QueueLen())
	}
}
