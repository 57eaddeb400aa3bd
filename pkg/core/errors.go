package core

import "github.com/pkg/errors"

var (
	// ErrCyclicGraph is returned when a workflow graph has no topological
	// order. Every consumer of an ordering fails fast with this sentinel.
	ErrCyclicGraph = errors.New("workflow graph contains a cycle")

	// ErrEmptyVMPool is returned when tasks exist but no VM can host them.
	ErrEmptyVMPool = errors.New("vm pool is empty")

	// ErrUnknownTask is returned when a graph node has no entry in the task
	// set handed to the component.
	ErrUnknownTask = errors.New("task not found")

	// ErrUnknownVM is returned when a schedule entry names a VM that is not
	// in the pool.
	ErrUnknownVM = errors.New("vm not found")

	// ErrUnscheduledTask is returned when a pass over a schedule finds a task
	// with no assignment. Partial schedules are never silently tolerated.
	ErrUnscheduledTask = errors.New("task has no vm assignment")
)
