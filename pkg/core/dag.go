package core

import (
	"sort"

	"github.com/pkg/errors"
)

// WorkflowDAG is the dependency graph of one workflow: adjacency lists over
// task ids. Edges may be added in any order; endpoints are inserted
// implicitly. Duplicate edges are kept as-is and only matter to consumers
// that want them collapsed (see PredecessorIndex).
type WorkflowDAG struct {
	adjacency map[int][]int
	nodes     []int // insertion order
}

func NewWorkflowDAG() *WorkflowDAG {
	return &WorkflowDAG{adjacency: make(map[int][]int)}
}

// AddNode registers an id with no edges. A no-op if the node already exists.
func (d *WorkflowDAG) AddNode(id int) {
	if _, ok := d.adjacency[id]; !ok {
		d.adjacency[id] = nil
		d.nodes = append(d.nodes, id)
	}
}

// AddEdge records the dependency from -> to, inserting both endpoints.
func (d *WorkflowDAG) AddEdge(from, to int) {
	d.AddNode(from)
	d.AddNode(to)
	d.adjacency[from] = append(d.adjacency[from], to)
}

// Successors returns the adjacency list of id. The slice is shared, not a
// copy; callers must not mutate it.
func (d *WorkflowDAG) Successors(id int) []int {
	return d.adjacency[id]
}

// Predecessors scans the whole graph for edges into id. For repeated lookups
// use PredecessorIndex instead.
func (d *WorkflowDAG) Predecessors(id int) []int {
	var preds []int
	for _, from := range d.nodes {
		for _, to := range d.adjacency[from] {
			if to == id {
				preds = append(preds, from)
				break
			}
		}
	}
	return preds
}

// PredecessorIndex inverts the adjacency in one pass. Duplicate edges
// collapse to a single predecessor entry.
func (d *WorkflowDAG) PredecessorIndex() map[int][]int {
	index := make(map[int][]int, len(d.nodes))
	for _, from := range d.nodes {
		for _, to := range d.adjacency[from] {
			if !containsInt(index[to], from) {
				index[to] = append(index[to], from)
			}
		}
	}
	return index
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// Nodes returns the node ids in insertion order.
func (d *WorkflowDAG) Nodes() []int {
	return d.nodes
}

func (d *WorkflowDAG) Len() int {
	return len(d.nodes)
}

// TopologicalSort orders the nodes so every edge points forward. Zero
// in-degree nodes are seeded in ascending id, then processed FIFO, so the
// order is deterministic. Returns ErrCyclicGraph when no full order exists.
func (d *WorkflowDAG) TopologicalSort() ([]int, error) {
	inDegree := make(map[int]int, len(d.nodes))
	for _, id := range d.nodes {
		inDegree[id] = 0
	}
	for _, from := range d.nodes {
		for _, to := range d.adjacency[from] {
			inDegree[to]++
		}
	}

	var ready []int
	for _, id := range d.nodes {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, len(d.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, succ := range d.adjacency[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != len(d.nodes) {
		return nil, errors.Wrapf(ErrCyclicGraph, "ordered %d of %d nodes", len(order), len(d.nodes))
	}
	return order, nil
}

// ReverseTopologicalSort is TopologicalSort reversed; consumers that fold
// from sinks toward sources iterate this directly.
func (d *WorkflowDAG) ReverseTopologicalSort() ([]int, error) {
	order, err := d.TopologicalSort()
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}
