package core

import (
	"sort"

	"github.com/golang-collections/collections/queue"
)

// Task is one node of a workflow: a unit of work with an abstract size.
// AssignedVM is -1 until a scheduler places it.
type Task struct {
	ID         int
	Size       float64
	AssignedVM int
}

func NewTask(id int, size float64) *Task {
	return &Task{ID: id, Size: size, AssignedVM: -1}
}

// TaskSet indexes the tasks of one workflow by id.
type TaskSet map[int]*Task

// Copy deep-copies the set so a trial can mutate assignments without
// touching the source instance.
func (ts TaskSet) Copy() TaskSet {
	out := make(TaskSet, len(ts))
	for id, task := range ts {
		dup := *task
		out[id] = &dup
	}
	return out
}

// IDs returns the task ids in ascending order. Every iteration that sums
// floats or breaks ties goes through this, so results are reproducible.
func (ts TaskSet) IDs() []int {
	ids := make([]int, 0, len(ts))
	for id := range ts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AvgSize is the mean task size, 0 for an empty set.
func (ts TaskSet) AvgSize() float64 {
	if len(ts) == 0 {
		return 0
	}
	total := 0.0
	for _, task := range ts {
		total += task.Size
	}
	return total / float64(len(ts))
}

// VM is one machine of the pool. Capacity is abstract processing speed;
// AvailableTime accumulates the execution time of everything enqueued so far.
type VM struct {
	ID            int
	Capacity      float64
	AvailableTime float64
	Waiting       *queue.Queue
	Threshold     int
}

func NewVM(id int, capacity float64) *VM {
	return &VM{ID: id, Capacity: capacity, Waiting: queue.New(), Threshold: 2}
}

// Reset clears the queue and availability so the VM can host another trial.
func (v *VM) Reset() {
	v.AvailableTime = 0
	v.Waiting = queue.New()
}

func (v *VM) QueueLen() int {
	return v.Waiting.Len()
}

// ResetPool resets every VM in place.
func ResetPool(pool []*VM) {
	for _, vm := range pool {
		vm.Reset()
	}
}

// CopyPool builds a fresh pool with the same ids and capacities but empty
// queues and zero availability.
func CopyPool(pool []*VM) []*VM {
	out := make([]*VM, 0, len(pool))
	for _, vm := range pool {
		out = append(out, NewVM(vm.ID, vm.Capacity))
	}
	return out
}

// AvgCapacity is the mean capacity of the pool, 0 for an empty pool.
func AvgCapacity(pool []*VM) float64 {
	if len(pool) == 0 {
		return 0
	}
	total := 0.0
	for _, vm := range pool {
		total += vm.Capacity
	}
	return total / float64(len(pool))
}

// MaxCapacity is the capacity of the fastest VM, 0 for an empty pool.
func MaxCapacity(pool []*VM) float64 {
	max := 0.0
	for _, vm := range pool {
		if vm.Capacity > max {
			max = vm.Capacity
		}
	}
	return max
}

// Schedule maps task id to the id of the VM hosting it.
type Schedule map[int]int

func (s Schedule) Copy() Schedule {
	out := make(Schedule, len(s))
	for taskID, vmID := range s {
		out[taskID] = vmID
	}
	return out
}

func (s Schedule) Equal(other Schedule) bool {
	if len(s) != len(other) {
		return false
	}
	for taskID, vmID := range s {
		if otherVM, ok := other[taskID]; !ok || otherVM != vmID {
			return false
		}
	}
	return true
}
