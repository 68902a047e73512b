package coordinator

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/slot"
)

// State is the lifecycle state of a fetch task.
type State int32

const (
	// StatePending: tracked, not yet picked up by a worker.
	StatePending State = iota
	// StateRunning: a worker is fetching.
	StateRunning
	// StateCancelled: superseded or aborted; the result will not be delivered.
	StateCancelled
	// StateDone: delivered to its slot.
	StateDone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCancelled:
		return "cancelled"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is Cancelled or Done.
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateDone
}

// Task is one dispatched fetch for a slot.
//
// ID, Key, Slot and Epoch are immutable. State is read by workers and
// written by the coordinator, so it is atomic.
type Task struct {
	ID    uuid.UUID
	Key   avatar.Key
	Slot  slot.Handle
	Epoch uint64

	state atomic.Int32
}

func newTask(key avatar.Key, h slot.Handle, epoch uint64) *Task {
	return &Task{
		ID:    uuid.New(),
		Key:   key,
		Slot:  h,
		Epoch: epoch,
	}
}

// State returns the current state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Start moves a pending task to Running. It reports false if the task was
// already cancelled, in which case the worker may skip straight to caching.
func (t *Task) Start() bool {
	return t.state.CompareAndSwap(int32(StatePending), int32(StateRunning))
}

// Cancelled reports whether the task has been superseded.
func (t *Task) Cancelled() bool {
	return t.State() == StateCancelled
}

// finish moves a non-terminal task to s.
func (t *Task) finish(s State) bool {
	for {
		cur := t.state.Load()
		if State(cur).Terminal() {
			return false
		}
		if t.state.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}
