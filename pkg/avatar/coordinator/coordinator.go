// Package coordinator decides, per display slot, which fetch is
// authoritative.
//
// Every slot has a monotonically increasing epoch. Each Begin or Cancel
// bumps it; a task may deliver only if it is still the tracked task for its
// slot and its epoch matches. Superseded tasks are not interrupted: they run
// to completion and are simply denied delivery.
//
// A Coordinator has no internal locking. It must be confined to a single
// goroutine (the loader's delivery loop).
package coordinator

import (
	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/slot"
)

// Coordinator tracks the in-flight task for each slot.
type Coordinator struct {
	tracked map[slot.Handle]*Task
	epochs  map[slot.Handle]uint64
}

// New creates an empty coordinator.
func New() *Coordinator {
	return &Coordinator{
		tracked: make(map[slot.Handle]*Task),
		epochs:  make(map[slot.Handle]uint64),
	}
}

// Begin registers a request for key on slot h.
//
// It returns (task, true) when the caller should dispatch a fetch. When a
// task for the same key is already in flight for h the request is redundant
// and Begin returns (existing, false). A tracked task for a different key is
// cancelled and replaced.
func (c *Coordinator) Begin(h slot.Handle, key avatar.Key) (*Task, bool) {
	if cur, ok := c.tracked[h]; ok {
		if cur.Key == key {
			return cur, false
		}
		cur.finish(StateCancelled)
	}

	epoch := c.bump(h)
	t := newTask(key, h, epoch)
	c.tracked[h] = t
	return t, true
}

// Complete reports whether t may deliver to its slot. On success the task
// becomes Done and the slot is no longer tracked. A superseded task is
// marked Cancelled and denied.
func (c *Coordinator) Complete(t *Task) bool {
	cur, ok := c.tracked[t.Slot]
	if !ok || cur != t || c.epochs[t.Slot] != t.Epoch {
		t.finish(StateCancelled)
		return false
	}

	delete(c.tracked, t.Slot)
	return t.finish(StateDone)
}

// Cancel supersedes whatever is in flight for h without starting new work.
// The loader calls it when a cache hit has already served the slot.
func (c *Coordinator) Cancel(h slot.Handle) {
	if cur, ok := c.tracked[h]; ok {
		cur.finish(StateCancelled)
		delete(c.tracked, h)
	}
	if _, seen := c.epochs[h]; seen {
		c.bump(h)
	}
}

// Abort clears t after its dispatch was rejected. It is a no-op if t has
// already been superseded.
func (c *Coordinator) Abort(t *Task) {
	t.finish(StateCancelled)
	if cur, ok := c.tracked[t.Slot]; ok && cur == t {
		delete(c.tracked, t.Slot)
	}
}

// Forget drops all state for h. Called when the slot is torn down; any task
// still in flight will be denied delivery.
func (c *Coordinator) Forget(h slot.Handle) {
	if cur, ok := c.tracked[h]; ok {
		cur.finish(StateCancelled)
	}
	delete(c.tracked, h)
	delete(c.epochs, h)
}

// Current returns the task tracked for h, if any.
func (c *Coordinator) Current(h slot.Handle) (*Task, bool) {
	t, ok := c.tracked[h]
	return t, ok
}

// Epoch returns the current epoch of h (0 if never used).
func (c *Coordinator) Epoch(h slot.Handle) uint64 {
	return c.epochs[h]
}

// Len returns the number of slots with a task in flight.
func (c *Coordinator) Len() int {
	return len(c.tracked)
}

func (c *Coordinator) bump(h slot.Handle) uint64 {
	c.epochs[h]++
	return c.epochs[h]
}
