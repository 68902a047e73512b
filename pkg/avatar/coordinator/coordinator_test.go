package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/slot"
)

func handles(t *testing.T, n int) []slot.Handle {
	t.Helper()
	r := slot.NewRegistry()
	out := make([]slot.Handle, n)
	for i := range out {
		out[i] = r.Register(slot.SinkFunc(func(*avatar.Image) {}))
	}
	return out
}

func TestBegin_NewTask(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	task, ok := c.Begin(h, "a@x.com")
	require.True(t, ok)
	assert.Equal(t, avatar.Key("a@x.com"), task.Key)
	assert.Equal(t, h, task.Slot)
	assert.Equal(t, uint64(1), task.Epoch)
	assert.Equal(t, StatePending, task.State())
	assert.Equal(t, 1, c.Len())
}

func TestBegin_SameKeyIsRedundant(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	first, ok := c.Begin(h, "a@x.com")
	require.True(t, ok)

	again, ok := c.Begin(h, "a@x.com")
	assert.False(t, ok)
	assert.Same(t, first, again)
	assert.Equal(t, StatePending, first.State())
	assert.Equal(t, uint64(1), c.Epoch(h))
}

func TestBegin_DifferentKeySupersedes(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	old, _ := c.Begin(h, "a@x.com")
	require.True(t, old.Start())

	newer, ok := c.Begin(h, "b@x.com")
	require.True(t, ok)
	assert.Equal(t, StateCancelled, old.State())
	assert.Equal(t, uint64(2), newer.Epoch)

	// Last request wins: the old task completes but is denied.
	assert.False(t, c.Complete(old))
	assert.True(t, c.Complete(newer))
	assert.Equal(t, StateDone, newer.State())
	assert.Equal(t, 0, c.Len())
}

func TestComplete_OnlyOnce(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	task, _ := c.Begin(h, "a@x.com")
	assert.True(t, c.Complete(task))
	assert.False(t, c.Complete(task))
}

func TestCancel_CacheHitSupersedesInFlight(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	task, _ := c.Begin(h, "a@x.com")
	c.Cancel(h)

	assert.Equal(t, StateCancelled, task.State())
	assert.False(t, c.Complete(task))
	_, tracked := c.Current(h)
	assert.False(t, tracked)

	// A cancelled task cannot be started by a worker.
	assert.False(t, task.Start())
}

func TestCancel_UntouchedSlot(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	c.Cancel(h)
	assert.Equal(t, uint64(0), c.Epoch(h))
}

func TestAbort(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	task, _ := c.Begin(h, "a@x.com")
	c.Abort(task)

	assert.Equal(t, StateCancelled, task.State())
	assert.Equal(t, 0, c.Len())

	// After an abort the same key may be requested again.
	_, ok := c.Begin(h, "a@x.com")
	assert.True(t, ok)
}

func TestAbort_StaleTaskLeavesNewerAlone(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	old, _ := c.Begin(h, "a@x.com")
	newer, _ := c.Begin(h, "b@x.com")

	c.Abort(old)
	cur, ok := c.Current(h)
	require.True(t, ok)
	assert.Same(t, newer, cur)
}

func TestForget(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	task, _ := c.Begin(h, "a@x.com")
	c.Forget(h)

	assert.False(t, c.Complete(task))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, uint64(0), c.Epoch(h))
}

func TestSlotsAreIndependent(t *testing.T) {
	c := New()
	hs := handles(t, 2)

	a, okA := c.Begin(hs[0], "a@x.com")
	b, okB := c.Begin(hs[1], "a@x.com")
	require.True(t, okA)
	require.True(t, okB)
	assert.NotEqual(t, a.ID, b.ID)

	assert.True(t, c.Complete(b))
	assert.True(t, c.Complete(a))
}

func TestAtMostOneTaskPerSlot(t *testing.T) {
	c := New()
	h := handles(t, 1)[0]

	keys := []avatar.Key{"a", "b", "c", "b", "a"}
	var tasks []*Task
	for _, k := range keys {
		if task, ok := c.Begin(h, k); ok {
			tasks = append(tasks, task)
		}
	}

	live := 0
	for _, task := range tasks {
		if !task.State().Terminal() {
			live++
		}
	}
	assert.Equal(t, 1, live)
	assert.Equal(t, 1, c.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(42).String())
}
