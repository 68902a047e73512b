// Package slot provides the display-slot arena. Callers register a Sink
// (the UI element that shows an avatar) and get back a Handle. Handles are
// generation-checked: once a slot is unregistered its handle goes stale,
// and assignments through a stale handle are silently dropped.
package slot

import (
	"fmt"
	"sync"

	"github.com/marmos91/contactpic/pkg/avatar"
)

// Sink receives the image to display.
type Sink interface {
	SetImage(img *avatar.Image)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(img *avatar.Image)

// SetImage calls f(img).
func (f SinkFunc) SetImage(img *avatar.Image) {
	f(img)
}

// Handle is an opaque reference to a registered slot. The zero Handle is
// never valid.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

// String formats the handle for logs.
func (h Handle) String() string {
	return fmt.Sprintf("%d:%d", h.index, h.generation)
}

type cell struct {
	generation uint32
	sink       Sink
	live       bool
}

// Registry is the slot arena. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	cells []cell
	free  []uint32
	live  int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds sink and returns its handle. Freed cells are reused with a
// bumped generation.
func (r *Registry) Register(sink Sink) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.cells))
		r.cells = append(r.cells, cell{})
	}

	c := &r.cells[idx]
	c.generation++
	if c.generation == 0 {
		c.generation = 1
	}
	c.sink = sink
	c.live = true
	r.live++

	return Handle{index: idx, generation: c.generation}
}

// Unregister releases the slot. It reports false when h is already stale.
func (r *Registry) Unregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cellLocked(h)
	if c == nil {
		return false
	}
	c.sink = nil
	c.live = false
	r.free = append(r.free, h.index)
	r.live--
	return true
}

// Lookup returns the sink behind h.
func (r *Registry) Lookup(h Handle) (Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.cellLocked(h)
	if c == nil {
		return nil, false
	}
	return c.sink, true
}

// Assign hands img to the sink behind h and reports whether h was live.
// The sink is called outside the registry lock.
func (r *Registry) Assign(h Handle, img *avatar.Image) bool {
	sink, ok := r.Lookup(h)
	if !ok {
		return false
	}
	sink.SetImage(img)
	return true
}

// Len returns the number of live slots.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

func (r *Registry) cellLocked(h Handle) *cell {
	if h.IsZero() || int(h.index) >= len(r.cells) {
		return nil
	}
	c := &r.cells[h.index]
	if !c.live || c.generation != h.generation {
		return nil
	}
	return c
}
