// Package bufpool recycles the byte buffers avatars are encoded into.
//
// Encoded avatars are small and similar in size, so a buffer that served
// one request almost always fits the next. Buffers that grew beyond
// MaxRetained are dropped on Put so one oversized render does not pin
// memory for the life of the process.
package bufpool

import (
	"bytes"
	"sync"
)

const (
	// DefaultInitialSize fits a PNG avatar at the default picture size.
	DefaultInitialSize = 8 << 10

	// DefaultMaxRetained is the largest buffer returned to the pool.
	DefaultMaxRetained = 1 << 20
)

// Pool is a pool of *bytes.Buffer.
type Pool struct {
	pool        sync.Pool
	maxRetained int
}

// NewPool returns a pool whose fresh buffers start at initialSize bytes
// and which keeps buffers up to maxRetained bytes. Zero values take the
// defaults.
func NewPool(initialSize, maxRetained int) *Pool {
	if initialSize <= 0 {
		initialSize = DefaultInitialSize
	}
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}

	p := &Pool{maxRetained: maxRetained}
	p.pool.New = func() any {
		return bytes.NewBuffer(make([]byte, 0, initialSize))
	}
	return p
}

// Get returns an empty buffer.
func (p *Pool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool. buf must not be used afterwards.
func (p *Pool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > p.maxRetained {
		return
	}
	p.pool.Put(buf)
}

var globalPool = NewPool(0, 0)

// Get returns an empty buffer from the shared pool.
func Get() *bytes.Buffer { return globalPool.Get() }

// Put returns buf to the shared pool.
func Put(buf *bytes.Buffer) { globalPool.Put(buf) }
