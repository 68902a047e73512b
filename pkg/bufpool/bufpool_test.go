package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsEmptyBuffer(t *testing.T) {
	p := NewPool(64, 1024)

	buf := p.Get()
	buf.WriteString("avatar bytes")
	p.Put(buf)

	buf = p.Get()
	assert.Zero(t, buf.Len())
	assert.GreaterOrEqual(t, buf.Cap(), 64)
}

func TestPutDropsOversizedBuffers(t *testing.T) {
	p := NewPool(16, 32)

	big := p.Get()
	big.Write(make([]byte, 4096))
	p.Put(big)

	// The pool may hand back any retained buffer, never the oversized one.
	for i := 0; i < 10; i++ {
		assert.NotSame(t, big, p.Get())
	}
}

func TestPutNil(t *testing.T) {
	assert.NotPanics(t, func() { Put(nil) })
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := Get()
				buf.WriteByte(byte(n))
				assert.Equal(t, 1, buf.Len())
				Put(buf)
			}
		}(i)
	}
	wg.Wait()
}
