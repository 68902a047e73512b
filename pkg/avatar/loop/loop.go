// Package loop provides the single-consumer delivery loop. Everything that
// touches display slots or coordinator state runs on this one goroutine,
// in submission order.
package loop

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Post and Do after Stop.
var ErrStopped = errors.New("loop: stopped")

// Loop runs posted functions one at a time on a dedicated goroutine.
type Loop struct {
	work chan func()
	done chan struct{}

	mu      sync.RWMutex
	stopped bool
	stop    sync.Once
}

// New starts a loop whose queue holds up to buffer pending functions.
// Post blocks while the queue is full.
func New(buffer int) *Loop {
	if buffer < 0 {
		buffer = 0
	}
	l := &Loop{
		work: make(chan func(), buffer),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for fn := range l.work {
		fn()
	}
}

// Post schedules fn to run on the loop and returns without waiting.
func (l *Loop) Post(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.stopped {
		return ErrStopped
	}
	l.work <- fn
	return nil
}

// Do runs fn on the loop and waits for it to return.
//
// Do must not be called from a function already running on the loop: the
// loop would wait on itself.
func (l *Loop) Do(fn func()) error {
	ran := make(chan struct{})
	if err := l.Post(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	<-ran
	return nil
}

// Stop rejects new work, runs everything already queued and waits for the
// loop goroutine to exit. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		l.mu.Lock()
		l.stopped = true
		close(l.work)
		l.mu.Unlock()
	})
	<-l.done
}
